// Package songbook provides the song catalog: song records persisted in a
// single-table record store and media blobs kept in an object store.
//
// It exposes a single Service interface that orchestrates song creation,
// partial updates, deletion with best-effort media cleanup, and the issuing of
// presigned URLs so clients move media bytes directly to and from the object
// store. Implementations of repositories (memory, DynamoDB, Postgres) and blob
// stores (memory, filesystem, S3) are provided under subpackages.
//
// # Consistency Model
//
// The record store and the object store are never updated transactionally.
// A song mutation commits first; blob deletions that accompany it are queued
// on a Cleaner and retried independently. Keys that cannot be removed end up
// in the cleaner's orphan report instead of failing the request.
package songbook

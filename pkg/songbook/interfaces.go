package songbook

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// PresignUpload returns a URL a client can PUT the raw bytes to
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// PresignDownload returns a time-limited URL for reading an object
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PublicURL returns the unsigned URL of an object under a public-read prefix
	PublicURL(key string) string

	// Upload stores content server-side
	Upload(ctx context.Context, key, contentType string, reader io.Reader) error

	// Delete removes an object. Deleting an empty key is a no-op.
	Delete(ctx context.Context, key string) error
}

// Repository defines the interface for song record persistence.
//
// GetSong returns (nil, nil) for a missing id. DeleteSong is idempotent.
type Repository interface {
	ListSongs(ctx context.Context) ([]*Song, error)
	GetSong(ctx context.Context, id string) (*Song, error)
	CreateSong(ctx context.Context, song *Song) error
	UpdateSong(ctx context.Context, id string, patch SongPatch) (*Song, error)
	DeleteSong(ctx context.Context, id string) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	// SongCreated is fired when a song is created
	SongCreated(ctx context.Context, song *Song) error

	// SongUpdated is fired when a song is updated
	SongUpdated(ctx context.Context, song *Song) error

	// SongDeleted is fired when a song is deleted
	SongDeleted(ctx context.Context, id string) error
}

package songbook

import (
	"context"
	"io"
)

// Service defines the main song catalog service interface
type Service interface {
	// Song operations
	ListSongs(ctx context.Context) ([]*Song, error)
	GetSong(ctx context.Context, id string) (*Song, error)
	CreateSong(ctx context.Context, req CreateSongRequest) (*Song, error)
	UpdateSong(ctx context.Context, req UpdateSongRequest) (*Song, error)
	DeleteSong(ctx context.Context, id string) error

	// Media operations
	PresignUpload(ctx context.Context, req PresignUploadRequest) (*PresignedUpload, error)
	PresignDownload(ctx context.Context, req PresignDownloadRequest) (string, error)
	PublicURL(key string) string
	// UploadMedia stores content server-side under a freshly generated key
	UploadMedia(ctx context.Context, req PresignUploadRequest, body io.Reader) (string, error)
	// DiscardMedia queues keys for best-effort deletion
	DiscardMedia(keys ...string)

	// Orphans reports object keys the cleaner gave up on
	Orphans() []Orphan
}

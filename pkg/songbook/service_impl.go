package songbook

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/tendant/songbook/pkg/songbook/objectkey"
)

// Default presigned URL lifetimes.
const (
	DefaultUploadURLExpiry   = 5 * time.Minute
	DefaultDownloadURLExpiry = time.Hour
	// S3 SigV4 does not allow more than seven days
	DefaultMetadataURLExpiry = 7 * 24 * time.Hour
)

// service implements the Service interface
type service struct {
	repository   Repository
	blobStore    BlobStore
	eventSink    EventSink
	cleaner      *Cleaner
	keyGenerator objectkey.Generator
	now          func() time.Time

	uploadExpiry   time.Duration
	downloadExpiry time.Duration
	metadataExpiry time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithCleaner sets the queue used for post-commit blob deletion.
// When omitted a cleaner with default settings is started over the blob store.
func WithCleaner(cleaner *Cleaner) Option {
	return func(s *service) {
		s.cleaner = cleaner
	}
}

// WithKeyGenerator overrides how object keys are built
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = gen
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithURLExpiry overrides presigned URL lifetimes. Zero values keep the defaults.
func WithURLExpiry(upload, download, metadata time.Duration) Option {
	return func(s *service) {
		if upload > 0 {
			s.uploadExpiry = upload
		}
		if download > 0 {
			s.downloadExpiry = download
		}
		if metadata > 0 {
			s.metadataExpiry = metadata
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink:      NewNoopEventSink(),
		keyGenerator:   objectkey.NewTimestampGenerator(),
		now:            time.Now,
		uploadExpiry:   DefaultUploadURLExpiry,
		downloadExpiry: DefaultDownloadURLExpiry,
		metadataExpiry: DefaultMetadataURLExpiry,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.cleaner == nil {
		s.cleaner = NewCleaner(s.blobStore)
	}

	return s, nil
}

func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Song operations

// ListSongs returns every song, newest first. Ties are broken by id so the
// order is stable across scans.
func (s *service) ListSongs(ctx context.Context) ([]*Song, error) {
	songs, err := s.repository.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	slices.SortFunc(songs, func(a, b *Song) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return songs, nil
}

func (s *service) GetSong(ctx context.Context, id string) (*Song, error) {
	song, err := s.repository.GetSong(ctx, id)
	if err != nil {
		return nil, &SongError{ID: id, Op: "get", Err: err}
	}
	if song == nil {
		return nil, &SongError{ID: id, Op: "get", Err: ErrSongNotFound}
	}
	return song, nil
}

func (s *service) CreateSong(ctx context.Context, req CreateSongRequest) (*Song, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.timestamp()
	song := &Song{
		ID:               uuid.New().String(),
		Title:            req.Title,
		Lyrics:           req.Lyrics,
		AudioKey:         req.AudioKey,
		VideoKey:         req.VideoKey,
		ImageKey:         req.ImageKey,
		MetadataImageKey: req.MetadataImageKey,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repository.CreateSong(ctx, song); err != nil {
		return nil, &SongError{ID: song.ID, Op: "create", Err: err}
	}

	if err := s.eventSink.SongCreated(ctx, song); err != nil {
		slog.Warn("Event sink failed", "event", "song_created", "song_id", song.ID, "error", err)
	}

	return song, nil
}

func (s *service) UpdateSong(ctx context.Context, req UpdateSongRequest) (*Song, error) {
	if err := req.Patch.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repository.GetSong(ctx, req.ID)
	if err != nil {
		return nil, &SongError{ID: req.ID, Op: "update", Err: err}
	}
	if existing == nil {
		return nil, &SongError{ID: req.ID, Op: "update", Err: ErrSongNotFound}
	}

	// updatedAt never moves backwards, even if the clock does
	now := s.timestamp()
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Millisecond)
	}
	patch := req.Patch
	patch.UpdatedAt = now

	updated, err := s.repository.UpdateSong(ctx, req.ID, patch)
	if err != nil {
		return nil, &SongError{ID: req.ID, Op: "update", Err: err}
	}

	inUse := make(map[string]bool)
	for _, key := range updated.MediaKeys() {
		inUse[key] = true
	}
	for _, key := range req.FilesToDelete {
		if key == "" || inUse[key] {
			continue
		}
		s.cleaner.Enqueue(key)
	}

	if err := s.eventSink.SongUpdated(ctx, updated); err != nil {
		slog.Warn("Event sink failed", "event", "song_updated", "song_id", updated.ID, "error", err)
	}

	return updated, nil
}

func (s *service) DeleteSong(ctx context.Context, id string) error {
	song, err := s.repository.GetSong(ctx, id)
	if err != nil {
		return &SongError{ID: id, Op: "delete", Err: err}
	}
	if song == nil {
		return &SongError{ID: id, Op: "delete", Err: ErrSongNotFound}
	}

	if err := s.repository.DeleteSong(ctx, id); err != nil {
		return &SongError{ID: id, Op: "delete", Err: err}
	}

	for _, key := range song.MediaKeys() {
		s.cleaner.Enqueue(key)
	}

	if err := s.eventSink.SongDeleted(ctx, id); err != nil {
		slog.Warn("Event sink failed", "event", "song_deleted", "song_id", id, "error", err)
	}

	return nil
}

// Media operations

func (s *service) PresignUpload(ctx context.Context, req PresignUploadRequest) (*PresignedUpload, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key, err := s.keyGenerator.GenerateKey(string(req.Kind), req.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	url, err := s.blobStore.PresignUpload(ctx, key, req.ContentType, s.uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	return &PresignedUpload{URL: url, Key: key}, nil
}

func (s *service) PresignDownload(ctx context.Context, req PresignDownloadRequest) (string, error) {
	if req.Key == "" {
		return "", validationError("missing key parameter")
	}

	ttl := s.downloadExpiry
	switch req.Variant {
	case DownloadVariantDefault:
	case DownloadVariantMetadata:
		ttl = s.metadataExpiry
	default:
		return "", validationError("unknown variant %q", req.Variant)
	}

	url, err := s.blobStore.PresignDownload(ctx, req.Key, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", req.Key, err)
	}
	return url, nil
}

func (s *service) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return s.blobStore.PublicURL(key)
}

func (s *service) UploadMedia(ctx context.Context, req PresignUploadRequest, body io.Reader) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	key, err := s.keyGenerator.GenerateKey(string(req.Kind), req.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.blobStore.Upload(ctx, key, req.ContentType, body); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

func (s *service) DiscardMedia(keys ...string) {
	for _, key := range keys {
		s.cleaner.Enqueue(key)
	}
}

func (s *service) Orphans() []Orphan {
	return s.cleaner.Orphans()
}

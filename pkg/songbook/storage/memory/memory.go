package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// ErrObjectNotFound is returned by Download for unknown keys
var ErrObjectNotFound = errors.New("object not found")

type object struct {
	data        []byte
	contentType string
}

// Backend is an in-memory implementation of the songbook.BlobStore interface.
// Its URLs use the memory:// scheme and are not fetchable.
type Backend struct {
	mu           sync.RWMutex
	objects      map[string]object
	deleteErrors map[string]error
	deleted      []string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:      make(map[string]object),
		deleteErrors: make(map[string]error),
	}
}

// PresignUpload returns a fake upload URL
func (b *Backend) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	q := url.Values{}
	q.Set("contentType", contentType)
	q.Set("expires", fmt.Sprint(int64(ttl.Seconds())))
	return fmt.Sprintf("memory://upload/%s?%s", key, q.Encode()), nil
}

// PresignDownload returns a fake download URL
func (b *Backend) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("memory://download/%s?expires=%d", key, int64(ttl.Seconds())), nil
}

func (b *Backend) PublicURL(key string) string {
	return "memory://public/" + key
}

// Upload stores content in memory
func (b *Backend) Upload(ctx context.Context, key, contentType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = object{data: data, contentType: contentType}
	return nil
}

// Download returns the stored bytes and content type
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, "", ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

// Exists reports whether key is stored
func (b *Backend) Exists(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[key]
	return exists
}

// Delete removes content. Missing keys are not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.deleteErrors[key]; err != nil {
		return err
	}
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

// FailDeletes makes every Delete of key return err until cleared with a nil err
func (b *Backend) FailDeletes(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		delete(b.deleteErrors, key)
		return
	}
	b.deleteErrors[key] = err
}

// Deleted returns the keys successfully deleted so far, in order
func (b *Backend) Deleted() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.deleted))
	copy(out, b.deleted)
	return out
}

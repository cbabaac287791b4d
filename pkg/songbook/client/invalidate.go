package client

import (
	"context"

	"github.com/tendant/songbook/pkg/songbook"
)

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context) ([]*songbook.Song, error)

func (f FetcherFunc) ListSongs(ctx context.Context) ([]*songbook.Song, error) {
	return f(ctx)
}

// InvalidationSink is a songbook.EventSink that drops the cached list on
// every mutation the service commits, wherever the mutation came from.
type InvalidationSink struct {
	cache *Cache
}

// NewInvalidationSink returns a sink invalidating cache
func NewInvalidationSink(cache *Cache) *InvalidationSink {
	return &InvalidationSink{cache: cache}
}

func (s *InvalidationSink) SongCreated(ctx context.Context, song *songbook.Song) error {
	s.cache.Invalidate()
	return nil
}

func (s *InvalidationSink) SongUpdated(ctx context.Context, song *songbook.Song) error {
	s.cache.Invalidate()
	return nil
}

func (s *InvalidationSink) SongDeleted(ctx context.Context, id string) error {
	s.cache.Invalidate()
	return nil
}

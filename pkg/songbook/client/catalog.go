package client

import (
	"context"
	"log/slog"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/api"
)

// Catalog pairs the API client with the list cache. Every successful
// mutation invalidates the cache and refetches the whole list.
type Catalog struct {
	client *Client
	cache  *Cache
}

// NewCatalog creates a catalog. A nil cache gets one with default settings.
func NewCatalog(client *Client, cache *Cache) *Catalog {
	if cache == nil {
		cache = NewCache(client)
	}
	return &Catalog{client: client, cache: cache}
}

// Cache returns the underlying cache
func (c *Catalog) Cache() *Cache {
	return c.cache
}

// Songs returns the song list, from cache when fresh
func (c *Catalog) Songs(ctx context.Context) ([]*songbook.Song, error) {
	return c.cache.Get(ctx)
}

// Song returns a song from the cached list, falling back to the API
func (c *Catalog) Song(ctx context.Context, id string) (*songbook.Song, error) {
	if song, ok := c.cache.Lookup(id); ok {
		return song, nil
	}
	return c.client.GetSong(ctx, id)
}

// Create creates a song and refreshes the list
func (c *Catalog) Create(ctx context.Context, req api.CreateSongRequest) (*songbook.Song, error) {
	song, err := c.client.CreateSong(ctx, req)
	if err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return song, nil
}

// Update applies a partial update and refreshes the list
func (c *Catalog) Update(ctx context.Context, id string, req api.UpdateSongRequest) (*songbook.Song, error) {
	song, err := c.client.UpdateSong(ctx, id, req)
	if err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return song, nil
}

// Delete removes a song and refreshes the list
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.client.DeleteSong(ctx, id); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

// refresh drops the cache and reloads it. A failed reload leaves the cache
// empty so the next read fetches again.
func (c *Catalog) refresh(ctx context.Context) {
	c.cache.Invalidate()
	if _, err := c.cache.Refetch(ctx); err != nil {
		slog.Warn("Failed to refetch songs after mutation", "error", err)
	}
}

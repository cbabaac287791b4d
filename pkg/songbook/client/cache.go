package client

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tendant/songbook/pkg/songbook"
)

// DefaultCacheTTL is how long a fetched song list is served without refetching
const DefaultCacheTTL = time.Minute

// Fetcher loads the full song list. *Client implements it.
type Fetcher interface {
	ListSongs(ctx context.Context) ([]*songbook.Song, error)
}

// Cache holds the last fetched song list. Invalidation is wholesale: any
// mutation drops the whole list.
//
// Returned songs are shared with the cache and must not be modified.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	songs     []*songbook.Song
	fetchedAt time.Time
	valid     bool
	// generation changes on Invalidate so fetches started earlier are not stored
	generation uint64

	group singleflight.Group
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithTTL sets the freshness window. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithCacheClock overrides the time source
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache over fetcher
func NewCache(fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached list while it is fresh and fetches otherwise
func (c *Cache) Get(ctx context.Context) ([]*songbook.Song, error) {
	c.mu.RLock()
	if c.fresh() {
		songs := c.songs
		c.mu.RUnlock()
		return songs, nil
	}
	c.mu.RUnlock()

	return c.fetch(ctx)
}

// Refetch always loads the list from the fetcher
func (c *Cache) Refetch(ctx context.Context) ([]*songbook.Song, error) {
	return c.fetch(ctx)
}

// Invalidate drops the cached list
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.songs = nil
	c.valid = false
	c.generation++
}

// Lookup finds a song in the cached list without fetching
func (c *Cache) Lookup(id string) (*songbook.Song, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil, false
	}
	for _, song := range c.songs {
		if song.ID == id {
			return song, true
		}
	}
	return nil, false
}

// fresh must be called with mu held
func (c *Cache) fresh() bool {
	if !c.valid {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *Cache) fetch(ctx context.Context) ([]*songbook.Song, error) {
	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()

	v, err, _ := c.group.Do(strconv.FormatUint(generation, 10), func() (interface{}, error) {
		songs, err := c.fetcher.ListSongs(ctx)
		if err != nil {
			return nil, err
		}
		if songs == nil {
			songs = []*songbook.Song{}
		}

		c.mu.Lock()
		if c.generation == generation {
			c.songs = songs
			c.fetchedAt = c.now()
			c.valid = true
		}
		c.mu.Unlock()
		return songs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*songbook.Song), nil
}

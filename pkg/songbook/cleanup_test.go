package songbook_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/songbook/pkg/songbook"
)

// flakyStore fails the first n deletes of every key
type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    map[string]int
	deleted  []string
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{failures: failures, calls: make(map[string]int)}
}

func (s *flakyStore) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return "", songbook.ErrPresignUnsupported
}

func (s *flakyStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", songbook.ErrPresignUnsupported
}

func (s *flakyStore) PublicURL(key string) string { return "" }

func (s *flakyStore) Upload(ctx context.Context, key, contentType string, reader io.Reader) error {
	return nil
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[key]++
	if s.calls[key] <= s.failures {
		return errors.New("temporarily unavailable")
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *flakyStore) attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func flushCleaner(t *testing.T, c *songbook.Cleaner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
}

func TestCleaner_DeletesInOrder(t *testing.T) {
	store := newFlakyStore(0)
	c := songbook.NewCleaner(store)
	defer c.Close()

	c.Enqueue("audio/1-a.mp3")
	c.Enqueue("")
	c.Enqueue("videos/1-a.mp4")
	flushCleaner(t, c)

	assert.Equal(t, []string{"audio/1-a.mp3", "videos/1-a.mp4"}, store.deleted)
	assert.Empty(t, c.Orphans())
}

func TestCleaner_RetriesTransientFailures(t *testing.T) {
	store := newFlakyStore(2)
	c := songbook.NewCleaner(store, songbook.WithBackoff(time.Millisecond))
	defer c.Close()

	c.Enqueue("images/1-a.png")
	flushCleaner(t, c)

	assert.Equal(t, 3, store.attempts("images/1-a.png"))
	assert.Equal(t, []string{"images/1-a.png"}, store.deleted)
	assert.Empty(t, c.Orphans())
}

func TestCleaner_OrphansAfterMaxAttempts(t *testing.T) {
	store := newFlakyStore(10)
	c := songbook.NewCleaner(store, songbook.WithBackoff(time.Millisecond), songbook.WithMaxAttempts(4))
	defer c.Close()

	c.Enqueue("images/1-a.png")
	c.Enqueue("images/2-b.png")
	flushCleaner(t, c)

	orphans := c.Orphans()
	require.Len(t, orphans, 2)
	assert.Equal(t, "images/1-a.png", orphans[0].Key)
	assert.Equal(t, 4, orphans[0].Attempts)
	assert.Equal(t, "temporarily unavailable", orphans[0].LastError)
	assert.False(t, orphans[0].FailedAt.IsZero())
	assert.Equal(t, 4, store.attempts("images/2-b.png"))

	// the report is a copy
	orphans[0].Key = "changed"
	assert.Equal(t, "images/1-a.png", c.Orphans()[0].Key)
}

func TestCleaner_FlushWhenIdle(t *testing.T) {
	c := songbook.NewCleaner(newFlakyStore(0))
	defer c.Close()

	flushCleaner(t, c)
}

func TestCleaner_FlushHonoursContext(t *testing.T) {
	store := newFlakyStore(1)
	c := songbook.NewCleaner(store, songbook.WithBackoff(time.Hour))

	c.Enqueue("audio/1-a.mp3")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Flush(ctx), context.DeadlineExceeded)

	// Close cuts the backoff short and still drains
	c.Close()
	assert.Equal(t, []string{"audio/1-a.mp3"}, store.deleted)
}

func TestCleaner_EnqueueAfterClose(t *testing.T) {
	store := newFlakyStore(0)
	c := songbook.NewCleaner(store)
	c.Close()
	c.Close()

	c.Enqueue("audio/1-a.mp3")

	assert.Empty(t, store.deleted)
	orphans := c.Orphans()
	require.Len(t, orphans, 1)
	assert.Equal(t, "audio/1-a.mp3", orphans[0].Key)
	assert.Equal(t, songbook.ErrCleanerClosed.Error(), orphans[0].LastError)
}

func TestCleaner_ConcurrentEnqueue(t *testing.T) {
	store := newFlakyStore(0)
	c := songbook.NewCleaner(store)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Enqueue("audio/" + string(rune('a'+i)) + ".mp3")
		}(i)
	}
	wg.Wait()
	flushCleaner(t, c)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.deleted, 20)
}

package songbook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Cleaner defaults
const (
	DefaultCleanerMaxAttempts = 3
	DefaultCleanerBackoff     = 200 * time.Millisecond
	DefaultCleanerTimeout     = 30 * time.Second
)

// ErrCleanerClosed is recorded for keys enqueued after Close.
var ErrCleanerClosed = errors.New("cleaner closed")

// Orphan is an object key the cleaner failed to delete.
type Orphan struct {
	Key       string    `json:"key"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError"`
	FailedAt  time.Time `json:"failedAt"`
}

// Cleaner deletes blobs after the record mutation that released them has
// committed. Deletions run on a single background worker and are retried
// with exponential backoff. Keys that still fail are kept in an orphan report.
type Cleaner struct {
	store       BlobStore
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration

	mu      sync.Mutex
	queue   []string
	pending int
	idle    chan struct{}
	closed  bool
	orphans []Orphan

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// CleanerOption configures a Cleaner
type CleanerOption func(*Cleaner)

// WithMaxAttempts sets how many times a deletion is tried before the key is orphaned
func WithMaxAttempts(n int) CleanerOption {
	return func(c *Cleaner) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles on each retry.
func WithBackoff(d time.Duration) CleanerOption {
	return func(c *Cleaner) {
		c.backoff = d
	}
}

// WithDeleteTimeout bounds a single delete call
func WithDeleteTimeout(d time.Duration) CleanerOption {
	return func(c *Cleaner) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCleaner starts a cleaner worker over store
func NewCleaner(store BlobStore, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		store:       store,
		maxAttempts: DefaultCleanerMaxAttempts,
		backoff:     DefaultCleanerBackoff,
		timeout:     DefaultCleanerTimeout,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.run()
	return c
}

// Enqueue schedules key for deletion. Empty keys are ignored.
func (c *Cleaner) Enqueue(key string) {
	if key == "" {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.orphans = append(c.orphans, Orphan{Key: key, LastError: ErrCleanerClosed.Error(), FailedAt: time.Now().UTC()})
		c.mu.Unlock()
		slog.Error("Blob cleanup skipped", "key", key, "error", ErrCleanerClosed)
		return
	}
	c.queue = append(c.queue, key)
	if c.pending == 0 {
		c.idle = make(chan struct{})
	}
	c.pending++
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every enqueued key has been processed or ctx is done.
func (c *Cleaner) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker. Keys enqueued afterwards are
// reported as orphans.
func (c *Cleaner) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
}

// Orphans returns a snapshot of the keys that could not be deleted
func (c *Cleaner) Orphans() []Orphan {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Orphan, len(c.orphans))
	copy(out, c.orphans)
	return out
}

func (c *Cleaner) run() {
	defer close(c.done)
	for {
		select {
		case <-c.wake:
			c.drain()
		case <-c.stop:
			c.drain()
			return
		}
	}
}

func (c *Cleaner) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		key := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.process(key)

		c.mu.Lock()
		c.pending--
		if c.pending == 0 {
			close(c.idle)
		}
		c.mu.Unlock()
	}
}

func (c *Cleaner) process(key string) {
	delay := c.backoff
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.delete(key)
		if err == nil {
			slog.Debug("Deleted blob", "key", key, "attempt", attempt)
			return
		}

		slog.Warn("Failed to delete blob", "key", key, "attempt", attempt, "error", err)
		if attempt < c.maxAttempts {
			c.sleep(delay)
			delay *= 2
		}
	}

	slog.Error("Giving up on blob deletion", "key", key, "attempts", c.maxAttempts, "error", err)
	c.mu.Lock()
	c.orphans = append(c.orphans, Orphan{
		Key:       key,
		Attempts:  c.maxAttempts,
		LastError: err.Error(),
		FailedAt:  time.Now().UTC(),
	})
	c.mu.Unlock()
}

func (c *Cleaner) delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.store.Delete(ctx, key)
}

// sleep waits for d unless the cleaner is stopping, in which case remaining
// retries run back to back.
func (c *Cleaner) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.stop:
	}
}

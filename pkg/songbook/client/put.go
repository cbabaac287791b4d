package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProgressFunc receives the number of bytes sent so far
type ProgressFunc func(bytesUploaded int64)

// Putter sends file bytes straight to a presigned URL, bypassing the API
type Putter struct {
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
	progressFunc  ProgressFunc
}

// PutterOption configures a Putter
type PutterOption func(*Putter)

// WithPutHTTPClient sets the HTTP client used for uploads
func WithPutHTTPClient(hc *http.Client) PutterOption {
	return func(p *Putter) {
		p.httpClient = hc
	}
}

// WithRetry configures retry behavior. Bodies that cannot be rewound are sent once.
func WithRetry(attempts int, delay time.Duration) PutterOption {
	return func(p *Putter) {
		if attempts > 0 {
			p.retryAttempts = attempts
		}
		p.retryDelay = delay
	}
}

// WithProgress sets a progress callback
func WithProgress(fn ProgressFunc) PutterOption {
	return func(p *Putter) {
		p.progressFunc = fn
	}
}

// NewPutter creates a Putter
func NewPutter(opts ...PutterOption) *Putter {
	p := &Putter{
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Put uploads body to presignedURL with the content type the URL was signed for
func (p *Putter) Put(ctx context.Context, presignedURL, contentType string, body io.Reader) error {
	seeker, rewindable := body.(io.Seeker)
	attempts := p.retryAttempts
	if !rewindable {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("failed to rewind upload body: %w", err)
			}
		}

		var reader io.Reader = body
		if p.progressFunc != nil {
			reader = &progressReader{reader: body, callback: p.progressFunc}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("upload failed: %w", err)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("upload failed with status: %s", resp.Status)

		// 4xx will not get better on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return lastErr
		}
	}

	return fmt.Errorf("upload failed after %d attempts: %w", attempts, lastErr)
}

type progressReader struct {
	reader    io.Reader
	bytesRead int64
	callback  ProgressFunc
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.reader.Read(b)
	pr.bytesRead += int64(n)
	if n > 0 {
		pr.callback(pr.bytesRead)
	}
	return n, err
}

// Package client talks to the songbook JSON API and keeps a client-side
// cache of the song list.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/api"
)

// APIError is a non-2xx API response. Message is the server's message verbatim.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Client is a typed client for the /api routes
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends token as a bearer session on every API call
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:3000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSongs fetches every song, newest first
func (c *Client) ListSongs(ctx context.Context) ([]*songbook.Song, error) {
	var resp api.SongListResponse
	if err := c.do(ctx, http.MethodGet, "/api/songs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Songs, nil
}

// GetSong fetches one song
func (c *Client) GetSong(ctx context.Context, id string) (*songbook.Song, error) {
	var resp api.SongResponse
	if err := c.do(ctx, http.MethodGet, "/api/songs/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Song, nil
}

// CreateSong creates a song. Requires an admin token.
func (c *Client) CreateSong(ctx context.Context, req api.CreateSongRequest) (*songbook.Song, error) {
	var resp api.SongResponse
	if err := c.do(ctx, http.MethodPost, "/api/songs", req, &resp); err != nil {
		return nil, err
	}
	return resp.Song, nil
}

// UpdateSong applies a partial update. Requires an admin token.
func (c *Client) UpdateSong(ctx context.Context, id string, req api.UpdateSongRequest) (*songbook.Song, error) {
	var resp api.SongResponse
	if err := c.do(ctx, http.MethodPut, "/api/songs/"+url.PathEscape(id), req, &resp); err != nil {
		return nil, err
	}
	return resp.Song, nil
}

// DeleteSong removes a song. Requires an admin token.
func (c *Client) DeleteSong(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/songs/"+url.PathEscape(id), nil, nil)
}

// PresignUpload asks for an upload URL for a file of the given kind
func (c *Client) PresignUpload(ctx context.Context, kind songbook.MediaKind, filename, contentType string) (*songbook.PresignedUpload, error) {
	req := api.PresignUploadRequest{
		Filename:    filename,
		ContentType: contentType,
		FieldType:   string(kind),
	}
	var resp songbook.PresignedUpload
	if err := c.do(ctx, http.MethodPost, "/api/upload/presigned-url", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PresignDownload asks for a download URL for key
func (c *Client) PresignDownload(ctx context.Context, key string, variant songbook.DownloadVariant) (string, error) {
	q := url.Values{"key": {key}}
	if variant != songbook.DownloadVariantDefault {
		q.Set("variant", string(variant))
	}
	var resp api.URLResponse
	if err := c.do(ctx, http.MethodGet, "/api/media/presigned-url?"+q.Encode(), nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Orphans fetches the blob keys the server failed to delete
func (c *Client) Orphans(ctx context.Context) ([]songbook.Orphan, error) {
	var resp api.OrphanListResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/orphans", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orphans, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body api.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

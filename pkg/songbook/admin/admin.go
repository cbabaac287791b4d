// Package admin computes operational statistics over the song catalog.
//
// Statistics are derived from a full listing, so any song source works: the
// repository inside the server, the service, or the HTTP client in tools.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/songbook/pkg/songbook"
)

// SongLister is the read side needed for statistics
type SongLister interface {
	ListSongs(ctx context.Context) ([]*songbook.Song, error)
}

// CatalogStatistics provides aggregated statistics about the catalog
type CatalogStatistics struct {
	TotalCount int64 `json:"totalCount"`

	// ByMedia counts songs that have a key set for each media kind
	ByMedia map[songbook.MediaKind]int64 `json:"byMedia"`

	WithoutLyrics        int64 `json:"withoutLyrics"`
	WithoutMedia         int64 `json:"withoutMedia"`
	MissingMetadataImage int64 `json:"missingMetadataImage"`

	OldestSong *time.Time `json:"oldestSong,omitempty"`
	NewestSong *time.Time `json:"newestSong,omitempty"`
	LastUpdate *time.Time `json:"lastUpdate,omitempty"`
}

// Service computes catalog statistics
type Service struct {
	songs SongLister
}

// New creates a statistics service over songs
func New(songs SongLister) *Service {
	return &Service{songs: songs}
}

// Statistics lists every song and aggregates the result
func (s *Service) Statistics(ctx context.Context) (*CatalogStatistics, error) {
	songs, err := s.songs.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return Summarize(songs), nil
}

// Summarize aggregates statistics for songs
func Summarize(songs []*songbook.Song) *CatalogStatistics {
	stats := &CatalogStatistics{
		ByMedia: make(map[songbook.MediaKind]int64, len(songbook.MediaKinds)),
	}
	for _, kind := range songbook.MediaKinds {
		stats.ByMedia[kind] = 0
	}

	for _, song := range songs {
		if song == nil {
			continue
		}
		stats.TotalCount++

		if strings.TrimSpace(song.Lyrics) == "" {
			stats.WithoutLyrics++
		}

		hasMedia := false
		for _, kind := range songbook.MediaKinds {
			if song.MediaKey(kind) != "" {
				stats.ByMedia[kind]++
				hasMedia = true
			}
		}
		if !hasMedia {
			stats.WithoutMedia++
		}
		if song.MetadataImageKey == "" {
			stats.MissingMetadataImage++
		}

		stats.OldestSong = earliest(stats.OldestSong, song.CreatedAt)
		stats.NewestSong = latest(stats.NewestSong, song.CreatedAt)
		stats.LastUpdate = latest(stats.LastUpdate, song.UpdatedAt)
	}

	return stats
}

func earliest(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.Before(*cur) {
		return &t
	}
	return cur
}

func latest(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.After(*cur) {
		return &t
	}
	return cur
}

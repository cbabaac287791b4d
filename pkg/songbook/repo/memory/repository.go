package memory

import (
	"context"
	"sync"

	"github.com/tendant/songbook/pkg/songbook"
)

// Repository implements songbook.Repository using in-memory storage
type Repository struct {
	mu    sync.RWMutex
	songs map[string]*songbook.Song
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		songs: make(map[string]*songbook.Song),
	}
}

func (r *Repository) ListSongs(ctx context.Context) ([]*songbook.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*songbook.Song, 0, len(r.songs))
	for _, song := range r.songs {
		songCopy := *song
		result = append(result, &songCopy)
	}
	return result, nil
}

func (r *Repository) GetSong(ctx context.Context, id string) (*songbook.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	song, exists := r.songs[id]
	if !exists {
		return nil, nil
	}

	// Return a copy to prevent external modifications
	songCopy := *song
	return &songCopy, nil
}

func (r *Repository) CreateSong(ctx context.Context, song *songbook.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.songs[song.ID]; exists {
		return songbook.ErrSongExists
	}

	songCopy := *song
	r.songs[song.ID] = &songCopy
	return nil
}

func (r *Repository) UpdateSong(ctx context.Context, id string, patch songbook.SongPatch) (*songbook.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	song, exists := r.songs[id]
	if !exists {
		return nil, songbook.ErrSongNotFound
	}

	patch.Apply(song)
	songCopy := *song
	return &songCopy, nil
}

func (r *Repository) DeleteSong(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.songs, id)
	return nil
}

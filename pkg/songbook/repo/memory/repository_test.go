package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/repo/memory"
)

func newSong(title string) *songbook.Song {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &songbook.Song{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryRepository_SongOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("CreateSong", func(t *testing.T) {
		err := repo.CreateSong(ctx, newSong("Paranauê"))
		assert.NoError(t, err)
	})

	t.Run("CreateSong_Duplicate", func(t *testing.T) {
		song := newSong("Duplicate")
		require.NoError(t, repo.CreateSong(ctx, song))

		err := repo.CreateSong(ctx, song)
		assert.ErrorIs(t, err, songbook.ErrSongExists)
	})

	t.Run("GetSong", func(t *testing.T) {
		song := newSong("Zum Zum Zum")
		song.Lyrics = "Zum zum zum, capoeira mata um"
		song.AudioKey = "audio/1-zum.mp3"
		require.NoError(t, repo.CreateSong(ctx, song))

		retrieved, err := repo.GetSong(ctx, song.ID)
		require.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, *song, *retrieved)
	})

	t.Run("GetSong_NotFound", func(t *testing.T) {
		song, err := repo.GetSong(ctx, uuid.New().String())
		assert.NoError(t, err)
		assert.Nil(t, song)
	})

	t.Run("GetSong_ReturnsCopy", func(t *testing.T) {
		song := newSong("Original")
		require.NoError(t, repo.CreateSong(ctx, song))

		retrieved, err := repo.GetSong(ctx, song.ID)
		require.NoError(t, err)
		retrieved.Title = "Mutated"

		again, err := repo.GetSong(ctx, song.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", again.Title)
	})

	t.Run("UpdateSong_Partial", func(t *testing.T) {
		song := newSong("Sim Sim Sim")
		song.Lyrics = "old"
		song.VideoKey = "videos/1-roda.mp4"
		require.NoError(t, repo.CreateSong(ctx, song))

		later := song.UpdatedAt.Add(time.Second)
		updated, err := repo.UpdateSong(ctx, song.ID, songbook.SongPatch{
			Lyrics:    songbook.String("new"),
			UpdatedAt: later,
		})
		require.NoError(t, err)
		assert.Equal(t, "Sim Sim Sim", updated.Title)
		assert.Equal(t, "new", updated.Lyrics)
		assert.Equal(t, "videos/1-roda.mp4", updated.VideoKey)
		assert.Equal(t, song.CreatedAt, updated.CreatedAt)
		assert.Equal(t, later, updated.UpdatedAt)
	})

	t.Run("UpdateSong_ClearKey", func(t *testing.T) {
		song := newSong("Clear")
		song.ImageKey = "images/1-a.png"
		require.NoError(t, repo.CreateSong(ctx, song))

		updated, err := repo.UpdateSong(ctx, song.ID, songbook.SongPatch{
			ImageKey:  songbook.String(""),
			UpdatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Empty(t, updated.ImageKey)
	})

	t.Run("UpdateSong_NotFound", func(t *testing.T) {
		_, err := repo.UpdateSong(ctx, uuid.New().String(), songbook.SongPatch{Title: songbook.String("x")})
		assert.ErrorIs(t, err, songbook.ErrSongNotFound)
	})

	t.Run("DeleteSong", func(t *testing.T) {
		song := newSong("Delete me")
		require.NoError(t, repo.CreateSong(ctx, song))

		require.NoError(t, repo.DeleteSong(ctx, song.ID))

		retrieved, err := repo.GetSong(ctx, song.ID)
		assert.NoError(t, err)
		assert.Nil(t, retrieved)
	})

	t.Run("DeleteSong_Idempotent", func(t *testing.T) {
		assert.NoError(t, repo.DeleteSong(ctx, uuid.New().String()))
	})
}

func TestMemoryRepository_ListSongs(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	songs, err := repo.ListSongs(ctx)
	require.NoError(t, err)
	assert.Empty(t, songs)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateSong(ctx, newSong(fmt.Sprintf("Song %d", i))))
	}

	songs, err = repo.ListSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 3)
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			song := newSong(fmt.Sprintf("Song %d", i))
			assert.NoError(t, repo.CreateSong(ctx, song))
			_, err := repo.UpdateSong(ctx, song.ID, songbook.SongPatch{Lyrics: songbook.String("la"), UpdatedAt: time.Now().UTC()})
			assert.NoError(t, err)
			_, err = repo.ListSongs(ctx)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	songs, err := repo.ListSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 20)
}

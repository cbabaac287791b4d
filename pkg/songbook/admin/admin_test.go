package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/repo/memory"
)

type failingLister struct{}

func (failingLister) ListSongs(ctx context.Context) ([]*songbook.Song, error) {
	return nil, errors.New("table unavailable")
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil)

	assert.Zero(t, stats.TotalCount)
	assert.Nil(t, stats.OldestSong)
	assert.Nil(t, stats.NewestSong)
	assert.Len(t, stats.ByMedia, len(songbook.MediaKinds))
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	base := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

	songs := []*songbook.Song{
		{ID: "a", Title: "Paranauê", Lyrics: "Paranauê, paraná", AudioKey: "audio/1-a.mp3", MetadataImageKey: "metadata-images/1-a.jpg",
			CreatedAt: base, UpdatedAt: base.Add(48 * time.Hour)},
		{ID: "b", Title: "Zum zum zum", VideoKey: "videos/2-b.mp4", ImageKey: "images/2-b.png",
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: "c", Title: "Sou eu", Lyrics: "   ",
			CreatedAt: base.Add(-time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
	}
	for _, s := range songs {
		require.NoError(t, repo.CreateSong(ctx, s))
	}

	stats, err := New(repo).Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalCount)
	assert.Equal(t, int64(1), stats.ByMedia[songbook.MediaKindAudio])
	assert.Equal(t, int64(1), stats.ByMedia[songbook.MediaKindVideo])
	assert.Equal(t, int64(1), stats.ByMedia[songbook.MediaKindImage])
	assert.Equal(t, int64(1), stats.ByMedia[songbook.MediaKindMetadataImage])
	assert.Equal(t, int64(2), stats.WithoutLyrics)
	assert.Equal(t, int64(1), stats.WithoutMedia)
	assert.Equal(t, int64(2), stats.MissingMetadataImage)

	require.NotNil(t, stats.OldestSong)
	assert.True(t, stats.OldestSong.Equal(base.Add(-time.Hour)))
	require.NotNil(t, stats.NewestSong)
	assert.True(t, stats.NewestSong.Equal(base.Add(time.Hour)))
	require.NotNil(t, stats.LastUpdate)
	assert.True(t, stats.LastUpdate.Equal(base.Add(48*time.Hour)))
}

func TestStatistics_ListError(t *testing.T) {
	_, err := New(failingLister{}).Statistics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table unavailable")
}

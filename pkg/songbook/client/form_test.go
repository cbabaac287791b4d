package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/songbook/pkg/songbook"
)

func TestEditForm(t *testing.T) {
	song := &songbook.Song{
		ID:       "s1",
		Title:    "Roda",
		AudioKey: "audio/1-a.mp3",
		ImageKey: "images/1-a.png",
	}

	t.Run("untouched form sends nothing", func(t *testing.T) {
		req := NewEditForm(song).Request()
		assert.Nil(t, req.Title)
		assert.Nil(t, req.AudioKey)
		assert.Empty(t, req.FilesToDelete)
	})

	t.Run("replace queues the stored key", func(t *testing.T) {
		form := NewEditForm(song)
		form.SetTitle("Roda nova")
		form.ReplaceMedia(songbook.MediaKindAudio, "audio/2-b.mp3")

		req := form.Request()
		require.NotNil(t, req.Title)
		assert.Equal(t, "Roda nova", *req.Title)
		require.NotNil(t, req.AudioKey)
		assert.Equal(t, "audio/2-b.mp3", *req.AudioKey)
		assert.Equal(t, []string{"audio/1-a.mp3"}, req.FilesToDelete)
	})

	t.Run("second replace queues the first upload", func(t *testing.T) {
		form := NewEditForm(song)
		form.ReplaceMedia(songbook.MediaKindImage, "images/2-b.png")
		form.ReplaceMedia(songbook.MediaKindImage, "images/3-c.png")

		req := form.Request()
		assert.Equal(t, "images/3-c.png", *req.ImageKey)
		assert.Equal(t, []string{"images/1-a.png", "images/2-b.png"}, req.FilesToDelete)
	})

	t.Run("remove clears the key", func(t *testing.T) {
		form := NewEditForm(song)
		form.RemoveMedia(songbook.MediaKindAudio)
		form.RemoveMedia(songbook.MediaKindAudio)

		req := form.Request()
		require.NotNil(t, req.AudioKey)
		assert.Equal(t, "", *req.AudioKey)
		assert.Equal(t, []string{"audio/1-a.mp3"}, req.FilesToDelete)
	})

	t.Run("adding media to an empty slot queues nothing", func(t *testing.T) {
		form := NewEditForm(song)
		form.ReplaceMedia(songbook.MediaKindVideo, "videos/1-a.mp4")

		req := form.Request()
		assert.Equal(t, "videos/1-a.mp4", *req.VideoKey)
		assert.Empty(t, req.FilesToDelete)
	})
}

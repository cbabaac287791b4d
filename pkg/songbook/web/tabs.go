package web

import "github.com/tendant/songbook/pkg/songbook"

// Tab is a media tab on the song detail page
type Tab string

const (
	TabSong  Tab = "song"
	TabVideo Tab = "video"
)

// MediaTabs is the song/video toggle of the detail page. The video tab is
// active initially only when there is no audio but there is a video.
type MediaTabs struct {
	song   *songbook.Song
	active Tab
}

func NewMediaTabs(song *songbook.Song) *MediaTabs {
	active := TabSong
	if !song.HasMedia(songbook.MediaKindAudio) && song.HasMedia(songbook.MediaKindVideo) {
		active = TabVideo
	}
	return &MediaTabs{song: song, active: active}
}

func (t *MediaTabs) Active() Tab {
	return t.active
}

// Available reports whether tab has media to show
func (t *MediaTabs) Available(tab Tab) bool {
	switch tab {
	case TabSong:
		return t.song.HasMedia(songbook.MediaKindAudio)
	case TabVideo:
		return t.song.HasMedia(songbook.MediaKindVideo)
	}
	return false
}

// Visible reports whether the toggle is shown at all
func (t *MediaTabs) Visible() bool {
	return t.Available(TabSong) || t.Available(TabVideo)
}

// Select switches to tab. Selecting a tab without media is ignored.
func (t *MediaTabs) Select(tab Tab) bool {
	if !t.Available(tab) {
		return false
	}
	t.active = tab
	return true
}

// ShowAudio reports whether the audio player is rendered
func (t *MediaTabs) ShowAudio() bool {
	return t.active == TabSong && t.Available(TabSong)
}

// ShowVideo reports whether the video player is rendered
func (t *MediaTabs) ShowVideo() bool {
	return t.active == TabVideo && t.Available(TabVideo)
}

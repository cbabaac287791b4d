package objectkey

import (
	"regexp"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		kind     string
		filename string
		expected string
	}{
		{
			name:     "audio",
			kind:     "audio",
			filename: "roda.mp3",
			expected: "audio/1700000000123-roda.mp3",
		},
		{
			name:     "video uses plural prefix",
			kind:     "video",
			filename: "roda.mp4",
			expected: "videos/1700000000123-roda.mp4",
		},
		{
			name:     "image with spaces and punctuation",
			kind:     "image",
			filename: "My Photo!.PNG",
			expected: "images/1700000000123-My_Photo_.PNG",
		},
		{
			name:     "metadata image",
			kind:     "metadata-image",
			filename: "og-cover.jpg",
			expected: "metadata-images/1700000000123-og-cover.jpg",
		},
		{
			name:     "non ascii characters",
			kind:     "audio",
			filename: "Paranauê (ao vivo).mp3",
			expected: "audio/1700000000123-Paranau___ao_vivo_.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Generate(tt.kind, tt.filename, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	if _, err := Generate("document", "a.pdf", time.Now()); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTimestampGenerator(t *testing.T) {
	gen := NewTimestampGenerator()

	key, err := gen.GenerateKey("image", "My Photo!.PNG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pattern := regexp.MustCompile(`^images/\d+-My_Photo_\.PNG$`)
	if !pattern.MatchString(key) {
		t.Errorf("key %s does not match %s", key, pattern)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple.txt", "simple.txt"},
		{"a-b.c", "a-b.c"},
		{"file with spaces.txt", "file_with_spaces.txt"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"Paranauê.mp3", "Paranau_.mp3"},
		{"roda🎵.png", "roda_.png"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

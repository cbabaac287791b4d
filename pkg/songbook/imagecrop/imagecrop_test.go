package imagecrop

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterCropRect(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{"wide", image.Rect(0, 0, 2000, 1000), image.Rect(45, 0, 1955, 1000)},
		{"tall", image.Rect(0, 0, 1000, 2000), image.Rect(0, 738, 1000, 1262)},
		{"exact", image.Rect(0, 0, 1910, 1000), image.Rect(0, 0, 1910, 1000)},
		{"offset origin", image.Rect(10, 10, 2010, 1010), image.Rect(55, 10, 1965, 1010)},
		{"empty", image.Rect(0, 0, 0, 0), image.Rect(0, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CenterCropRect(tt.bounds, Aspect))
		})
	}
}

func TestCropToAspect(t *testing.T) {
	// left and right bands are cropped away from a 400x100 image
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	for x := 0; x < 400; x++ {
		c := color.RGBA{G: 255, A: 255}
		if x < 50 || x >= 350 {
			c = color.RGBA{R: 255, A: 255}
		}
		for y := 0; y < 100; y++ {
			src.Set(x, y, c)
		}
	}

	out := CropToAspect(src)
	assert.Equal(t, image.Rect(0, 0, TargetWidth, TargetHeight), out.Bounds())

	r, g, _, _ := out.At(TargetWidth/2, TargetHeight/2).RGBA()
	assert.Zero(t, r>>8)
	assert.Equal(t, uint32(255), g>>8)
}

func TestProcess(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, image.NewRGBA(image.Rect(0, 0, 640, 480))))

	out, err := Process(&in)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, TargetWidth, cfg.Width)
	assert.Equal(t, TargetHeight, cfg.Height)
}

func TestProcess_NotAnImage(t *testing.T) {
	_, err := Process(strings.NewReader("definitely not pixels"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode image")
}

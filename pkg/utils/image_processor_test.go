package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestProcessImage_ResizesWideImages(t *testing.T) {
	data, contentType, err := ProcessImage(pngOf(t, 2400, 100))
	require.NoError(t, err)
	assert.Contains(t, []string{"image/webp", "image/jpeg"}, contentType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, MaxImageWidth, cfg.Width)
}

func TestProcessImage_KeepsSmallImages(t *testing.T) {
	data, _, err := ProcessImage(pngOf(t, 300, 200))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestProcessImage_RejectsGarbage(t *testing.T) {
	_, _, err := ProcessImage(strings.NewReader("definitely not a picture"))
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.False(t, IsImage("application/pdf"))
}

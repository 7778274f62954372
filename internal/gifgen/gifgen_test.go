package gifgen

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFrame(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRecorderEncode(t *testing.T) {
	r := NewRecorder(Options{FrameDelay: 500 * time.Millisecond, MaxWidth: 40})
	require.NoError(t, r.Add(pngFrame(t, 80, 60, color.RGBA{255, 0, 0, 255})))
	require.NoError(t, r.Add(pngFrame(t, 80, 60, color.RGBA{0, 0, 255, 255})))
	assert.Equal(t, 2, r.Len())

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))

	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	require.Len(t, g.Image, 2)
	assert.Equal(t, 40, g.Image[0].Bounds().Dx())
	assert.Equal(t, 30, g.Image[0].Bounds().Dy())
	assert.Equal(t, []int{50, 150}, g.Delay)
}

func TestRecorderDoesNotUpscale(t *testing.T) {
	r := NewRecorder(Options{})
	require.NoError(t, r.Add(pngFrame(t, 10, 5, color.White)))

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))
	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Equal(t, 10, g.Image[0].Bounds().Dx())
	assert.Equal(t, []int{300}, g.Delay)
}

func TestRecorderErrors(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	assert.Error(t, r.Add([]byte("not an image")))
	assert.Error(t, r.Encode(&bytes.Buffer{}))
}

func TestRecorderSave(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	require.NoError(t, r.Add(pngFrame(t, 8, 8, color.Black)))

	size, err := r.Save(filepath.Join(t.TempDir(), "run.gif"))
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestGeneratePalette(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	p := generatePalette([]image.Image{img})
	assert.Len(t, p, 256)
	assert.Equal(t, color.RGBA{0, 0, 0, 0}, p[0])
}

// Package gifgen turns the screenshots taken during a fill into an animated
// GIF so a run can be reviewed afterwards.
package gifgen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/png"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/nfnt/resize"
)

// Options configures GIF generation
type Options struct {
	FrameDelay time.Duration
	MaxWidth   uint
}

// DefaultOptions shows each frame for a second at up to 800px wide
func DefaultOptions() Options {
	return Options{FrameDelay: time.Second, MaxWidth: 800}
}

// Recorder collects frames. Safe for concurrent use.
type Recorder struct {
	opts Options

	mu     sync.Mutex
	frames []image.Image
}

// NewRecorder creates an empty recorder
func NewRecorder(opts Options) *Recorder {
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = time.Second
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = 800
	}
	return &Recorder{opts: opts}
}

// Add decodes an encoded screenshot and appends it as a frame
func (r *Recorder) Add(screenshot []byte) error {
	img, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, img)
	return nil
}

// Len returns the number of frames recorded so far
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Encode writes the frames as a looping GIF
func (r *Recorder) Encode(w io.Writer) error {
	r.mu.Lock()
	frames := append([]image.Image(nil), r.frames...)
	r.mu.Unlock()

	if len(frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}

	width, height := outputSize(frames[0].Bounds(), r.opts.MaxWidth)
	resized := make([]image.Image, len(frames))
	for i, frame := range frames {
		resized[i] = resize.Resize(width, height, frame, resize.Lanczos3)
	}

	palette := generatePalette(resized)
	delay := int(r.opts.FrameDelay / (10 * time.Millisecond))

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(resized)),
		Delay:     make([]int, len(resized)),
		LoopCount: 0,
	}
	for i, frame := range resized {
		paletted := image.NewPaletted(frame.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, frame.Bounds().Min)
		g.Image[i] = paletted
		g.Delay[i] = delay
	}
	// Hold the last frame a little longer
	g.Delay[len(g.Delay)-1] = delay * 3

	return gif.EncodeAll(w, g)
}

// Save writes the GIF to path and returns its size in bytes
func (r *Recorder) Save(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := r.Encode(f); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// outputSize scales down to maxWidth keeping the aspect ratio. Frames are
// never scaled up.
func outputSize(b image.Rectangle, maxWidth uint) (uint, uint) {
	width := uint(b.Dx())
	if width > maxWidth {
		width = maxWidth
	}
	height := uint(float64(width) * float64(b.Dy()) / float64(b.Dx()))
	if height == 0 {
		height = 1
	}
	return width, height
}

// generatePalette keeps the 255 most frequent colors sampled across every
// frame, plus transparency
func generatePalette(frames []image.Image) color.Palette {
	counts := make(map[color.RGBA]int)
	for _, img := range frames {
		b := img.Bounds()
		step := 4
		for y := b.Min.Y; y < b.Max.Y; y += step {
			for x := b.Min.X; x < b.Max.X; x += step {
				r, g, bl, a := img.At(x, y).RGBA()
				counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: uint8(a >> 8)}]++
			}
		}
	}

	colors := make([]color.RGBA, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		a, b := colors[i], colors[j]
		return uint32(a.R)<<24|uint32(a.G)<<16|uint32(a.B)<<8|uint32(a.A) <
			uint32(b.R)<<24|uint32(b.G)<<16|uint32(b.B)<<8|uint32(b.A)
	})

	palette := make(color.Palette, 0, 256)
	palette = append(palette, color.RGBA{0, 0, 0, 0})
	for _, c := range colors {
		if len(palette) == 256 {
			break
		}
		palette = append(palette, c)
	}
	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}

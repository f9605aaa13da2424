// Package source provides frame sources for the streamer.
package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"

	"github.com/bft-labs/frameship/internal/domain"
)

// PatternConfig configures the synthetic test-pattern source.
type PatternConfig struct {
	Width   int
	Height  int
	Quality int // JPEG quality, 1-100
}

// DefaultPatternConfig returns QVGA frames at quality 60.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{Width: 320, Height: 240, Quality: 60}
}

// PatternSource produces JPEG color bars with a sweeping marker so
// consecutive frames differ. It stands in for a camera in development and
// on hosts without capture hardware.
type PatternSource struct {
	cfg     PatternConfig
	quality atomic.Int32
	img     *image.RGBA
	buf     bytes.Buffer
	seq     int
	held    bool
	clock   func() int64
}

// NewPatternSource creates a pattern source. clock supplies frame timestamps
// in microseconds and may be nil.
func NewPatternSource(cfg PatternConfig, clock func() int64) (*PatternSource, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: pattern size %dx%d", domain.ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d", domain.ErrInvalidConfig, cfg.Quality)
	}
	p := &PatternSource{
		cfg:   cfg,
		img:   image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
		clock: clock,
	}
	p.quality.Store(int32(cfg.Quality))
	return p, nil
}

// SetQuality changes the JPEG quality of subsequent frames.
// Safe to call while the producer is acquiring.
func (p *PatternSource) SetQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return fmt.Errorf("%w: jpeg quality %d", domain.ErrInvalidConfig, quality)
	}
	p.quality.Store(int32(quality))
	return nil
}

// Quality returns the current JPEG quality.
func (p *PatternSource) Quality() int {
	return int(p.quality.Load())
}

var bars = []color.RGBA{
	{0xC0, 0xC0, 0xC0, 0xFF},
	{0xC0, 0xC0, 0x00, 0xFF},
	{0x00, 0xC0, 0xC0, 0xFF},
	{0x00, 0xC0, 0x00, 0xFF},
	{0xC0, 0x00, 0xC0, 0xFF},
	{0xC0, 0x00, 0x00, 0xFF},
	{0x00, 0x00, 0xC0, 0xFF},
}

// Acquire renders and encodes the next frame. The returned view aliases an
// internal buffer that is reused by the next Acquire.
func (p *PatternSource) Acquire(ctx context.Context) (domain.FrameView, error) {
	if err := ctx.Err(); err != nil {
		return domain.FrameView{}, err
	}
	p.held = true

	w, h := p.cfg.Width, p.cfg.Height
	barW := (w + len(bars) - 1) / len(bars)
	marker := p.seq % w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bars[x/barW]
			if x >= marker && x < marker+4 {
				c = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
			}
			p.img.SetRGBA(x, y, c)
		}
	}
	p.seq += 4

	p.buf.Reset()
	if err := jpeg.Encode(&p.buf, p.img, &jpeg.Options{Quality: p.Quality()}); err != nil {
		return domain.FrameView{}, fmt.Errorf("%w: %v", domain.ErrCaptureFailed, err)
	}

	var ts int64
	if p.clock != nil {
		ts = p.clock()
	}
	return domain.FrameView{
		Data:      p.buf.Bytes(),
		Width:     w,
		Height:    h,
		Timestamp: ts,
	}, nil
}

// Release returns the frame buffer to the source.
func (p *PatternSource) Release() {
	p.held = false
}

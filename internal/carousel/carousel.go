// Package carousel drives a horizontally auto-scrolling strip of tiles.
package carousel

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultInterval = 20 * time.Millisecond
	DefaultStep     = 1.0
)

// Carousel holds the scroll offset of one mounted strip. It is safe for
// concurrent use: the ticker advances it while pointer events toggle the
// hover state.
type Carousel struct {
	mu       sync.Mutex
	offset   float64
	hovered  bool
	content  float64
	viewport float64
	step     float64
	interval time.Duration
}

type Option func(*Carousel)

func WithStep(px float64) Option {
	return func(c *Carousel) {
		if px > 0 {
			c.step = px
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(c *Carousel) {
		if d > 0 {
			c.interval = d
		}
	}
}

func New(contentWidth, viewportWidth float64, opts ...Option) *Carousel {
	c := &Carousel{
		content:  contentWidth,
		viewport: viewportWidth,
		step:     DefaultStep,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// limit is the largest reachable offset; a strip narrower than its
// viewport never scrolls.
func (c *Carousel) limit() float64 {
	return max(0, c.content-c.viewport)
}

// Tick advances the offset by one step unless hovered. Reaching the end
// jumps back to 0.
func (c *Carousel) Tick() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hovered {
		return c.offset
	}
	limit := c.limit()
	if limit == 0 {
		c.offset = 0
		return 0
	}
	c.offset += c.step
	if c.offset >= limit {
		c.offset = 0
	}
	return c.offset
}

func (c *Carousel) SetHovered(hovered bool) {
	c.mu.Lock()
	c.hovered = hovered
	c.mu.Unlock()
}

func (c *Carousel) Hovered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hovered
}

func (c *Carousel) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Resize updates the measured widths and pulls the offset back in range.
func (c *Carousel) Resize(contentWidth, viewportWidth float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.content = contentWidth
	c.viewport = viewportWidth
	if limit := c.limit(); c.offset > limit {
		c.offset = limit
	}
}

// Run ticks until ctx is done, calling emit whenever the offset moves.
// The ticker is released on return.
func (c *Carousel) Run(ctx context.Context, emit func(offset float64) error) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	last := c.Offset()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			offset := c.Tick()
			if offset == last {
				continue
			}
			last = offset
			if err := emit(offset); err != nil {
				return err
			}
		}
	}
}

package delivery

import (
	"sync"
	"time"
)

// DefaultFrameInterval is the pacing delay between consecutive stream
// frames.
const DefaultFrameInterval = time.Second

// StreamClock drives a live position stream. Each tick targets wall-clock
// "now" plus an internally held offset that a controlling client may
// rewind or fast-forward; pausing suspends frame advancement without
// closing the stream.
type StreamClock struct {
	mu     sync.RWMutex
	tick   time.Duration
	offset time.Duration
	paused bool
	now    func() time.Time
}

// NewStreamClock constructs a clock ticking at the given interval; zero or
// negative uses DefaultFrameInterval.
func NewStreamClock(tick time.Duration) *StreamClock {
	if tick <= 0 {
		tick = DefaultFrameInterval
	}
	return &StreamClock{tick: tick, now: time.Now}
}

// Tick returns the frame interval.
func (c *StreamClock) Tick() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// Pause suspends frame advancement.
func (c *StreamClock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume re-enables frame advancement.
func (c *StreamClock) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the clock is paused.
func (c *StreamClock) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// JumpTo sets the offset applied to wall-clock time for subsequent frames.
func (c *StreamClock) JumpTo(offset time.Duration) {
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}

// Offset returns the current time offset.
func (c *StreamClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Target returns the propagation target time for the next frame.
func (c *StreamClock) Target() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Add(c.offset)
}

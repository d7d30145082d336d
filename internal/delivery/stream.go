package delivery

import (
	"context"
	"time"

	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/model"
)

// Frame is one instant of a position stream: a timestamp plus the full
// per-satellite sample batch for that instant.
type Frame struct {
	Timestamp     time.Time              `json:"timestamp"`
	TimeOffsetSec float64                `json:"time_offset_seconds"`
	Count         int                    `json:"count"`
	Positions     []model.PositionSample `json:"positions"`
}

// FrameSink receives stream frames. Returning an error stops the stream;
// transports return the connection write error here.
type FrameSink func(Frame) error

// StreamFrames emits one frame per step at simulated offsets t = 0, step,
// 2*step, ... while t < duration, pacing each frame with a real-time delay
// so a slow consumer is not flooded. The sequence is finite and
// non-restartable; ctx cancellation or a sink error ends it early.
func (c *Coordinator) StreamFrames(ctx context.Context, scenarioID string, duration, step time.Duration, frameDelay time.Duration, sink FrameSink) error {
	if step <= 0 {
		step = time.Second
	}
	if frameDelay <= 0 {
		frameDelay = DefaultFrameInterval
	}

	sats, err := c.registry.Materialize(ctx, scenarioID)
	if err != nil {
		return err
	}

	base := c.now()
	frames := 0
	for offset := time.Duration(0); offset < duration; offset += step {
		target := base.Add(offset)
		samples := c.propagateBatch(scenarioID, sats, target)
		if err := sink(Frame{
			Timestamp:     target,
			TimeOffsetSec: offset.Seconds(),
			Count:         len(samples),
			Positions:     samples,
		}); err != nil {
			return err
		}
		frames++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(frameDelay):
		}
	}

	c.log.Info(ctx, "bounded stream finished",
		logging.String("scenario_id", scenarioID),
		logging.Int("frames", frames),
	)
	return nil
}

// StreamLive emits frames indefinitely at the clock's tick rate, targeting
// wall-clock now plus the clock's controllable offset. While the clock is
// paused no frames are emitted. The stream runs until ctx is cancelled
// (the consuming connection closed) or the sink reports an error.
func (c *Coordinator) StreamLive(ctx context.Context, scenarioID string, clock *StreamClock, sink FrameSink) error {
	if clock == nil {
		clock = NewStreamClock(0)
	}

	sats, err := c.registry.Materialize(ctx, scenarioID)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(clock.Tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if clock.Paused() {
			continue
		}

		target := clock.Target()
		samples := c.propagateBatch(scenarioID, sats, target)
		if err := sink(Frame{
			Timestamp:     target,
			TimeOffsetSec: clock.Offset().Seconds(),
			Count:         len(samples),
			Positions:     samples,
		}); err != nil {
			return err
		}
	}
}

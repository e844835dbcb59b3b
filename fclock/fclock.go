// Package fclock implements the wrap-safe microsecond frame clock shared by
// the Master and Slave endpoints: a free-running frame boundary that
// advances by a fixed period and can be compared against a wrapping
// hardware microsecond counter without special-casing the wraparound at
// 2^32.
package fclock

// Now returns the current value of a free-running microsecond counter. It
// wraps at 2^32, mirroring a typical MCU micros() call. Production code
// supplies this; tests supply a fake.
type Now func() uint32

// Clock is the frame boundary timer shared by both endpoints. The zero
// value is usable once MicrosPerFrame is set and FrameTimeEnd has been
// primed with a first target via Advance.
type Clock struct {
	MicrosPerFrame  uint32 // derived from the configured frame rate
	FrameTimeEnd    uint32 // microsecond timestamp at which the current frame ends
	IsOverflowFrame bool   // true if FrameTimeEnd wrapped past 2^32 when it was last set
}

// NewClock returns a Clock configured for the given frame rate in Hz. The
// rate is the caller's responsibility to clamp to [10, 120] (master.New and
// slave.New do); this constructor does not re-validate it.
func NewClock(frameRate uint8) *Clock {
	return &Clock{MicrosPerFrame: 1_000_000 / uint32(frameRate)}
}

// SetNext sets the next frame boundary directly, recording whether it
// wrapped past 2^32 relative to the current one. Plain Advance is the
// common case; the Slave's drift-aware sync engine calls SetNext directly
// with a boundary nudged by the observed drift.
func (c *Clock) SetNext(newEnd uint32) {
	c.IsOverflowFrame = newEnd < c.FrameTimeEnd
	c.FrameTimeEnd = newEnd
}

// Advance pushes FrameTimeEnd exactly one frame period into the future.
func (c *Clock) Advance() {
	c.SetNext(c.FrameTimeEnd + c.MicrosPerFrame)
}

// Ready reports whether now has reached the current frame boundary. It does
// not advance the clock; callers that are ready must call Advance (or, on
// the Slave, a drift-aware equivalent) themselves. In an overflow frame
// both sides of the comparison are biased by 2^31 so that a counter which
// wrapped since FrameTimeEnd was set still compares correctly.
func (c *Clock) Ready(now uint32) bool {
	ts := now
	end := c.FrameTimeEnd
	if c.IsOverflowFrame {
		ts -= 0x8000_0000
		end -= 0x8000_0000
	}
	return ts >= end
}

// IsFrameReady reports whether now has reached the current frame boundary,
// advancing to the next boundary exactly once when it has. This is the
// combined Ready+Advance used by the Master, which has no drift correction;
// the Slave's sync engine calls Ready and then its own drift-aware advance.
func (c *Clock) IsFrameReady(now uint32) bool {
	if c.Ready(now) {
		c.Advance()
		return true
	}
	return false
}

package slave

import (
	"sync/atomic"

	"github.com/tve/frhop/fclock"
	"github.com/tve/frhop/internal/evtrace"
)

// syncClock wraps a fclock.Clock with the Slave's drift-tracking advance
// (spec §4.1 "Slave variant"). The interrupt-timestamp handoff from the
// goroutine that watches the radio's RX-done edge is a lock-free
// single-producer/single-consumer flag (spec §9): the producer stores the
// timestamp, then publishes it with an atomic.Bool; the consumer (advance)
// reads the flag last, same ordering spec.md's "published after its
// timestamp" invariant describes, which sync/atomic's sequential
// consistency gives for free without a mutex.
type syncClock struct {
	clock *fclock.Clock

	microsPerFrame        uint32
	syncDelay             uint32
	halfMicrosPerFrame    uint32
	minOverflowProtection uint32
	maxOverflowProtection uint32

	// SlowAdapt nudges microsPerFrame by ±1 toward the observed period on
	// every drift correction (spec §9 open question: default off).
	slowAdapt bool

	totalAdjustedDrift int32

	interruptTimestamp     atomic.Uint32
	isSyncFrame            atomic.Bool
	lastInterruptTimestamp uint32 // touched only by the interrupt consumer goroutine

	trace *evtrace.Trace
}

func newSyncClock(frameRate uint8, slowAdapt bool, trace *evtrace.Trace) *syncClock {
	c := fclock.NewClock(frameRate)
	mpf := c.MicrosPerFrame
	return &syncClock{
		clock:                 c,
		microsPerFrame:        mpf,
		syncDelay:             mpf / 8,
		halfMicrosPerFrame:    mpf / 2,
		minOverflowProtection: mpf * 3,
		maxOverflowProtection: 0xFFFFFFFF - mpf*3,
		slowAdapt:             slowAdapt,
		trace:                 trace,
	}
}

// onInterrupt is called by the interrupt-consumer goroutine each time the
// radio's RX-done edge fires, with now sampled at edge time. It debounces
// against the last published timestamp (half_micros_per_frame apart)
// before publishing, matching the original ISR's coalescing behaviour.
func (c *syncClock) onInterrupt(now uint32) {
	ts := now + c.syncDelay
	if ts-c.lastInterruptTimestamp >= c.halfMicrosPerFrame {
		c.lastInterruptTimestamp = ts
		c.interruptTimestamp.Store(ts)
		c.isSyncFrame.Store(true)
	}
}

// isFrameReady reports whether the current frame has ended, consuming one
// round of drift correction via advance if so.
func (c *syncClock) isFrameReady(now uint32) bool {
	if c.clock.Ready(now) {
		c.advance()
		return true
	}
	return false
}

func (c *syncClock) advance() {
	ts := c.interruptTimestamp.Load()
	sync := c.isSyncFrame.Swap(false)

	if !sync {
		c.clock.Advance()
		return
	}
	if ts > c.maxOverflowProtection || ts < c.minOverflowProtection {
		c.clock.Advance()
		return
	}

	frameTimeEnd := c.clock.FrameTimeEnd
	diffA := int32(ts - frameTimeEnd)
	diffB := int32(ts + c.microsPerFrame - frameTimeEnd)
	drift := diffA
	if abs32(diffB) < abs32(diffA) {
		drift = diffB
	}

	c.clock.SetNext(frameTimeEnd + c.microsPerFrame + uint32(drift))
	if drift < 0 {
		c.totalAdjustedDrift--
		if c.slowAdapt {
			c.microsPerFrame--
		}
	} else {
		c.totalAdjustedDrift++
		if c.slowAdapt {
			c.microsPerFrame++
		}
	}
	c.clock.MicrosPerFrame = c.microsPerFrame
	if c.trace != nil {
		c.trace.Pushf("drift=%d total=%d frame_end=%d", drift, c.totalAdjustedDrift, c.clock.FrameTimeEnd)
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

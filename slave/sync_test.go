package slave

import "testing"

func TestSyncClock_AdvanceAppliesSmallerMagnitudeDrift(t *testing.T) {
	c := newSyncClock(100, false, nil) // micros_per_frame = 10_000
	c.clock.FrameTimeEnd = 1_000_000
	c.interruptTimestamp.Store(999_800)
	c.isSyncFrame.Store(true)

	c.advance()

	const wantDrift = -200
	if c.totalAdjustedDrift != -1 {
		t.Fatalf("totalAdjustedDrift: got %d want -1", c.totalAdjustedDrift)
	}
	wantEnd := uint32(1_000_000 + 10_000 + wantDrift)
	if c.clock.FrameTimeEnd != wantEnd {
		t.Fatalf("FrameTimeEnd: got %d want %d", c.clock.FrameTimeEnd, wantEnd)
	}
}

func TestSyncClock_NonSyncFrameJustAdvances(t *testing.T) {
	c := newSyncClock(100, false, nil)
	c.clock.FrameTimeEnd = 1_000_000
	c.isSyncFrame.Store(false)

	c.advance()

	if c.clock.FrameTimeEnd != 1_010_000 {
		t.Fatalf("FrameTimeEnd: got %d want 1010000", c.clock.FrameTimeEnd)
	}
	if c.totalAdjustedDrift != 0 {
		t.Fatalf("totalAdjustedDrift should be untouched: got %d", c.totalAdjustedDrift)
	}
}

func TestSyncClock_OutOfBandTimestampIsIgnored(t *testing.T) {
	c := newSyncClock(100, false, nil)
	c.clock.FrameTimeEnd = 1_000_000
	c.interruptTimestamp.Store(5) // inside the wrap-guard band near zero
	c.isSyncFrame.Store(true)

	c.advance()

	if c.clock.FrameTimeEnd != 1_010_000 {
		t.Fatalf("FrameTimeEnd: got %d want 1010000 (drift ignored)", c.clock.FrameTimeEnd)
	}
}

func TestSyncClock_SlowAdaptNudgesFramePeriod(t *testing.T) {
	c := newSyncClock(100, true, nil)
	c.clock.FrameTimeEnd = 1_000_000
	c.interruptTimestamp.Store(999_800)
	c.isSyncFrame.Store(true)

	c.advance()

	if c.microsPerFrame != 9_999 {
		t.Fatalf("microsPerFrame: got %d want 9999 (negative drift nudges it down)", c.microsPerFrame)
	}
}

func TestSyncClock_OnInterruptDebouncesWithinHalfFrame(t *testing.T) {
	c := newSyncClock(100, false, nil) // half_micros_per_frame = 5_000, sync_delay = 1_250

	c.onInterrupt(10_000)
	first := c.interruptTimestamp.Load()
	if first != 10_000+1_250 {
		t.Fatalf("first interrupt timestamp: got %d want %d", first, 10_000+1_250)
	}

	c.isSyncFrame.Store(false) // simulate advance() having consumed the flag
	c.onInterrupt(10_100)      // well within half_micros_per_frame of the last one
	if c.isSyncFrame.Load() {
		t.Fatal("a second edge inside the debounce window should not re-publish")
	}
	if c.interruptTimestamp.Load() != first {
		t.Fatal("debounced edge should not overwrite the published timestamp")
	}

	c.onInterrupt(10_000 + 1_250 + 5_000) // now far enough apart
	if !c.isSyncFrame.Load() {
		t.Fatal("an edge past the debounce window should publish")
	}
}

package fclock

import (
	"testing"

	"pgregory.net/rapid"
)

// S2: frame wrap.
func TestIsFrameReady_Wrap(t *testing.T) {
	// One frame (10_000 us) before the 2^32 wrap, so the next boundary lands on 0.
	c := &Clock{MicrosPerFrame: 10_000, FrameTimeEnd: 0xFFFF_D8F0}

	if !c.IsFrameReady(0xFFFF_D8F0) {
		t.Fatal("expected first call to be ready")
	}
	if c.FrameTimeEnd != 0x0000_0000 {
		t.Fatalf("FrameTimeEnd = %#x, want 0", c.FrameTimeEnd)
	}
	if !c.IsOverflowFrame {
		t.Fatal("expected IsOverflowFrame after wrap")
	}

	if !c.IsFrameReady(0x0000_0000) {
		t.Fatal("expected second call to be ready after wrap")
	}
}

func TestIsFrameReady_NotYet(t *testing.T) {
	c := &Clock{MicrosPerFrame: 10_000, FrameTimeEnd: 1_000_000}
	if c.IsFrameReady(999_999) {
		t.Fatal("expected not ready before the boundary")
	}
	if c.FrameTimeEnd != 1_000_000 {
		t.Fatal("FrameTimeEnd must not move when not ready")
	}
}

// Invariant 5: at now==frame_time_end, IsFrameReady returns true exactly
// once for that boundary (a repeat call at the same now is not ready
// again, because Advance already moved the boundary forward), across the
// 2^32 wrap.
func TestIsFrameReady_ExactlyOncePerBoundary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.Uint32Range(10, 120).Draw(t, "rate")
		start := rapid.Uint32().Draw(t, "start")

		c := &Clock{MicrosPerFrame: 1_000_000 / rate, FrameTimeEnd: start}

		if !c.IsFrameReady(start) {
			t.Fatalf("expected ready at now==frame_time_end (%#x)", start)
		}
		if c.IsFrameReady(start) {
			t.Fatal("expected not ready on a repeat call at the same now")
		}
	})
}

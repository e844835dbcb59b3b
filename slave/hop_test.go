package slave

import (
	"testing"

	"github.com/tve/frhop/hopchan"
)

func testChannels() hopchan.Table {
	return hopchan.Generate(1, 40, 42)
}

func TestHopState_ChannelStartsAtHomeChannel(t *testing.T) {
	h := newHopState(testChannels())
	if h.channel() != 125 {
		t.Fatalf("initial channel: got %d want 125 (home channel)", h.channel())
	}
}

func TestHopState_ScanningHopsBackwardOnItsTurn(t *testing.T) {
	channels := testChannels()
	h := newHopState(channels)
	h.hopOnScanValue = 1 // updateHop's first call makes channelHopCounter 1

	var retuned byte
	retuneCalls := 0
	retune := func(ch byte) { retuned = ch; retuneCalls++ }

	stopped := h.updateHop(Scanning, retune)
	if !stopped {
		t.Fatal("expected a retune on the scan-hop frame")
	}
	if retuneCalls != 1 {
		t.Fatalf("retune called %d times, want 1", retuneCalls)
	}
	wantIdx := ((0 - 1) % hopchan.Size + hopchan.Size) % hopchan.Size
	if retuned != channels[wantIdx] {
		t.Fatalf("retuned to %d, want channel at index %d (%d)", retuned, wantIdx, channels[wantIdx])
	}
}

func TestHopState_FullLockHopsForwardOnLockValue(t *testing.T) {
	channels := testChannels()
	h := newHopState(channels)
	h.channelHopCounter = hopOnLockValue - 1 // next updateHop call rolls it to hopOnLockValue

	retuneCalls := 0
	stopped := h.updateHop(FullLock, func(byte) { retuneCalls++ })
	if !stopped {
		t.Fatal("expected a retune on the lock-hop frame")
	}
	if h.currentChannelIndex != 1 {
		t.Fatalf("channel index: got %d want 1", h.currentChannelIndex)
	}
	if retuneCalls != 1 {
		t.Fatalf("retune called %d times, want 1", retuneCalls)
	}
}

func TestHopState_NoHopOnNonMatchingFrame(t *testing.T) {
	channels := testChannels()
	h := newHopState(channels)
	h.hopOnScanValue = 99 // never matches channelHopCounter (0 or 1)

	retuneCalls := 0
	stopped := h.updateHop(Scanning, func(byte) { retuneCalls++ })
	if stopped {
		t.Fatal("did not expect a retune this frame")
	}
	if retuneCalls != 0 {
		t.Fatalf("retune called %d times, want 0", retuneCalls)
	}
}

func TestHopState_ScanPhaseRotatesEveryFullSweep(t *testing.T) {
	channels := testChannels()
	h := newHopState(channels)

	for i := 0; i < hopchan.Size; i++ {
		h.adjustChannelIndex(-1, func(byte) {})
	}
	if h.hopOnScanValue != 1 {
		t.Fatalf("hopOnScanValue after a full sweep: got %d want 1", h.hopOnScanValue)
	}
}

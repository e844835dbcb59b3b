// Package stats implements the per-second counters each endpoint publishes
// (spec §4.7): packets received (both endpoints) and sent (Slave), rolled
// over once per frame_rate frames.
package stats

// Accumulator counts received/sent packets per frame and publishes a
// per-second rate every frameRate frames.
type Accumulator struct {
	frameRate uint8

	secondCounter  uint8
	receivedInSec  uint32
	sentInSec      uint32
	receivedPerSec uint32
	sentPerSec     uint32
	isSecondTick   bool
}

// NewAccumulator returns an Accumulator that ticks once every frameRate
// frames.
func NewAccumulator(frameRate uint8) *Accumulator {
	return &Accumulator{frameRate: frameRate}
}

// AddReceived records one received packet for the current frame.
func (a *Accumulator) AddReceived() { a.receivedInSec++ }

// AddSent records one successfully transmitted packet for the current
// frame (Slave only; spec §9 resolves "sent_packet_count is never
// incremented" by counting successful writes).
func (a *Accumulator) AddSent() { a.sentInSec++ }

// Tick advances the per-frame second counter, publishing and resetting the
// rolling counts exactly once every frameRate calls.
func (a *Accumulator) Tick() {
	a.secondCounter++
	a.isSecondTick = false
	if a.secondCounter >= a.frameRate {
		a.secondCounter = 0
		a.receivedPerSec = a.receivedInSec
		a.receivedInSec = 0
		a.sentPerSec = a.sentInSec
		a.sentInSec = 0
		a.isSecondTick = true
	}
}

// ReceivedPerSecond returns the most recently published receive rate.
func (a *Accumulator) ReceivedPerSecond() uint32 { return a.receivedPerSec }

// SentPerSecond returns the most recently published send rate.
func (a *Accumulator) SentPerSecond() uint32 { return a.sentPerSec }

// IsSecondTick reports whether this frame is the one on which the rates
// above were just refreshed.
func (a *Accumulator) IsSecondTick() bool { return a.isSecondTick }

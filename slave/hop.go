package slave

import "github.com/tve/frhop/hopchan"

const framesPerHop = 2
const hopOnLockValue = framesPerHop - 1

// hopState tracks the Slave's channel index and the scan-phase hop offset
// that lets it eventually sweep every possible phase relative to the
// Master (spec §4.6).
type hopState struct {
	channels hopchan.Table

	currentChannelIndex int
	channelHopCounter   uint8

	hopOnScanValue   uint8
	hopOnScanCounter uint8
}

func newHopState(channels hopchan.Table) hopState {
	return hopState{channels: channels}
}

func (h *hopState) channel() byte { return h.channels[h.currentChannelIndex] }

// adjustChannelIndex moves current_channel_index by amount modulo
// channels_to_hop (40, handling negative values), and rotates
// hop_on_scan_value every 40 adjustments so long-term disagreement
// eventually explores every phase offset. retune is called with the new
// channel so the caller can stop listening and retune the radio.
func (h *hopState) adjustChannelIndex(amount int, retune func(channel byte)) {
	h.currentChannelIndex = ((h.currentChannelIndex+amount)%hopchan.Size + hopchan.Size) % hopchan.Size

	h.hopOnScanCounter++
	if h.hopOnScanCounter >= hopchan.Size {
		h.hopOnScanCounter = 0
		h.hopOnScanValue = (h.hopOnScanValue + 1) % framesPerHop
	}

	retune(h.channel())
}

// updateHop runs at the top of each frame's send phase (spec §4.6). It
// returns true if it already retuned the radio (and thus stopped
// listening), so the caller knows whether it still needs to do so itself.
func (h *hopState) updateHop(state AcquisitionState, retune func(channel byte)) bool {
	h.channelHopCounter = (h.channelHopCounter + 1) % framesPerHop

	switch {
	case state == Scanning && h.channelHopCounter == h.hopOnScanValue:
		h.adjustChannelIndex(-1, retune)
		return true
	case state == FullLock && h.channelHopCounter == hopOnLockValue:
		h.adjustChannelIndex(1, retune)
		return true
	default:
		return false
	}
}

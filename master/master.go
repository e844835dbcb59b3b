// Package master implements the timing-authority endpoint of the
// frame-locked hopping link: it owns the frame clock, sends first and
// listens second every frame, and advances the channel-hop schedule on a
// fixed cadence (frames_per_hop) with no feedback from the Slave.
package master

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tve/frhop/fclock"
	"github.com/tve/frhop/hopchan"
	"github.com/tve/frhop/packet"
	"github.com/tve/frhop/radio"
	"github.com/tve/frhop/stats"
)

const framesPerHop = 2

// Options configures a new Endpoint. Out-of-range fields are clamped the
// same way the original RadioMaster::Init constrains its arguments, rather
// than rejected, since the link has no way to report a config error back to
// an operator before the radio is even up.
type Options struct {
	Power       int // PA level, 0..3
	PacketSize  int // 1..32
	NSend       int // 0..packet.MaxSlots
	NRecv       int // 0..packet.MaxSlots
	FrameRate   uint8 // 10..120 Hz

	MasterAddr radio.Address
	SlaveAddr  radio.Address

	ChannelLow, ChannelHigh byte
	ChannelSeed             int64

	// SeparateTasks, when true, guards bus access with a mutex so
	// WaitAndSend and Receive may safely be called from different
	// goroutines (spec §5 "shared bus"). The default, single-task use
	// does not need it.
	SeparateTasks bool

	Logger *zap.Logger
}

// Endpoint is the Master side of the link.
type Endpoint struct {
	radio radio.Transceiver
	opts  Options
	log   *zap.Logger

	channels hopchan.Table
	chanIdx  int
	hopCtr   uint8

	clock *fclock.Clock
	slots *packet.Slots
	stats *stats.Accumulator

	busMu *sync.Mutex // nil unless SeparateTasks
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// New constructs an Endpoint and brings the radio up: PA level, address
// width, data rate, no-ack/no-retry, payload size, pipe addresses, initial
// channel, and listening mode — mirroring RadioMaster::Init's sequence.
func New(tr radio.Transceiver, opts Options) (*Endpoint, error) {
	opts.NSend = clamp(opts.NSend, 0, packet.MaxSlots)
	opts.NRecv = clamp(opts.NRecv, 0, packet.MaxSlots)
	opts.PacketSize = clamp(opts.PacketSize, 1, packet.MaxSize)
	opts.Power = clamp(opts.Power, 0, 3)
	if opts.FrameRate < 10 {
		opts.FrameRate = 10
	} else if opts.FrameRate > 120 {
		opts.FrameRate = 120
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := &Endpoint{
		radio:    tr,
		opts:     opts,
		log:      log.Named("master"),
		channels: hopchan.Generate(opts.ChannelLow, opts.ChannelHigh, opts.ChannelSeed),
		clock:    fclock.NewClock(opts.FrameRate),
		slots:    packet.NewSlots(opts.PacketSize, opts.NSend, opts.NRecv),
		stats:    stats.NewAccumulator(opts.FrameRate),
	}
	if opts.SeparateTasks {
		e.busMu = &sync.Mutex{}
	}

	if err := tr.Begin(); err != nil {
		return nil, fmt.Errorf("master: begin: %w", err)
	}
	if err := tr.SetPALevel(opts.Power); err != nil {
		return nil, fmt.Errorf("master: set pa level: %w", err)
	}
	if err := tr.SetAddressWidth(3); err != nil {
		return nil, fmt.Errorf("master: set address width: %w", err)
	}
	if err := tr.SetDataRate(radio.DataRate1Mbps); err != nil {
		return nil, fmt.Errorf("master: set data rate: %w", err)
	}
	if err := tr.SetAutoAck(false); err != nil {
		return nil, fmt.Errorf("master: set auto ack: %w", err)
	}
	if err := tr.SetRetries(0, 0); err != nil {
		return nil, fmt.Errorf("master: set retries: %w", err)
	}
	if err := tr.SetPayloadSize(opts.PacketSize); err != nil {
		return nil, fmt.Errorf("master: set payload size: %w", err)
	}
	if err := tr.OpenReadingPipe(1, opts.SlaveAddr); err != nil {
		return nil, fmt.Errorf("master: open reading pipe: %w", err)
	}
	if err := tr.OpenWritingPipe(opts.MasterAddr); err != nil {
		return nil, fmt.Errorf("master: open writing pipe: %w", err)
	}
	if err := tr.SetChannel(e.channels[e.chanIdx]); err != nil {
		return nil, fmt.Errorf("master: set channel: %w", err)
	}
	if err := tr.PowerUp(); err != nil {
		return nil, fmt.Errorf("master: power up: %w", err)
	}
	if err := tr.StartListening(); err != nil {
		return nil, fmt.Errorf("master: start listening: %w", err)
	}

	log.Info("master initialized",
		zap.Uint8("frame_rate", opts.FrameRate),
		zap.Int("n_send", opts.NSend), zap.Int("n_recv", opts.NRecv),
		zap.Uint8("channel", e.channels[e.chanIdx]))
	return e, nil
}

// AddNextPacketValue appends a value's raw bytes into slot's send buffer.
func AddNextPacketValue[T any](e *Endpoint, slot int, v T) { packet.AppendValue(e.slots, slot, v) }

// GetNextPacketValue extracts the next value from slot's receive buffer.
func GetNextPacketValue[T any](e *Endpoint, slot int) T { return packet.ExtractValue[T](e.slots, slot) }

// WaitAndSend spin-yields until the frame boundary, then transmits every
// configured send slot and advances the hop schedule (spec §4.4).
func (e *Endpoint) WaitAndSend() {
	for !e.clock.IsFrameReady(nowMicros()) {
		time.Sleep(time.Microsecond * 50)
	}

	if e.busMu != nil {
		e.busMu.Lock()
		defer e.busMu.Unlock()
	}

	if err := e.radio.StopListening(); err != nil {
		e.log.Warn("stop listening failed", zap.Error(err))
	}

	for i := 0; i < e.opts.NSend; i++ {
		buf := e.slots.SendBuf(i)
		buf[0] = packet.EncodeHeader(uint8(i), e.hopCtr)
		if err := e.radio.Write(buf); err != nil {
			e.log.Debug("write failed, packet lost", zap.Int("slot", i), zap.Error(err))
		}
	}

	e.hopCtr = (e.hopCtr + 1) % framesPerHop
	if e.hopCtr == 0 {
		e.chanIdx = (e.chanIdx + 1) % hopchan.Size
		if err := e.radio.SetChannel(e.channels[e.chanIdx]); err != nil {
			e.log.Warn("set channel failed", zap.Error(err))
		}
	}

	if err := e.radio.StartListening(); err != nil {
		e.log.Warn("start listening failed", zap.Error(err))
	}
	e.slots.ClearSend()
}

// Receive polls for up to three waiting packets, files each by its header
// slot id, and updates the per-second stats (spec §4.4, §4.7).
func (e *Endpoint) Receive() {
	if e.busMu != nil {
		e.busMu.Lock()
		defer e.busMu.Unlock()
	}

	e.slots.ClearReceive()

	buf := make([]byte, e.opts.PacketSize)
	for i := 0; i < 3; i++ {
		if !e.radio.Available() {
			continue
		}
		if err := e.radio.Read(buf); err != nil {
			e.log.Debug("read failed", zap.Error(err))
			continue
		}
		e.stats.AddReceived()
		slot, _ := packet.DecodeHeader(buf[0])
		e.slots.StoreReceived(int(slot), buf)
	}

	e.stats.Tick()
}

// IsNewPacket reports whether slot holds a packet received this frame.
func (e *Endpoint) IsNewPacket(slot int) bool { return e.slots.IsNewPacket(slot) }

// ReceivedPerSecond returns the most recently published receive rate.
func (e *Endpoint) ReceivedPerSecond() uint32 { return e.stats.ReceivedPerSecond() }

// CurrentChannel returns the RF channel number currently tuned.
func (e *Endpoint) CurrentChannel() byte { return e.channels[e.chanIdx] }

// IsSecondTick reports whether this frame just refreshed the published rate.
func (e *Endpoint) IsSecondTick() bool { return e.stats.IsSecondTick() }

func nowMicros() uint32 { return uint32(time.Now().UnixMicro()) }

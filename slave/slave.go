// Package slave implements the responding endpoint of the frame-locked
// hopping link: it runs its own frame clock but keeps re-aligning its frame
// boundary to the Master's transmissions, and only starts sending once it has acquired
// a stable lock (spec §4.5, §4.6).
package slave

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tve/frhop/hopchan"
	"github.com/tve/frhop/internal/evtrace"
	"github.com/tve/frhop/packet"
	"github.com/tve/frhop/radio"
	"github.com/tve/frhop/stats"
)

// Options configures a new Endpoint. Out-of-range fields are clamped rather
// than rejected, mirroring the Master's Options (and the original
// RadioSlave::Init, which has no way to report a config error back to an
// operator before the radio is even up).
type Options struct {
	Power      int
	PacketSize int
	NSend      int
	NRecv      int
	FrameRate  uint8

	MasterAddr radio.Address
	SlaveAddr  radio.Address

	ChannelLow, ChannelHigh byte
	ChannelSeed             int64

	// SlowAdapt nudges the frame period itself toward the Master's
	// observed rate on every drift correction, instead of only nudging
	// the next boundary (spec §9 open question: default off).
	SlowAdapt bool

	SeparateTasks bool

	// IRQWaitTimeout bounds how long the interrupt-consumer goroutine
	// blocks on each InterruptSource.Wait call before re-checking for
	// shutdown. Defaults to 50ms.
	IRQWaitTimeout time.Duration

	// Now overrides the free-running microsecond clock sample used by
	// WaitAndSend and the interrupt consumer; defaults to the real clock.
	// Tests substitute a fake to drive the frame clock deterministically.
	Now func() uint32

	Trace  *evtrace.Trace
	Logger *zap.Logger
}

// Endpoint is the Slave side of the link.
type Endpoint struct {
	radio radio.Transceiver
	irq   radio.InterruptSource
	opts  Options
	log   *zap.Logger
	now   func() uint32

	hop  hopState
	fsm  fsm
	sync *syncClock

	slots *packet.Slots
	stats *stats.Accumulator

	busMu *sync.Mutex // nil unless SeparateTasks

	stopCh chan struct{}
	wg     sync.WaitGroup
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
// width, data rate, no-ack/no-retry, payload size, pipe addresses (the
// mirror of the Master's — the Slave writes to SlaveAddr and reads from
// MasterAddr), and listening mode. It starts scanning on the hop table's
// home channel (index 0, RF channel 125) per spec §4.5. If irq is non-nil,
// a goroutine is started to consume its RX-done edges and feed the sync
// engine; Close stops it.
func New(tr radio.Transceiver, irq radio.InterruptSource, opts Options) (*Endpoint, error) {
	opts.NSend = clamp(opts.NSend, 0, packet.MaxSlots)
	opts.NRecv = clamp(opts.NRecv, 0, packet.MaxSlots)
	opts.PacketSize = clamp(opts.PacketSize, 1, packet.MaxSize)
	opts.Power = clamp(opts.Power, 0, 3)
	if opts.FrameRate < 10 {
		opts.FrameRate = 10
	} else if opts.FrameRate > 120 {
		opts.FrameRate = 120
	}
	if opts.IRQWaitTimeout <= 0 {
		opts.IRQWaitTimeout = 50 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = nowMicros
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := &Endpoint{
		radio:  tr,
		irq:    irq,
		opts:   opts,
		log:    log.Named("slave"),
		now:    opts.Now,
		hop:    newHopState(hopchan.Generate(opts.ChannelLow, opts.ChannelHigh, opts.ChannelSeed)),
		sync:   newSyncClock(opts.FrameRate, opts.SlowAdapt, opts.Trace),
		slots:  packet.NewSlots(opts.PacketSize, opts.NSend, opts.NRecv),
		stats:  stats.NewAccumulator(opts.FrameRate),
		stopCh: make(chan struct{}),
	}
	if opts.SeparateTasks {
		e.busMu = &sync.Mutex{}
	}

	if err := tr.Begin(); err != nil {
		return nil, fmt.Errorf("slave: begin: %w", err)
	}
	if err := tr.SetPALevel(opts.Power); err != nil {
		return nil, fmt.Errorf("slave: set pa level: %w", err)
	}
	if err := tr.SetAddressWidth(3); err != nil {
		return nil, fmt.Errorf("slave: set address width: %w", err)
	}
	if err := tr.SetDataRate(radio.DataRate1Mbps); err != nil {
		return nil, fmt.Errorf("slave: set data rate: %w", err)
	}
	if err := tr.SetAutoAck(false); err != nil {
		return nil, fmt.Errorf("slave: set auto ack: %w", err)
	}
	if err := tr.SetRetries(0, 0); err != nil {
		return nil, fmt.Errorf("slave: set retries: %w", err)
	}
	if err := tr.SetPayloadSize(opts.PacketSize); err != nil {
		return nil, fmt.Errorf("slave: set payload size: %w", err)
	}
	if err := tr.MaskIRQ(true, true, false); err != nil {
		return nil, fmt.Errorf("slave: mask irq: %w", err)
	}
	if err := tr.OpenReadingPipe(1, opts.MasterAddr); err != nil {
		return nil, fmt.Errorf("slave: open reading pipe: %w", err)
	}
	if err := tr.OpenWritingPipe(opts.SlaveAddr); err != nil {
		return nil, fmt.Errorf("slave: open writing pipe: %w", err)
	}
	if err := tr.SetChannel(e.hop.channel()); err != nil {
		return nil, fmt.Errorf("slave: set channel: %w", err)
	}
	if err := tr.PowerUp(); err != nil {
		return nil, fmt.Errorf("slave: power up: %w", err)
	}
	if err := tr.StartListening(); err != nil {
		return nil, fmt.Errorf("slave: start listening: %w", err)
	}

	if irq != nil {
		e.wg.Add(1)
		go e.runInterruptLoop(irq)
	}

	log.Info("slave initialized",
		zap.Uint8("frame_rate", opts.FrameRate),
		zap.Int("n_send", opts.NSend), zap.Int("n_recv", opts.NRecv),
		zap.Uint8("channel", e.hop.channel()))
	return e, nil
}

func (e *Endpoint) runInterruptLoop(irq radio.InterruptSource) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		if irq.Wait(e.opts.IRQWaitTimeout) {
			e.sync.onInterrupt(e.now())
		}
	}
}

// Close stops the interrupt-consumer goroutine, if any, and releases the
// interrupt source.
func (e *Endpoint) Close() error {
	close(e.stopCh)
	e.wg.Wait()
	if e.irq != nil {
		return e.irq.Close()
	}
	return nil
}

// AddNextPacketValue appends a value's raw bytes into slot's send buffer.
func AddNextPacketValue[T any](e *Endpoint, slot int, v T) { packet.AppendValue(e.slots, slot, v) }

// GetNextPacketValue extracts the next value from slot's receive buffer.
func GetNextPacketValue[T any](e *Endpoint, slot int) T { return packet.ExtractValue[T](e.slots, slot) }

// State reports the endpoint's current acquisition state.
func (e *Endpoint) State() AcquisitionState { return e.fsm.state }

// WaitAndSend spin-yields until the drift-corrected frame boundary, runs
// the hop schedule, and — only once FULL_LOCK has been reached — transmits
// every configured send slot (spec §4.5, §4.6). Unlike the Master, the
// Slave's header never carries a hop counter: it has none of its own to
// report, since its hop position is slaved to what it last heard from the
// Master (spec §4.6).
func (e *Endpoint) WaitAndSend() {
	for !e.sync.isFrameReady(e.now()) {
		time.Sleep(time.Microsecond * 50)
	}

	if e.busMu != nil {
		e.busMu.Lock()
		defer e.busMu.Unlock()
	}

	retune := func(ch byte) {
		if err := e.radio.StopListening(); err != nil {
			e.log.Warn("stop listening failed", zap.Error(err))
		}
		if err := e.radio.SetChannel(ch); err != nil {
			e.log.Warn("set channel failed", zap.Error(err))
		}
	}
	stoppedListening := e.hop.updateHop(e.fsm.state, retune)

	if e.fsm.state == FullLock {
		if !stoppedListening {
			if err := e.radio.StopListening(); err != nil {
				e.log.Warn("stop listening failed", zap.Error(err))
			}
		}
		for i := 0; i < e.opts.NSend; i++ {
			buf := e.slots.SendBuf(i)
			buf[0] = packet.EncodeHeader(uint8(i), 0)
			if err := e.radio.Write(buf); err != nil {
				e.log.Debug("write failed, packet lost", zap.Int("slot", i), zap.Error(err))
				continue
			}
			e.stats.AddSent()
		}
	}

	if err := e.radio.StartListening(); err != nil {
		e.log.Warn("start listening failed", zap.Error(err))
	}
	e.slots.ClearSend()
}

// Receive polls for up to three waiting packets, files each by its header
// slot id, synchronizes the hop counter from the Master's header, and runs
// the acquisition FSM off whether anything arrived (spec §4.5, §4.6, §4.7).
func (e *Endpoint) Receive() {
	if e.busMu != nil {
		e.busMu.Lock()
		defer e.busMu.Unlock()
	}

	e.slots.ClearReceive()

	isSuccess := false
	buf := make([]byte, e.opts.PacketSize)
	for i := 0; i < 3; i++ {
		if !e.radio.Available() {
			continue
		}
		if err := e.radio.Read(buf); err != nil {
			e.log.Debug("read failed", zap.Error(err))
			continue
		}
		isSuccess = true
		e.stats.AddReceived()
		slot, hop := packet.DecodeHeader(buf[0])
		e.slots.StoreReceived(int(slot), buf)
		e.hop.channelHopCounter = hop
	}

	prevState := e.fsm.state
	e.fsm.update(isSuccess, func() {
		retune := func(ch byte) {
			if err := e.radio.StopListening(); err != nil {
				e.log.Warn("stop listening failed", zap.Error(err))
			}
			if err := e.radio.SetChannel(ch); err != nil {
				e.log.Warn("set channel failed", zap.Error(err))
			}
		}
		e.hop.adjustChannelIndex(2, retune)
		if err := e.radio.StartListening(); err != nil {
			e.log.Warn("start listening failed", zap.Error(err))
		}
	})
	if e.fsm.state != prevState {
		e.log.Info("acquisition state changed",
			zap.Stringer("from", prevState), zap.Stringer("to", e.fsm.state))
		if e.opts.Trace != nil {
			e.opts.Trace.Pushf("state %s -> %s", prevState, e.fsm.state)
		}
	}
	e.stats.Tick()
}

// IsNewPacket reports whether slot holds a packet received this frame.
func (e *Endpoint) IsNewPacket(slot int) bool { return e.slots.IsNewPacket(slot) }

// ReceivedPerSecond returns the most recently published receive rate.
func (e *Endpoint) ReceivedPerSecond() uint32 { return e.stats.ReceivedPerSecond() }

// SentPerSecond returns the most recently published send rate.
func (e *Endpoint) SentPerSecond() uint32 { return e.stats.SentPerSecond() }

// CurrentChannel returns the RF channel number currently tuned.
func (e *Endpoint) CurrentChannel() byte { return e.hop.channel() }

// IsSecondTick reports whether this frame just refreshed the published rates.
func (e *Endpoint) IsSecondTick() bool { return e.stats.IsSecondTick() }

func nowMicros() uint32 { return uint32(time.Now().UnixMicro()) }

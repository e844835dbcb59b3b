package slave

import (
	"testing"

	"github.com/tve/frhop/radio"
)

func testOpts() Options {
	return Options{
		Power:       1,
		PacketSize:  8,
		NSend:       1,
		NRecv:       1,
		FrameRate:   50,
		MasterAddr:  radio.Address{1, 2, 3},
		SlaveAddr:   radio.Address{4, 5, 6},
		ChannelLow:  1,
		ChannelHigh: 40,
		ChannelSeed: 42,
	}
}

func TestNew_ClampsOutOfRangeOptions(t *testing.T) {
	fake := radio.NewFake()
	opts := testOpts()
	opts.NSend = 10
	opts.NRecv = -1
	opts.PacketSize = 0
	opts.FrameRate = 5

	e, err := New(fake, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.opts.NSend != 3 {
		t.Fatalf("n_send not clamped: got %d", e.opts.NSend)
	}
	if e.opts.NRecv != 0 {
		t.Fatalf("n_recv not clamped: got %d", e.opts.NRecv)
	}
	if e.opts.PacketSize != 1 {
		t.Fatalf("packet_size not clamped: got %d", e.opts.PacketSize)
	}
	if e.opts.FrameRate != 10 {
		t.Fatalf("frame_rate not clamped: got %d", e.opts.FrameRate)
	}
}

func TestNew_StartsListeningOnHomeChannel(t *testing.T) {
	fake := radio.NewFake()
	e, err := New(fake, nil, testOpts())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !fake.Listening() {
		t.Fatal("radio not left listening after New")
	}
	if e.CurrentChannel() != 125 {
		t.Fatalf("initial channel: got %d want 125", e.CurrentChannel())
	}
	if e.State() != Scanning {
		t.Fatalf("initial state: got %v want SCANNING", e.State())
	}
}

func TestWaitAndSend_DoesNotTransmitBeforeFullLock(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	s, err := New(a, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b.SetChannel(s.CurrentChannel())
	b.StartListening()

	AddNextPacketValue(s, 0, uint16(0x1234))
	s.WaitAndSend()

	if b.Available() {
		t.Fatal("a SCANNING slave must not transmit send-slot data")
	}
}

func TestWaitAndSend_TransmitsOnceFullLocked(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	s, err := New(a, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.fsm.state = FullLock
	s.hop.channelHopCounter = 1 // avoid this frame's hop landing on hopOnLockValue and retuning away from b's channel

	b.SetChannel(s.CurrentChannel())
	b.StartListening()

	AddNextPacketValue(s, 0, uint16(0x1234))
	s.WaitAndSend()

	if !b.Available() {
		t.Fatal("a FULL_LOCK slave should have transmitted its send slot")
	}
	buf := make([]byte, opts.PacketSize)
	if err := b.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	slot, hop := decodeHeaderForTest(buf[0])
	if slot != 0 {
		t.Fatalf("slot id: got %d want 0", slot)
	}
	if hop != 0 {
		t.Fatalf("a slave never encodes a hop counter of its own: got %d", hop)
	}
}

func TestReceive_LocksOnAndSyncsHopCounterFromMaster(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	s, err := New(a, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b.SetChannel(s.CurrentChannel())

	pkt := make([]byte, opts.PacketSize)
	pkt[0] = encodeHeaderForTest(0, 3) // master's hop counter is 3
	if err := b.Write(pkt); err != nil {
		t.Fatalf("peer write: %v", err)
	}

	s.Receive()

	if !s.IsNewPacket(0) {
		t.Fatal("expected slot 0 to be marked new")
	}
	if s.State() != PartialLock {
		t.Fatalf("state after first success: got %v want PARTIAL_LOCK", s.State())
	}
	if s.hop.channelHopCounter != 3 {
		t.Fatalf("hop counter not synced from master: got %d want 3", s.hop.channelHopCounter)
	}
}

func TestReceive_FirstScanSuccessAdvancesChannelIndexByTwo(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	s, err := New(a, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b.SetChannel(s.CurrentChannel())

	pkt := make([]byte, opts.PacketSize)
	pkt[0] = encodeHeaderForTest(0, 0)
	if err := b.Write(pkt); err != nil {
		t.Fatalf("peer write: %v", err)
	}

	s.Receive()

	if s.State() != PartialLock {
		t.Fatalf("state after first success: got %v want PARTIAL_LOCK", s.State())
	}
	if s.hop.currentChannelIndex != 2 {
		t.Fatalf("channel index: got %d want 2 (advanced by +2 on first scan success)", s.hop.currentChannelIndex)
	}
	if s.hop.hopOnScanCounter != 1 {
		t.Fatalf("hop_on_scan_counter: got %d want 1", s.hop.hopOnScanCounter)
	}
	if s.CurrentChannel() != s.hop.channels[2] {
		t.Fatalf("radio not retuned to new index's channel: got %d want %d", s.CurrentChannel(), s.hop.channels[2])
	}
}

func TestReceive_FiftyConsecutiveMissesForceRescan(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	s, err := New(a, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.fsm.state = FullLock

	for i := 0; i < failedBeforeScanning; i++ {
		s.Receive()
	}
	if s.State() != Scanning {
		t.Fatalf("after %d misses: got %v want SCANNING", failedBeforeScanning, s.State())
	}
}

func decodeHeaderForTest(b byte) (slot, hop uint8) {
	return b & 0x03, (b & (0x07 << 5)) >> 5
}

func encodeHeaderForTest(slot, hop uint8) byte {
	return (slot & 0x03) | ((hop << 5) & (0x07 << 5))
}

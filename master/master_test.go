package master

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

	e, err := New(fake, opts)
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

func TestNew_BringsRadioUpListening(t *testing.T) {
	fake := radio.NewFake()
	if _, err := New(fake, testOpts()); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !fake.Listening() {
		t.Fatal("radio not left listening after New")
	}
}

func TestWaitAndSend_EncodesHeaderAndHops(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	opts.NSend = 1
	m, err := New(a, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b.SetChannel(m.CurrentChannel())
	b.StartListening()

	AddNextPacketValue(m, 0, uint16(0xBEEF))
	m.WaitAndSend()

	if !b.Available() {
		t.Fatal("peer never received the Master's packet")
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
		t.Fatalf("hop counter on first send: got %d want 0", hop)
	}
}

func TestReceive_FilesBySlot(t *testing.T) {
	a, b := radio.NewFake(), radio.NewFake()
	radio.PairFakes(a, b)

	opts := testOpts()
	m, err := New(a, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b.SetChannel(m.CurrentChannel())

	pkt := make([]byte, opts.PacketSize)
	pkt[0] = 0 // slot 0
	if err := b.Write(pkt); err != nil {
		t.Fatalf("peer write: %v", err)
	}

	m.Receive()

	if !m.IsNewPacket(0) {
		t.Fatal("expected slot 0 to be marked new")
	}
}

func decodeHeaderForTest(b byte) (slot, hop uint8) {
	return b & 0x03, (b & (0x07 << 5)) >> 5
}

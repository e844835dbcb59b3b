package radio

import "sync"

// Fake is an in-memory Transceiver used by tests. Two Fakes paired with
// PairFakes() model a lossless point-to-point "air": a Write from one side
// reaches the other's Read queue only if both are tuned to the same
// channel and the receiver is listening, exactly mirroring spec §1's "no
// on-air acknowledgement, no automatic retransmission" contract (a write to
// the wrong channel, or while the peer isn't listening, is simply lost).
type Fake struct {
	mu sync.Mutex

	payloadSize int
	channel     byte
	listening   bool
	poweredUp   bool

	readPipe  Address
	writePipe Address

	peer  *Fake
	rxQ   [][]byte
	drops int
}

// NewFake returns an unpaired Fake transceiver.
func NewFake() *Fake { return &Fake{} }

// PairFakes connects two Fakes so that writes from one reach the other's
// read queue (subject to channel match and listening state).
func PairFakes(a, b *Fake) {
	a.peer = b
	b.peer = a
}

// Dropped returns the count of writes that never reached the peer because
// it was off-channel or not listening — useful in tests that want to
// assert on loss without hooking the logger.
func (f *Fake) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drops
}

// Listening reports whether StartListening was the most recent of
// StartListening/StopListening called — exposed so tests can assert on
// the Master/Slave's radio state without a type assertion.
func (f *Fake) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

func (f *Fake) Begin() error     { return nil }
func (f *Fake) PowerUp() error   { f.mu.Lock(); f.poweredUp = true; f.mu.Unlock(); return nil }
func (f *Fake) PowerDown() error { f.mu.Lock(); f.poweredUp = false; f.mu.Unlock(); return nil }

func (f *Fake) StartListening() error {
	f.mu.Lock()
	f.listening = true
	f.mu.Unlock()
	return nil
}

func (f *Fake) StopListening() error {
	f.mu.Lock()
	f.listening = false
	f.mu.Unlock()
	return nil
}

func (f *Fake) SetPALevel(int) error           { return nil }
func (f *Fake) SetAddressWidth(int) error      { return nil }
func (f *Fake) SetDataRate(DataRate) error     { return nil }
func (f *Fake) SetAutoAck(bool) error          { return nil }
func (f *Fake) SetRetries(int, int) error      { return nil }
func (f *Fake) MaskIRQ(bool, bool, bool) error { return nil }

func (f *Fake) SetPayloadSize(size int) error {
	f.mu.Lock()
	f.payloadSize = size
	f.mu.Unlock()
	return nil
}

func (f *Fake) SetChannel(channel byte) error {
	f.mu.Lock()
	f.channel = channel
	f.mu.Unlock()
	return nil
}

func (f *Fake) OpenReadingPipe(_ int, addr Address) error {
	f.mu.Lock()
	f.readPipe = addr
	f.mu.Unlock()
	return nil
}

func (f *Fake) OpenWritingPipe(addr Address) error {
	f.mu.Lock()
	f.writePipe = addr
	f.mu.Unlock()
	return nil
}

// Write delivers buf to the paired Fake's receive queue if it is tuned to
// the same channel and currently listening; otherwise the packet is
// silently lost, matching the no-ACK, no-retry contract.
func (f *Fake) Write(buf []byte) error {
	f.mu.Lock()
	peer := f.peer
	ch := f.channel
	f.mu.Unlock()

	cp := make([]byte, len(buf))
	copy(cp, buf)

	if peer == nil {
		return nil
	}
	peer.mu.Lock()
	defer peer.mu.Unlock()
	if !peer.listening || peer.channel != ch {
		f.mu.Lock()
		f.drops++
		f.mu.Unlock()
		return nil
	}
	peer.rxQ = append(peer.rxQ, cp)
	return nil
}

func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rxQ) > 0
}

func (f *Fake) Read(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rxQ) == 0 {
		return nil
	}
	pkt := f.rxQ[0]
	f.rxQ = f.rxQ[1:]
	copy(buf, pkt)
	return nil
}

var _ Transceiver = (*Fake)(nil)

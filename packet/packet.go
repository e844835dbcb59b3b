// Package packet implements the wire codec for a frame: the one-byte
// header (slot id + sender's hop counter) and the append-only, byte-cursor
// payload encoding used by both endpoints' packet slots.
package packet

import "unsafe"

// MaxSlots is the maximum number of outbound or inbound packet slots an
// endpoint may own (spec: n_send, n_recv clamped to [0,3]).
const MaxSlots = 3

// MinSize and MaxSize bound a packet's total length in bytes, including the
// header byte.
const (
	MinSize = 1
	MaxSize = 32
)

// HeaderSlotMask and HeaderHopShift describe the layout of byte 0 of every
// packet: bits [1:0] are the slot id, bits [7:5] are the sender's hop
// counter at the moment of transmission, and bits [4:2] are reserved (zero
// on transmit, ignored on receive).
const (
	HeaderSlotMask = 0x03
	HeaderHopShift = 5
	HeaderHopMask  = 0x07 << HeaderHopShift
)

// EncodeHeader builds byte 0 of an outbound packet for the given slot id
// and hop counter. Only the low bits of each input that fit their field are
// used; callers are expected to pass slot < MaxSlots and hop < 8.
func EncodeHeader(slot, hop uint8) byte {
	return (slot & HeaderSlotMask) | ((hop << HeaderHopShift) & HeaderHopMask)
}

// DecodeHeader splits byte 0 of a received packet back into its slot id and
// hop counter.
func DecodeHeader(b byte) (slot, hop uint8) {
	return b & HeaderSlotMask, (b & HeaderHopMask) >> HeaderHopShift
}

// Slots owns the fixed-size outbound and inbound packet buffers for one
// endpoint, along with the per-slot write/read cursors used by
// AppendValue/ExtractValue. The zero value is not usable; use NewSlots.
type Slots struct {
	size int

	sendBufs [MaxSlots][]byte
	sendPos  [MaxSlots]int // byteAddCounter, 1..size
	nSend    int

	recvBufs      [MaxSlots][]byte
	recvPos       [MaxSlots]int // byteReceiveCounter, 1..size
	recvAvailable [MaxSlots]bool
	nRecv         int
}

// NewSlots allocates the send/receive buffers for an endpoint. size is the
// packet size in bytes (already clamped by the caller to [MinSize,
// MaxSize]); nSend and nRecv are the number of outbound/inbound slots
// (already clamped to [0, MaxSlots]).
func NewSlots(size int, nSend, nRecv int) *Slots {
	s := &Slots{size: size, nSend: nSend, nRecv: nRecv}
	for i := 0; i < nSend; i++ {
		s.sendBufs[i] = make([]byte, size)
	}
	for i := 0; i < nRecv; i++ {
		s.recvBufs[i] = make([]byte, size)
	}
	s.ClearSend()
	s.ClearReceive()
	return s
}

// Size returns the configured packet size in bytes.
func (s *Slots) Size() int { return s.size }

// ClearSend zeroes every send buffer and resets each slot's write cursor to
// 1 (byte 0 is reserved for the header, written separately at transmit
// time).
func (s *Slots) ClearSend() {
	for i := 0; i < s.nSend; i++ {
		clear(s.sendBufs[i])
		s.sendPos[i] = 1
	}
}

// ClearReceive zeroes every receive buffer, clears each slot's availability
// flag, and resets each slot's read cursor to 1.
func (s *Slots) ClearReceive() {
	for i := 0; i < s.nRecv; i++ {
		clear(s.recvBufs[i])
		s.recvPos[i] = 1
		s.recvAvailable[i] = false
	}
}

// SendBuf returns the raw buffer for an outbound slot, for the endpoint to
// write the header byte into and hand to the radio's write API.
func (s *Slots) SendBuf(slot int) []byte { return s.sendBufs[slot] }

// StoreReceived copies a freshly read packet into the slot named by its own
// header byte and marks that slot available. id must already have been
// extracted from the packet's header and be < MaxSlots.
func (s *Slots) StoreReceived(id int, pkt []byte) {
	copy(s.recvBufs[id], pkt)
	s.recvAvailable[id] = true
}

// IsNewPacket reports whether a packet bearing this slot id arrived during
// the current frame's receive pass.
func (s *Slots) IsNewPacket(slot int) bool {
	if slot < 0 || slot >= s.nRecv {
		return false
	}
	return s.recvAvailable[slot]
}

// AppendValue writes v's raw bytes (native endianness, so both peers must
// share a byte order) to
// the given send slot's cursor and advances it. If slot is out of range or
// there isn't room left for sizeof(T) bytes, it silently does nothing —
// this is a best-effort link, not a validated one (spec §7).
func AppendValue[T any](s *Slots, slot int, v T) {
	if slot < 0 || slot >= s.nSend {
		return
	}
	n := int(unsafe.Sizeof(v))
	pos := s.sendPos[slot]
	if pos+n > s.size {
		return
	}
	src := (*[1 << 20]byte)(unsafe.Pointer(&v))[:n:n]
	copy(s.sendBufs[slot][pos:pos+n], src)
	s.sendPos[slot] = pos + n
}

// ExtractValue reads the next sizeof(T) bytes from the given receive slot's
// cursor and advances it, returning the zero value of T if slot is out of
// range or there aren't enough bytes left (spec §7).
func ExtractValue[T any](s *Slots, slot int) T {
	var v T
	if slot < 0 || slot >= s.nRecv {
		return v
	}
	n := int(unsafe.Sizeof(v))
	pos := s.recvPos[slot]
	if pos+n > s.size {
		return v
	}
	dst := (*[1 << 20]byte)(unsafe.Pointer(&v))[:n:n]
	copy(dst, s.recvBufs[slot][pos:pos+n])
	s.recvPos[slot] = pos + n
	return v
}

// Package radio defines the transceiver contract the frame-locked hopping
// core depends on (spec §6) and provides an in-memory fake implementation
// for tests. The physical radio, its bus, and interrupt registration are
// external collaborators — out of scope for this module — so production
// code talks to the core exclusively through this interface.
package radio

import "time"

// Address is a 3-byte pipe address. The Master writes to MasterAddr and
// reads from SlaveAddr; the Slave does the opposite.
type Address [3]byte

// DataRate selects the transceiver's on-air bit rate.
type DataRate int

// The only data rate this link uses; exposed for Transceiver implementers
// that support more than one.
const DataRate1Mbps DataRate = 1

// Transceiver is the capability set the core requires from a packet radio.
// Every method is expected to be synchronous and non-blocking except where
// documented; spec §5 forbids blocking on the bus.
type Transceiver interface {
	// Begin initializes the underlying bus connection.
	Begin() error
	// PowerUp and PowerDown put the chip into and out of its low-power
	// state.
	PowerUp() error
	PowerDown() error

	// StartListening switches the radio into receive mode.
	StartListening() error
	// StopListening switches the radio out of receive mode so it can
	// transmit.
	StopListening() error

	// SetPALevel sets the output power level, 0..3.
	SetPALevel(level int) error
	// SetAddressWidth sets the pipe address width in bytes.
	SetAddressWidth(bytes int) error
	// SetDataRate sets the on-air bit rate.
	SetDataRate(rate DataRate) error
	// SetAutoAck enables or disables automatic acknowledgement. This link
	// always disables it (spec §1: no on-air acknowledgement).
	SetAutoAck(enabled bool) error
	// SetRetries configures the auto-retry delay and count. This link
	// always sets both to zero (spec §1: no automatic retransmission).
	SetRetries(delay, count int) error
	// SetPayloadSize sets the fixed payload size in bytes, 1..32.
	SetPayloadSize(size int) error
	// SetChannel tunes the radio to an RF channel number, 0..125.
	SetChannel(channel byte) error

	// OpenReadingPipe configures a receive pipe (pipe 1 is the only one
	// this link uses) to listen on addr.
	OpenReadingPipe(pipe int, addr Address) error
	// OpenWritingPipe configures the address this endpoint transmits to.
	OpenWritingPipe(addr Address) error

	// MaskIRQ enables or disables the chip's three interrupt sources. This
	// link only ever wants RX-done unmasked.
	MaskIRQ(txOK, txFail, rxDone bool) error

	// Write transmits buf, which must be exactly the configured payload
	// size. There is no acknowledgement and no retry: a write that fails
	// to reach the air is indistinguishable from one that was lost
	// (spec §7).
	Write(buf []byte) error
	// Available reports whether a received packet is waiting to be read.
	Available() bool
	// Read copies the oldest waiting packet into buf, which must be
	// exactly the configured payload size.
	Read(buf []byte) error
}

// InterruptSource is the capability an endpoint needs to learn when the
// radio's RX-done line fires, so it can stamp an arrival time. Only the
// Slave uses this (spec §5, §6: "RX-done is the only interrupt source the
// Slave uses").
type InterruptSource interface {
	// Wait blocks until the interrupt fires or timeout elapses, returning
	// true if it fired. A zero timeout polls once without blocking.
	Wait(timeout time.Duration) bool
	// Close releases the interrupt registration.
	Close() error
}

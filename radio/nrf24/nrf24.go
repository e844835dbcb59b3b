// Package nrf24 implements radio.Transceiver for a Nordic nRF24L01(+)
// connected over periph.io/x/conn/v3. It is the production counterpart to
// radio.Fake: cmd/frhop-master and cmd/frhop-slave wire a *Radio into the
// master/slave endpoints once periph.io/x/host/v3.Init has brought up the
// host's SPI and GPIO drivers.
//
// The chip's RX/TX mode switching and SPI register access mirror
// tve-devices' sx1231.Radio: a mutex guards the bus, writeReg/readReg do the
// raw transactions, and mode changes sleep through the chip's settling time. The
// register map and power-up sequence are the nRF24's, not the SX1231's.
package nrf24

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/tve/frhop/radio"
)

// MaxSPIFrequency is the SCK rate New connects at, kept below the nRF24's
// documented 10 MHz maximum to leave margin for long ribbon-cable wiring.
const MaxSPIFrequency = 8 * physic.MegaHertz

// Radio drives an nRF24L01(+) over an SPI connection, with an optional IRQ
// pin for RX-done notification.
type Radio struct {
	mu   sync.Mutex
	conn spi.Conn
	ce   gpio.PinIO // chip-enable: low=standby, high=active (RX listening or TX burst)
	irq  gpio.PinIO // active-low interrupt line, optional

	payloadSize int
}

// New returns a Radio bound to an already-connected SPI port and the two
// control pins. ce is required; irq may be nil if the caller intends to
// poll Available instead of using the returned Radio as an InterruptSource.
func New(port spi.Port, ce, irq gpio.PinIO) (*Radio, error) {
	if ce == nil {
		return nil, fmt.Errorf("nrf24: ce pin is required")
	}
	conn, err := port.Connect(MaxSPIFrequency, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("nrf24: spi connect: %w", err)
	}
	r := &Radio{conn: conn, ce: ce, irq: irq, payloadSize: 32}
	if err := r.ce.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("nrf24: ce pin: %w", err)
	}
	if r.irq != nil {
		if err := r.irq.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("nrf24: irq pin: %w", err)
		}
	}
	return r, nil
}

// Begin resets the chip's status flags and flushes both FIFOs, leaving it
// powered down in standby. Callers follow with SetChannel/SetPayloadSize/
// etc. and PowerUp before StartListening.
func (r *Radio) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeReg(regConfig, 0); err != nil {
		return err
	}
	if err := r.clearStatus(); err != nil {
		return err
	}
	if err := r.command(cmdFlushTX); err != nil {
		return err
	}
	return r.command(cmdFlushRX)
}

// PowerUp brings the chip's oscillator up; the datasheet specifies a 1.5ms
// settling time before RX/TX can be entered.
func (r *Radio) PowerUp() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.readReg(regConfig)
	if err != nil {
		return err
	}
	if err := r.writeReg(regConfig, cfg|cfgPwrUp|cfgEnCRC|cfgCRCO); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

// PowerDown clears PWR_UP, leaving the chip in its lowest-current state.
func (r *Radio) PowerDown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.readReg(regConfig)
	if err != nil {
		return err
	}
	return r.writeReg(regConfig, cfg&^byte(cfgPwrUp))
}

// StartListening sets PRIM_RX and raises CE, entering RX mode after the
// datasheet's 130us Standby-I-to-RX delay.
func (r *Radio) StartListening() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.readReg(regConfig)
	if err != nil {
		return err
	}
	if err := r.ce.Out(gpio.Low); err != nil {
		return err
	}
	if err := r.writeReg(regConfig, cfg|cfgPrimRX); err != nil {
		return err
	}
	if err := r.ce.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(130 * time.Microsecond)
	return r.clearStatus()
}

// StopListening clears PRIM_RX and lowers CE, returning to Standby-I so a
// Write can follow.
func (r *Radio) StopListening() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ce.Out(gpio.Low); err != nil {
		return err
	}
	cfg, err := r.readReg(regConfig)
	if err != nil {
		return err
	}
	return r.writeReg(regConfig, cfg&^byte(cfgPrimRX))
}

// SetPALevel writes the two PA_LEVEL bits of RF_SETUP (0=min, 3=max).
func (r *Radio) SetPALevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("nrf24: pa level %d out of range 0..3", level)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, err := r.readReg(regRFSetup)
	if err != nil {
		return err
	}
	rf = rf&^byte(0x06) | byte(level<<1)
	return r.writeReg(regRFSetup, rf)
}

// SetAddressWidth writes SETUP_AW; bytes is 3, 4, or 5.
func (r *Radio) SetAddressWidth(bytes int) error {
	if bytes < 3 || bytes > 5 {
		return fmt.Errorf("nrf24: address width %d out of range 3..5", bytes)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeReg(regSetupAW, byte(bytes-2))
}

// SetDataRate writes the RF_DR_HIGH/RF_DR_LOW bits of RF_SETUP. This link
// only ever requests radio.DataRate1Mbps (spec §1), which corresponds to
// both bits clear.
func (r *Radio) SetDataRate(rate radio.DataRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, err := r.readReg(regRFSetup)
	if err != nil {
		return err
	}
	rf &^= byte(1<<3 | 1<<5)
	return r.writeReg(regRFSetup, rf)
}

// SetAutoAck writes EN_AA for pipes 0 and 1. This link always calls this
// with enabled=false (spec §1: no on-air acknowledgement).
func (r *Radio) SetAutoAck(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled {
		return r.writeReg(regEnAA, 0x03)
	}
	return r.writeReg(regEnAA, 0x00)
}

// SetRetries writes SETUP_RETR. This link always calls this with
// delay=0, count=0 (spec §1: no automatic retransmission).
func (r *Radio) SetRetries(delay, count int) error {
	if delay < 0 || delay > 15 || count < 0 || count > 15 {
		return fmt.Errorf("nrf24: retry delay/count out of range 0..15")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeReg(regSetupRetr, byte(delay<<4)|byte(count))
}

// SetPayloadSize sets the fixed payload width on both pipes this link uses.
func (r *Radio) SetPayloadSize(size int) error {
	if size < 1 || size > 32 {
		return fmt.Errorf("nrf24: payload size %d out of range 1..32", size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloadSize = size
	if err := r.writeReg(regRxPWP0, byte(size)); err != nil {
		return err
	}
	return r.writeReg(regRxPWP1, byte(size))
}

// SetChannel writes RF_CH; channel is 0..125.
func (r *Radio) SetChannel(channel byte) error {
	if channel > 125 {
		return fmt.Errorf("nrf24: channel %d out of range 0..125", channel)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeReg(regRFCh, channel)
}

// OpenReadingPipe writes the pipe's address register and enables it in
// EN_RXADDR. This link only ever opens pipe 1.
func (r *Radio) OpenReadingPipe(pipe int, addr radio.Address) error {
	if pipe < 0 || pipe > 1 {
		return fmt.Errorf("nrf24: reading pipe %d out of range 0..1", pipe)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := byte(regRxAddrP0 + pipe)
	if err := r.writeRegN(reg, addr[:]); err != nil {
		return err
	}
	en, err := r.readReg(regEnRxAddr)
	if err != nil {
		return err
	}
	return r.writeReg(regEnRxAddr, en|(1<<uint(pipe)))
}

// OpenWritingPipe writes TX_ADDR and mirrors it to RX_ADDR_P0, which the
// nRF24 requires so that pipe 0 is ready to receive (normally for an ACK,
// unused here, but the hardware still looks at RX_ADDR_P0 while PRIM_RX=0).
func (r *Radio) OpenWritingPipe(addr radio.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeRegN(regTxAddr, addr[:]); err != nil {
		return err
	}
	return r.writeRegN(regRxAddrP0, addr[:])
}

// MaskIRQ writes the three mask bits of CONFIG. This link only ever wants
// rxDone unmasked (txOK=true, txFail=true, rxDone=false means those two are
// masked off and RX-done is the only interrupt that reaches the IRQ pin).
func (r *Radio) MaskIRQ(txOK, txFail, rxDone bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.readReg(regConfig)
	if err != nil {
		return err
	}
	cfg = setBit(cfg, cfgMaskTXDS, txOK)
	cfg = setBit(cfg, cfgMaskMaxRT, txFail)
	cfg = setBit(cfg, cfgMaskRXDR, rxDone)
	return r.writeReg(regConfig, cfg)
}

// Write loads buf into the TX FIFO and pulses CE to start the burst. The
// nRF24 transmits autonomously once CE goes high for at least 10us; this
// link has no ACK and no retries, so Write returns as soon as the FIFO
// accepted the payload rather than waiting for TX_DS (spec §7: a send
// that never reaches the air looks identical to packet loss).
func (r *Radio) Write(buf []byte) error {
	if len(buf) != r.payloadSize {
		return fmt.Errorf("nrf24: write of %d bytes, want payload size %d", len(buf), r.payloadSize)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	w := make([]byte, len(buf)+1)
	w[0] = cmdWTxPayload
	copy(w[1:], buf)
	if err := r.conn.Tx(w, make([]byte, len(w))); err != nil {
		return err
	}
	if err := r.ce.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(15 * time.Microsecond)
	return r.ce.Out(gpio.Low)
}

// Available reports whether the RX FIFO holds at least one packet, via the
// STATUS register's RX_P_NO field.
func (r *Radio) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.readReg(regStatus)
	if err != nil {
		return false
	}
	return (st>>1)&0x07 != 0x07
}

// Read pulls the oldest packet out of the RX FIFO into buf and clears the
// RX_DR status bit.
func (r *Radio) Read(buf []byte) error {
	if len(buf) != r.payloadSize {
		return fmt.Errorf("nrf24: read into %d bytes, want payload size %d", len(buf), r.payloadSize)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	w := make([]byte, len(buf)+1)
	w[0] = cmdRRxPayload
	out := make([]byte, len(w))
	if err := r.conn.Tx(w, out); err != nil {
		return err
	}
	copy(buf, out[1:])
	return r.clearStatus()
}

// Wait implements radio.InterruptSource by waiting on the IRQ pin's falling
// edge. Returns false immediately if New was called without an irq pin;
// callers that only poll Available should not use a Radio as an
// InterruptSource.
func (r *Radio) Wait(timeout time.Duration) bool {
	if r.irq == nil {
		return false
	}
	return r.irq.WaitForEdge(timeout)
}

// Close releases the IRQ pin's edge configuration, if any.
func (r *Radio) Close() error {
	if r.irq == nil {
		return nil
	}
	return r.irq.In(gpio.PullUp, gpio.NoEdge)
}

func (r *Radio) clearStatus() error {
	return r.writeReg(regStatus, statusRXDR|statusTXDS|statusMaxRT)
}

func (r *Radio) command(cmd byte) error {
	return r.conn.Tx([]byte{cmd}, make([]byte, 1))
}

func (r *Radio) writeReg(addr, val byte) error {
	w := []byte{cmdWRegister | addr, val}
	return r.conn.Tx(w, make([]byte, len(w)))
}

func (r *Radio) writeRegN(addr byte, data []byte) error {
	w := make([]byte, len(data)+1)
	w[0] = cmdWRegister | addr
	copy(w[1:], data)
	return r.conn.Tx(w, make([]byte, len(w)))
}

func (r *Radio) readReg(addr byte) (byte, error) {
	w := []byte{addr & 0x1f, cmdNOP}
	out := make([]byte, 2)
	if err := r.conn.Tx(w, out); err != nil {
		return 0, err
	}
	return out[1], nil
}

func setBit(v byte, mask byte, set bool) byte {
	if set {
		return v | mask
	}
	return v &^ mask
}

var _ radio.Transceiver = (*Radio)(nil)
var _ radio.InterruptSource = (*Radio)(nil)

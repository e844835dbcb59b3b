// Copyright 2017 by Thorsten von Eicken, see LICENSE file

// Package spimux lets two SPI devices share a single chip-select line by
// demuxing it through an extra GPIO pin. frhop's cmd/frhop-bench uses this
// to run a Master and a Slave nRF24 radio wired to the same bus when only
// one hardware CS is broken out.
//
// A sample circuit is to use an 74LVC1G19 demux with the SPI CS connected to
// E, the gpio select pin connected to A, and the CS inputs of the two
// devices attached to Y0 and Y1 respectively. A pull-down resistor on the A
// input of the demux is recommended to ensure both CS remain inactive when
// the SPI CS is not driven.
//
// A limitation of this implementation is that the speed setting and the
// configuration (SPI mode and number of bits) is shared between the two
// devices, i.e., it is not possible to use different settings.
package spimux

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Conn represents a connection to a device on an SPI bus with a multiplexed
// chip select. The Tx function sets the demux select for the appropriate
// device and then performs a standard transaction.
type Conn struct {
	mu     *sync.Mutex  // prevent concurrent access to shared SPI bus
	conn   *spi.Conn    // the underlying SPI bus with shared chip select
	port   spi.PortCloser
	selPin gpio.PinIO // pin to select between two devices
	sel    gpio.Level // select value for this device
}

// New returns two connections for the provided SPI port, the first one
// using Low for the select pin, and the second using High.
func New(port spi.PortCloser, selPin gpio.PinIO) (*Conn, *Conn) {
	mu := sync.Mutex{} // shared mutex
	var conn spi.Conn  // shared spi.Conn, populated lazily on first Connect
	return &Conn{&mu, &conn, port, selPin, gpio.Low}, &Conn{&mu, &conn, port, selPin, gpio.High}
}

// Connect sets the device parameters and returns itself ('cause it's a
// spi.Port as well as a spi.Conn).
func (c *Conn) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *c.conn == nil {
		conn, err := c.port.Connect(f, mode, bits)
		if err != nil {
			return nil, err
		}
		*c.conn = conn
	}

	return c, nil
}

// Tx sets the select pin to the correct value and calls the underlying Tx.
func (c *Conn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selPin.Out(c.sel); err != nil {
		return err
	}
	return (*c.conn).Tx(w, r)
}

// String implements conn.Resource.
func (c *Conn) String() string { return "spimux" }

// Close is a no-op; the underlying port is closed by whoever created it.
func (c *Conn) Close() error { return nil }

// Duplex implements the spi.Conn interface.
func (c *Conn) Duplex() conn.Duplex { return conn.Full }

// TxPackets is not implemented; neither teacher endpoint needs batched
// packet transactions.
func (c *Conn) TxPackets(p []spi.Packet) error { return errors.New("spimux: TxPackets is not implemented") }

// LimitSpeed is not implemented; speed is fixed at Connect time.
func (c *Conn) LimitSpeed(f physic.Frequency) error { return errors.New("spimux: LimitSpeed is not implemented") }

var _ spi.Conn = &Conn{}
var _ spi.PortCloser = &Conn{}

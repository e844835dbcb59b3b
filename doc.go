// Package frhop implements a frame-locked, frequency-hopping half-duplex
// link between a Master and a Slave endpoint over a fixed-payload packet
// radio with no on-air acknowledgement and no retransmission.
//
// The core packages are fclock (wrap-safe frame timing), hopchan (the
// shared pseudo-random channel table), packet (header + payload codec),
// radio (the transceiver contract external to this module), stats
// (per-second counters), and the two endpoint packages master and slave.
// radio/nrf24 is a production transceiver driver over periph.io; cmd/
// holds demo binaries that wire everything together, including a
// single-host bench loopback using internal/spimux to share one SPI bus
// between a Master and a Slave radio.
package frhop

// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command frhop-bench runs a Master and a Slave endpoint in a single
// process against two nRF24L01+ modules wired to the same SPI bus through
// an internal/spimux select pin, for on-bench loopback testing without a
// second host.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/tve/frhop/internal/spimux"
	"github.com/tve/frhop/master"
	"github.com/tve/frhop/radio"
	"github.com/tve/frhop/radio/nrf24"
	"github.com/tve/frhop/slave"
)

// Config describes the shared bus and the two radios' distinct pins.
type Config struct {
	Debug bool

	SPI        string `toml:"spi"`
	MuxSelPin  string `toml:"mux_sel_pin"`
	MasterCE   string `toml:"master_ce_pin"`
	SlaveCE    string `toml:"slave_ce_pin"`
	SlaveIRQ   string `toml:"slave_irq_pin"`

	Power       int
	PacketSize  int   `toml:"packet_size"`
	NSend       int   `toml:"n_send"`
	NRecv       int   `toml:"n_recv"`
	FrameRate   int   `toml:"frame_rate"`
	MasterAddr  string `toml:"master_addr"`
	SlaveAddr   string `toml:"slave_addr"`
	ChannelLow  int    `toml:"channel_low"`
	ChannelHigh int    `toml:"channel_high"`
	ChannelSeed int64  `toml:"channel_seed"`
}

func parseAddr(s string) (radio.Address, error) {
	var a radio.Address
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(a) {
		return a, fmt.Errorf("address must be %d hex bytes, got %q", len(a), s)
	}
	copy(a[:], b)
	return a, nil
}

func main() {
	configFile := flag.String("config", "frhop-bench.toml", "path to config file")
	flag.Parse()

	cfg := Config{
		SPI: "SPI0.0", MuxSelPin: "GPIO23",
		MasterCE: "GPIO25", SlaveCE: "GPIO27", SlaveIRQ: "GPIO24",
		Power: 1, PacketSize: 8, NSend: 1, NRecv: 1, FrameRate: 50,
		MasterAddr: "010203", SlaveAddr: "060708",
		ChannelLow: 1, ChannelHigh: 40, ChannelSeed: 1,
	}
	if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "cannot read config file: %s\n", err)
		os.Exit(1)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	if _, err := host.Init(); err != nil {
		log.Fatal("host init failed", zap.Error(err))
	}

	bus, err := spireg.Open(cfg.SPI)
	if err != nil {
		log.Fatal("opening spi port failed", zap.String("spi", cfg.SPI), zap.Error(err))
	}
	selPin := gpioreg.ByName(cfg.MuxSelPin)
	if selPin == nil {
		log.Fatal("mux select pin not found", zap.String("pin", cfg.MuxSelPin))
	}
	masterPort, slavePort := spimux.New(bus, selPin)

	masterCE := gpioreg.ByName(cfg.MasterCE)
	slaveCE := gpioreg.ByName(cfg.SlaveCE)
	slaveIRQ := gpioreg.ByName(cfg.SlaveIRQ)
	if masterCE == nil || slaveCE == nil || slaveIRQ == nil {
		log.Fatal("one or more gpio pins not found")
	}

	masterTr, err := nrf24.New(masterPort, masterCE, nil)
	if err != nil {
		log.Fatal("master radio init failed", zap.Error(err))
	}
	slaveTr, err := nrf24.New(slavePort, slaveCE, slaveIRQ)
	if err != nil {
		log.Fatal("slave radio init failed", zap.Error(err))
	}

	masterAddr, err := parseAddr(cfg.MasterAddr)
	if err != nil {
		log.Fatal("bad master_addr", zap.Error(err))
	}
	slaveAddr, err := parseAddr(cfg.SlaveAddr)
	if err != nil {
		log.Fatal("bad slave_addr", zap.Error(err))
	}

	m, err := master.New(masterTr, master.Options{
		Power: cfg.Power, PacketSize: cfg.PacketSize, NSend: cfg.NSend, NRecv: cfg.NRecv,
		FrameRate: uint8(cfg.FrameRate), MasterAddr: masterAddr, SlaveAddr: slaveAddr,
		ChannelLow: byte(cfg.ChannelLow), ChannelHigh: byte(cfg.ChannelHigh), ChannelSeed: cfg.ChannelSeed,
		Logger: log,
	})
	if err != nil {
		log.Fatal("master init failed", zap.Error(err))
	}

	s, err := slave.New(slaveTr, slaveTr, slave.Options{
		Power: cfg.Power, PacketSize: cfg.PacketSize, NSend: cfg.NSend, NRecv: cfg.NRecv,
		FrameRate: uint8(cfg.FrameRate), MasterAddr: masterAddr, SlaveAddr: slaveAddr,
		ChannelLow: byte(cfg.ChannelLow), ChannelHigh: byte(cfg.ChannelHigh), ChannelSeed: cfg.ChannelSeed,
		Logger: log,
	})
	if err != nil {
		log.Fatal("slave init failed", zap.Error(err))
	}
	defer s.Close()

	log.Info("bench loopback running")
	go func() {
		for {
			m.WaitAndSend()
			m.Receive()
		}
	}()
	for {
		s.WaitAndSend()
		s.Receive()
		if s.IsSecondTick() {
			log.Info("slave stats",
				zap.String("state", s.State().String()),
				zap.Uint32("received_per_sec", s.ReceivedPerSecond()))
		}
	}
}

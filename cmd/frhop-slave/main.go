// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command frhop-slave runs the responding end of a frame-locked hopping
// link against a real nRF24L01+ on the local SPI/GPIO host.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/tve/frhop/internal/rtprio"
	"github.com/tve/frhop/radio"
	"github.com/tve/frhop/radio/nrf24"
	"github.com/tve/frhop/slave"
)

// Config mirrors the teacher's mqttradio.toml shape: a flat file whose
// top-level keys name the SPI bus and GPIO pins, plus this module's link
// parameters.
type Config struct {
	Debug      bool
	LogFile    string `toml:"log_file"`
	SPI        string `toml:"spi"`
	CEPin      string `toml:"ce_pin"`
	IRQPin     string `toml:"irq_pin"`
	Power      int
	PacketSize int    `toml:"packet_size"`
	NSend      int    `toml:"n_send"`
	NRecv      int    `toml:"n_recv"`
	FrameRate  int    `toml:"frame_rate"`

	MasterAddr string `toml:"master_addr"`
	SlaveAddr  string `toml:"slave_addr"`

	ChannelLow  int   `toml:"channel_low"`
	ChannelHigh int   `toml:"channel_high"`
	ChannelSeed int64 `toml:"channel_seed"`

	SlowAdapt bool `toml:"slow_adapt"`

	RTPriority int `toml:"rt_priority"`
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

func newLogger(cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	if cfg.LogFile == "" {
		return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
	}
	hook := &lumberjack.Logger{Filename: cfg.LogFile, MaxSize: 10, MaxBackups: 5, MaxAge: 30}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(hook), level))
}

func main() {
	configFile := flag.String("config", "frhop-slave.toml", "path to config file")
	flag.Parse()

	cfg := Config{
		SPI: "SPI0.0", CEPin: "GPIO25", IRQPin: "GPIO24",
		Power: 1, PacketSize: 8, NSend: 1, NRecv: 1, FrameRate: 50,
		MasterAddr: "010203", SlaveAddr: "060708",
		ChannelLow: 1, ChannelHigh: 40, ChannelSeed: 1,
	}
	if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "cannot read config file: %s\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	defer log.Sync()

	if _, err := host.Init(); err != nil {
		log.Fatal("host init failed", zap.Error(err))
	}

	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		log.Fatal("opening spi port failed", zap.String("spi", cfg.SPI), zap.Error(err))
	}
	cePin := gpioreg.ByName(cfg.CEPin)
	if cePin == nil {
		log.Fatal("ce pin not found", zap.String("pin", cfg.CEPin))
	}
	irqPin := gpioreg.ByName(cfg.IRQPin)
	if irqPin == nil {
		log.Fatal("irq pin not found", zap.String("pin", cfg.IRQPin))
	}

	tr, err := nrf24.New(port, cePin, irqPin)
	if err != nil {
		log.Fatal("radio init failed", zap.Error(err))
	}

	masterAddr, err := parseAddr(cfg.MasterAddr)
	if err != nil {
		log.Fatal("bad master_addr", zap.Error(err))
	}
	slaveAddr, err := parseAddr(cfg.SlaveAddr)
	if err != nil {
		log.Fatal("bad slave_addr", zap.Error(err))
	}

	s, err := slave.New(tr, tr, slave.Options{
		Power:         cfg.Power,
		PacketSize:    cfg.PacketSize,
		NSend:         cfg.NSend,
		NRecv:         cfg.NRecv,
		FrameRate:     uint8(cfg.FrameRate),
		MasterAddr:    masterAddr,
		SlaveAddr:     slaveAddr,
		ChannelLow:    byte(cfg.ChannelLow),
		ChannelHigh:   byte(cfg.ChannelHigh),
		ChannelSeed:   cfg.ChannelSeed,
		SlowAdapt:     cfg.SlowAdapt,
		SeparateTasks: false,
		Logger:        log,
	})
	if err != nil {
		log.Fatal("slave init failed", zap.Error(err))
	}
	defer s.Close()

	if cfg.RTPriority > 0 {
		if err := rtprio.Enable(cfg.RTPriority); err != nil {
			log.Warn("realtime scheduling unavailable, continuing best-effort", zap.Error(err))
		}
	}

	log.Info("slave running")
	for {
		s.WaitAndSend()
		s.Receive()
		if s.IsSecondTick() {
			log.Info("link stats",
				zap.String("state", s.State().String()),
				zap.Uint32("received_per_sec", s.ReceivedPerSecond()),
				zap.Uint32("sent_per_sec", s.SentPerSecond()),
				zap.Uint8("channel", s.CurrentChannel()))
		}
	}
}

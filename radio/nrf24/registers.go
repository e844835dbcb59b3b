package nrf24

// Register map for the Nordic nRF24L01(+) transceiver, the physical radio
// this link targets (spec §6 describes the contract in RF24-ish terms; the
// actual register layout comes from the datasheet).
const (
	regConfig     = 0x00
	regEnAA       = 0x01
	regEnRxAddr   = 0x02
	regSetupAW    = 0x03
	regSetupRetr  = 0x04
	regRFCh       = 0x05
	regRFSetup    = 0x06
	regStatus     = 0x07
	regRxAddrP0   = 0x0A
	regRxAddrP1   = 0x0B
	regTxAddr     = 0x10
	regRxPWP0     = 0x11
	regRxPWP1     = 0x12
	regDynPD      = 0x1C
	regFeature    = 0x1D
)

const (
	cmdRRxPayload = 0x61
	cmdWTxPayload = 0xA0
	cmdFlushTX    = 0xE1
	cmdFlushRX    = 0xE2
	cmdWRegister  = 0x20
	cmdNOP        = 0xFF
)

// CONFIG register bits.
const (
	cfgPrimRX  = 1 << 0
	cfgPwrUp   = 1 << 1
	cfgCRCO    = 1 << 2
	cfgEnCRC   = 1 << 3
	cfgMaskMaxRT = 1 << 4
	cfgMaskTXDS  = 1 << 5
	cfgMaskRXDR  = 1 << 6
)

// STATUS register bits.
const (
	statusTXFull  = 1 << 0
	statusMaxRT   = 1 << 4
	statusTXDS    = 1 << 5
	statusRXDR    = 1 << 6
)

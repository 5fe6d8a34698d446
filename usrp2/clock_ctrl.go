package usrp2

import (
	"fmt"

	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/util"
)

// AD9510 registers and fields used to gate the daughterboard clocks.
// OUT6 feeds the tx board and OUT7 the rx board, both in CMOS mode.
const (
	AD9510RegOut6   = 0x42
	AD9510RegOut7   = 0x43
	AD9510RegUpdate = 0x5A

	ad9510PowerDownBit = 0
	ad9510CMOSSelBit   = 3

	// instruction word, 16 bits then one data byte
	ad9510Bits      = 24
	ad9510AddrWidth = 13
)

// AD9510 is a ClockCtrl for the AD9510 clock distribution chip on the
// USRP2.  The chip is write only over SPI, so the enabled state of each
// output is remembered here.
type AD9510 struct {
	iface Transport

	rxEnabled bool
	txEnabled bool
}

var _ ClockCtrl = (*AD9510)(nil)

// NewAD9510 returns a clock controller using the given transport.  No
// registers are written until an Enable call.
func NewAD9510(iface Transport) *AD9510 {
	return &AD9510{iface: iface}
}

// writeReg writes one byte to a register, the instruction is
// R/W=0 (write), W1W0=0 (one byte), then the 13 bit address
func (c *AD9510) writeReg(addr uint16, val uint8) error {
	var w uint32
	w = util.SetField(w, 8, ad9510AddrWidth, uint32(addr))
	w = util.SetField(w, 0, 8, uint32(val))
	_, err := c.iface.TransactSPI(SPISSAD9510, dboard.NewSPIConfig(dboard.EdgeRise), w, ad9510Bits, false)
	if err != nil {
		return fmt.Errorf("AD9510 register %#x: %w", addr, err)
	}
	return nil
}

// outputReg is the value of an LVDS/CMOS output register: CMOS mode,
// powered down unless enabled
func outputReg(enb bool) uint8 {
	var w uint32
	w = util.SetBit(w, ad9510CMOSSelBit, true)
	w = util.SetBit(w, ad9510PowerDownBit, !enb)
	return uint8(w)
}

func (c *AD9510) enableOutput(reg uint16, enb bool) error {
	if err := c.writeReg(reg, outputReg(enb)); err != nil {
		return err
	}
	// latch the buffered registers
	return c.writeReg(AD9510RegUpdate, 1)
}

// EnableRxDboardClock turns the rx daughterboard clock (OUT7) on or off
func (c *AD9510) EnableRxDboardClock(enb bool) error {
	if err := c.enableOutput(AD9510RegOut7, enb); err != nil {
		return err
	}
	c.rxEnabled = enb
	return nil
}

// EnableTxDboardClock turns the tx daughterboard clock (OUT6) on or off
func (c *AD9510) EnableTxDboardClock(enb bool) error {
	if err := c.enableOutput(AD9510RegOut6, enb); err != nil {
		return err
	}
	c.txEnabled = enb
	return nil
}

// RxDboardClockEnabled returns true if the rx daughterboard clock was last enabled
func (c *AD9510) RxDboardClockEnabled() bool {
	return c.rxEnabled
}

// TxDboardClockEnabled returns true if the tx daughterboard clock was last enabled
func (c *AD9510) TxDboardClockEnabled() bool {
	return c.txEnabled
}

/*Package usrp2 implements the daughterboard interface of the USRP2 motherboard.

The two daughterboards share the motherboard's GPIO, ATR, and SPI blocks.
GPIO values and directions for both units are packed into single 32-bit
registers, rx in bits 0..15 and tx in bits 16..31.  The direction register is
write only, so DboardIface keeps a shadow of each packed register and merges
one unit's half into it before every write.

Each unit also carries an AD5624 quad DAC and an AD7922 dual ADC on the SPI
bus for low speed analog I/O, calibrated for a 3.3V reference.

Basic usage:
 d, err := usrp2.NewDboardIface(transport, clocks)
 if err != nil {
 	log.Fatal(err)
 }
 d.SetGPIODDR(dboard.UnitTx, 0x00FF)
 d.WriteGPIO(dboard.UnitTx, 0x0001)
 d.WriteAuxDAC(dboard.UnitRx, 0, 1.5) // 1.5V on DAC A of the rx board
 v, err := d.ReadAuxADC(dboard.UnitRx, 1)

A DboardIface is not safe for concurrent use, see dboard.NewLocked.
*/
package usrp2

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/util"
)

// Option configures a DboardIface
type Option func(*DboardIface)

// WithLogger sets the logger used by the DboardIface
func WithLogger(l *zap.Logger) Option {
	return func(d *DboardIface) {
		if l != nil {
			d.log = l
		}
	}
}

// DboardIface is the USRP2 implementation of dboard.Iface
type DboardIface struct {
	iface     Transport
	clockCtrl ClockCtrl
	log       *zap.Logger

	// ddrShadow and gpioShadow hold the last value written to FRGPIODDR
	// and FRGPIOIO
	ddrShadow  uint32
	gpioShadow uint32

	// dacRegs is the last command image sent to each unit's aux DAC
	dacRegs [2]AD5624
}

var _ dboard.Iface = (*DboardIface)(nil)

// NewDboardIface returns a new DboardIface.  The aux DACs of both units are
// reset before it returns; the error is the first transport error
// encountered doing so.
func NewDboardIface(iface Transport, clockCtrl ClockCtrl, opts ...Option) (*DboardIface, error) {
	d := &DboardIface{
		iface:     iface,
		clockCtrl: clockCtrl,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, u := range dboard.Units {
		d.dacRegs[u] = AD5624{
			Data: 1,
			Addr: AD5624AddrAll,
			Cmd:  AD5624CmdReset,
		}
		if err := d.writeAuxDAC(u); err != nil {
			return nil, fmt.Errorf("resetting %s aux DAC: %w", u, err)
		}
		d.log.Debug("aux DAC reset", zap.Stringer("unit", u))
	}
	return d, nil
}

// ClockRate returns the master clock frequency, the same for both units
func (d *DboardIface) ClockRate(u dboard.Unit) (float64, error) {
	if err := checkUnit(u); err != nil {
		return 0, err
	}
	return d.iface.MasterClockFreq(), nil
}

// SetClockEnabled enables or disables the clock to a unit
func (d *DboardIface) SetClockEnabled(u dboard.Unit, enb bool) error {
	switch u {
	case dboard.UnitRx:
		return d.clockCtrl.EnableRxDboardClock(enb)
	case dboard.UnitTx:
		return d.clockCtrl.EnableTxDboardClock(enb)
	default:
		return checkUnit(u)
	}
}

// ClockEnabled returns true if the clock to a unit is enabled
func (d *DboardIface) ClockEnabled(u dboard.Unit) (bool, error) {
	switch u {
	case dboard.UnitRx:
		return d.clockCtrl.RxDboardClockEnabled(), nil
	case dboard.UnitTx:
		return d.clockCtrl.TxDboardClockEnabled(), nil
	default:
		return false, checkUnit(u)
	}
}

// SetPinCtrl writes the full selection register of a unit.  Set bits
// put the pin under ATR control, clear bits under software control.
func (d *DboardIface) SetPinCtrl(u dboard.Unit, value uint16) error {
	if err := checkUnit(u); err != nil {
		return err
	}
	return d.iface.Poke32(unitToGPIOSel[u], pinCtrlSels(value))
}

// mergeUnit replaces the unit's half of a packed shadow and writes the
// result to addr.  The shadow is updated only if the write succeeded.
func (d *DboardIface) mergeUnit(shadow *uint32, addr uint32, u dboard.Unit, value uint16) error {
	if err := checkUnit(u); err != nil {
		return err
	}
	next := util.SetField(*shadow, unitToShift[u], unitFieldWidth, uint32(value))
	if err := d.iface.Poke32(addr, next); err != nil {
		return err
	}
	*shadow = next
	return nil
}

// SetGPIODDR sets the direction of the unit's pins, leaving the other unit's
// pins as last written
func (d *DboardIface) SetGPIODDR(u dboard.Unit, value uint16) error {
	return d.mergeUnit(&d.ddrShadow, FRGPIODDR, u, value)
}

// WriteGPIO sets the output value of the unit's pins, leaving the other
// unit's pins as last written
func (d *DboardIface) WriteGPIO(u dboard.Unit, value uint16) error {
	return d.mergeUnit(&d.gpioShadow, FRGPIOIO, u, value)
}

// ReadGPIO reads the value of the unit's pins from the hardware
func (d *DboardIface) ReadGPIO(u dboard.Unit) (uint16, error) {
	if err := checkUnit(u); err != nil {
		return 0, err
	}
	w, err := d.iface.Peek32(FRGPIOIO)
	if err != nil {
		return 0, err
	}
	return uint16(util.GetField(w, unitToShift[u], unitFieldWidth)), nil
}

// SetATRReg writes the pin values used by a unit in the given radio state
func (d *DboardIface) SetATRReg(u dboard.Unit, atr dboard.ATRReg, value uint16) error {
	addr, err := ATRAddr(u, atr)
	if err != nil {
		return err
	}
	return d.iface.Poke16(addr, value)
}

// WriteSPI clocks data out to the unit's configuration bus without readback
func (d *DboardIface) WriteSPI(u dboard.Unit, cfg dboard.SPIConfig, data uint32, nbits int) error {
	if err := checkSPI(u, nbits); err != nil {
		return err
	}
	_, err := d.iface.TransactSPI(unitToSPIDboard[u], cfg, data, nbits, false)
	return err
}

// ReadWriteSPI clocks data out to the unit's configuration bus and returns
// the bits clocked in
func (d *DboardIface) ReadWriteSPI(u dboard.Unit, cfg dboard.SPIConfig, data uint32, nbits int) (uint32, error) {
	if err := checkSPI(u, nbits); err != nil {
		return 0, err
	}
	return d.iface.TransactSPI(unitToSPIDboard[u], cfg, data, nbits, true)
}

// WriteI2C writes bytes to the device at addr on the shared I2C bus
func (d *DboardIface) WriteI2C(addr uint8, buf []byte) error {
	return d.iface.WriteI2C(addr, buf)
}

// ReadI2C reads n bytes from the device at addr on the shared I2C bus
func (d *DboardIface) ReadI2C(addr uint8, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: cannot read %d bytes", dboard.ErrInvalidArgument, n)
	}
	return d.iface.ReadI2C(addr, n)
}

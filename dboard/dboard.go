/*Package dboard describes the logical interface to the daughterboards plugged
into a software defined radio motherboard.

A motherboard has two daughterboard positions, or units: one on the receive
side and one on the transmit side.  The two units share GPIO, SPI, and clock
hardware on the motherboard, and each motherboard family maps the logical
operations in this package onto its own registers.  Package usrp2 provides
the implementation for the USRP2.

Implementations are not safe for concurrent use; the GPIO registers are
write-only and shared between units, so a partial update is a
read-modify-write against a software shadow.  Wrap an Iface with NewLocked
when more than one goroutine will use it.
*/
package dboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is wrapped by every error caused by a bad logical
// parameter (unit, ATR register, channel, or value out of range)
var ErrInvalidArgument = errors.New("invalid argument")

// Unit is one of the two daughterboard positions on a motherboard
type Unit int

const (
	// UnitRx is the receive side daughterboard
	UnitRx Unit = iota

	// UnitTx is the transmit side daughterboard
	UnitTx
)

// Units lists both units in a stable order
var Units = [...]Unit{UnitRx, UnitTx}

func (u Unit) String() string {
	switch u {
	case UnitRx:
		return "rx"
	case UnitTx:
		return "tx"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// Valid returns true if u is UnitRx or UnitTx
func (u Unit) Valid() bool {
	return u == UnitRx || u == UnitTx
}

// ParseUnit converts "rx" or "tx" (case insensitive) to a Unit
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "rx":
		return UnitRx, nil
	case "tx":
		return UnitTx, nil
	default:
		return 0, fmt.Errorf("%w: unit %q, must be rx or tx", ErrInvalidArgument, s)
	}
}

// ATRReg selects one of the automatic transmit/receive registers.  The
// hardware drives the pins under ATR control from the register matching the
// current state of the radio.
type ATRReg int

const (
	// ATRIdle is used when neither transmitting nor receiving
	ATRIdle ATRReg = iota

	// ATRTxOnly is used when only transmitting
	ATRTxOnly

	// ATRRxOnly is used when only receiving
	ATRRxOnly

	// ATRFullDuplex is used when transmitting and receiving
	ATRFullDuplex
)

// ATRRegs lists the ATR registers in a stable order
var ATRRegs = [...]ATRReg{ATRIdle, ATRTxOnly, ATRRxOnly, ATRFullDuplex}

func (a ATRReg) String() string {
	switch a {
	case ATRIdle:
		return "idle"
	case ATRTxOnly:
		return "tx-only"
	case ATRRxOnly:
		return "rx-only"
	case ATRFullDuplex:
		return "full-duplex"
	default:
		return fmt.Sprintf("ATRReg(%d)", int(a))
	}
}

// ParseATRReg converts the String form of an ATRReg back to the ATRReg
func ParseATRReg(s string) (ATRReg, error) {
	lower := strings.ToLower(s)
	for _, a := range ATRRegs {
		if a.String() == lower {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: ATR register %q, must be one of idle, tx-only, rx-only, full-duplex", ErrInvalidArgument, s)
}

// SPIEdge is the clock edge data is latched on
type SPIEdge int

const (
	// EdgeRise latches on the rising edge of the clock
	EdgeRise SPIEdge = iota

	// EdgeFall latches on the falling edge of the clock
	EdgeFall
)

func (e SPIEdge) String() string {
	if e == EdgeFall {
		return "fall"
	}
	return "rise"
}

// ParseSPIEdge converts "rise" or "fall" to an SPIEdge
func ParseSPIEdge(s string) (SPIEdge, error) {
	switch strings.ToLower(s) {
	case "rise":
		return EdgeRise, nil
	case "fall":
		return EdgeFall, nil
	}
	return 0, fmt.Errorf("%w: SPI edge %q, must be rise or fall", ErrInvalidArgument, s)
}

// MarshalText encodes the edge as "rise" or "fall"
func (e SPIEdge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes "rise" or "fall"
func (e *SPIEdge) UnmarshalText(b []byte) error {
	v, err := ParseSPIEdge(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// SPIConfig holds the clock edges for outgoing (MOSI) and incoming (MISO) data
type SPIConfig struct {
	MOSIEdge SPIEdge `json:"mosiEdge"`
	MISOEdge SPIEdge `json:"misoEdge"`
}

// NewSPIConfig returns a config with both edges set to e
func NewSPIConfig(e SPIEdge) SPIConfig {
	return SPIConfig{MOSIEdge: e, MISOEdge: e}
}

// GPIO is the bank of 16 general purpose pins available to each unit
type GPIO interface {
	// SetPinCtrl selects, pin by pin, if the pin is driven by the ATR
	// registers (bit set) or by software via WriteGPIO (bit clear)
	SetPinCtrl(Unit, uint16) error

	// SetGPIODDR sets the data direction of the pins, a set bit is an output
	SetGPIODDR(Unit, uint16) error

	// WriteGPIO sets the value of the pins under software control
	WriteGPIO(Unit, uint16) error

	// ReadGPIO reads the current value of the pins
	ReadGPIO(Unit) (uint16, error)
}

// ATR exposes the automatic transmit/receive registers
type ATR interface {
	// SetATRReg sets the pin values used in the given radio state
	SetATRReg(Unit, ATRReg, uint16) error
}

// SPI is the serial bus used to configure the daughterboard
type SPI interface {
	// WriteSPI clocks out the lowest nbits of data, discarding the response
	WriteSPI(u Unit, cfg SPIConfig, data uint32, nbits int) error

	// ReadWriteSPI clocks out the lowest nbits of data and returns the
	// bits clocked in during the same transaction
	ReadWriteSPI(u Unit, cfg SPIConfig, data uint32, nbits int) (uint32, error)
}

// I2C is the byte oriented auxiliary bus shared by both units
type I2C interface {
	// WriteI2C writes bytes to the device at addr
	WriteI2C(addr uint8, buf []byte) error

	// ReadI2C reads n bytes from the device at addr
	ReadI2C(addr uint8, n int) ([]byte, error)
}

// Clock controls the reference clock supplied to each unit
type Clock interface {
	// ClockRate returns the frequency of the clock supplied to the unit, in Hz
	ClockRate(Unit) (float64, error)

	// SetClockEnabled turns the clock to the unit on or off
	SetClockEnabled(Unit, bool) error

	// ClockEnabled returns true if the clock to the unit is on
	ClockEnabled(Unit) (bool, error)
}

// AuxIO is the low speed analog I/O available to each unit
type AuxIO interface {
	// WriteAuxDAC outputs a voltage on one of the auxiliary DAC channels
	WriteAuxDAC(u Unit, channel int, volts float64) error

	// ReadAuxADC reads the voltage on one of the auxiliary ADC channels
	ReadAuxADC(u Unit, channel int) (float64, error)
}

// Iface is everything a daughterboard driver may do to the motherboard
type Iface interface {
	GPIO
	ATR
	SPI
	I2C
	Clock
	AuxIO
}

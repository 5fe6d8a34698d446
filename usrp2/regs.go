package usrp2

import (
	"fmt"

	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/util"
)

// wishbone addresses of the registers shared by the daughterboards
const (
	gpioBase = 0xC800

	// FRGPIOIO holds the pin values, rx in the low half and tx in the high half.
	// It is readable and writable.
	FRGPIOIO = gpioBase + 0

	// FRGPIODDR holds the pin directions, packed as FRGPIOIO.  It is write only.
	FRGPIODDR = gpioBase + 4

	// FRGPIOTxSel holds 16 two bit selection fields for the tx pins
	FRGPIOTxSel = gpioBase + 8

	// FRGPIORxSel holds 16 two bit selection fields for the rx pins
	FRGPIORxSel = gpioBase + 12

	atrBase = 0xE400

	FRATRIdleTxSide = atrBase + 0
	FRATRIdleRxSide = atrBase + 2
	FRATRInTxTxSide = atrBase + 4
	FRATRInTxRxSide = atrBase + 6
	FRATRInRxTxSide = atrBase + 8
	FRATRInRxRxSide = atrBase + 10
	FRATRFullTxSide = atrBase + 12
	FRATRFullRxSide = atrBase + 14
)

// values of the two bit GPIO selection fields
const (
	// GPIOSelSW drives the pin from FRGPIOIO
	GPIOSelSW = 0

	// GPIOSelATR drives the pin from the ATR register of the current state
	GPIOSelATR = 1

	gpioSelWidth = 2
)

// SPI slave selects.  Each is a one-hot bit; the DAC, ADC, and configuration
// bus of a unit share clock and data lines but never a select.
const (
	SPISSAD9510 = 1
	SPISSAD9777 = 2
	SPISSRxDAC  = 4
	SPISSRxADC  = 8
	SPISSRxDB   = 16
	SPISSTxDAC  = 32
	SPISSTxADC  = 64
	SPISSTxDB   = 128
)

const unitFieldWidth = 16

var (
	// unitToShift is the offset of a unit's field in FRGPIOIO and FRGPIODDR
	unitToShift = [...]uint{
		dboard.UnitRx: 0,
		dboard.UnitTx: 16,
	}

	unitToGPIOSel = [...]uint32{
		dboard.UnitRx: FRGPIORxSel,
		dboard.UnitTx: FRGPIOTxSel,
	}

	unitToSPIDboard = [...]int{
		dboard.UnitRx: SPISSRxDB,
		dboard.UnitTx: SPISSTxDB,
	}

	unitToSPIDAC = [...]int{
		dboard.UnitRx: SPISSRxDAC,
		dboard.UnitTx: SPISSTxDAC,
	}

	unitToSPIADC = [...]int{
		dboard.UnitRx: SPISSRxADC,
		dboard.UnitTx: SPISSTxADC,
	}

	unitToATRToAddr = [...][4]uint32{
		dboard.UnitRx: {
			dboard.ATRIdle:       FRATRIdleRxSide,
			dboard.ATRTxOnly:     FRATRInTxRxSide,
			dboard.ATRRxOnly:     FRATRInRxRxSide,
			dboard.ATRFullDuplex: FRATRFullRxSide,
		},
		dboard.UnitTx: {
			dboard.ATRIdle:       FRATRIdleTxSide,
			dboard.ATRTxOnly:     FRATRInTxTxSide,
			dboard.ATRRxOnly:     FRATRInRxTxSide,
			dboard.ATRFullDuplex: FRATRFullTxSide,
		},
	}
)

func checkUnit(u dboard.Unit) error {
	if !u.Valid() {
		return fmt.Errorf("%w: unknown unit %d", dboard.ErrInvalidArgument, int(u))
	}
	return nil
}

// checkSPI validates the unit and that nbits fits in one word
func checkSPI(u dboard.Unit, nbits int) error {
	if err := checkUnit(u); err != nil {
		return err
	}
	if nbits < 1 || nbits > 32 {
		return fmt.Errorf("%w: SPI transfer of %d bits, must be 1 to 32", dboard.ErrInvalidArgument, nbits)
	}
	return nil
}

// ATRAddr returns the address of the ATR register for the unit and state
func ATRAddr(u dboard.Unit, atr dboard.ATRReg) (uint32, error) {
	if err := checkUnit(u); err != nil {
		return 0, err
	}
	if atr < dboard.ATRIdle || atr > dboard.ATRFullDuplex {
		return 0, fmt.Errorf("%w: unknown ATR register %d", dboard.ErrInvalidArgument, int(atr))
	}
	return unitToATRToAddr[u][atr], nil
}

// pinCtrlSels expands one bit per pin to the two bit selection fields,
// ATR where the bit is set and software where it is clear
func pinCtrlSels(value uint16) uint32 {
	var sels uint32
	for i := uint(0); i < unitFieldWidth; i++ {
		sel := uint32(GPIOSelSW)
		if util.GetBit(uint32(value), i) {
			sel = GPIOSelATR
		}
		sels = util.SetField(sels, i*gpioSelWidth, gpioSelWidth, sel)
	}
	return sels
}

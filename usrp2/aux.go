package usrp2

import (
	"fmt"

	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/mathx"
)

// AuxVRef is the reference voltage of the aux DACs and ADCs
const AuxVRef = 3.3

// writeAuxDAC sends the unit's DAC image as a 24-bit write only transfer
func (d *DboardIface) writeAuxDAC(u dboard.Unit) error {
	_, err := d.iface.TransactSPI(
		unitToSPIDAC[u], dboard.NewSPIConfig(dboard.EdgeFall),
		d.dacRegs[u].Reg(), AD5624Bits, false)
	return err
}

// VoltsToDAC converts a voltage to an aux DAC code.  The error is non-nil
// if the voltage is outside [0, AuxVRef] after rounding to the nearest code.
func VoltsToDAC(volts float64) (uint16, error) {
	scaled := mathx.Scale(volts, AuxVRef, AD5624FullScale)
	// written so that NaN fails
	if !(scaled > -0.5 && scaled < AD5624FullScale+0.5) {
		return 0, fmt.Errorf("%w: %f V is outside the aux DAC range 0 to %.1f V", dboard.ErrInvalidArgument, volts, AuxVRef)
	}
	return uint16(mathx.IRound(scaled)), nil
}

// ADCToVolts converts an aux ADC result to a voltage
func ADCToVolts(result uint16) float64 {
	return AuxVRef * float64(result) / AD7922FullScale
}

// WriteAuxDAC outputs a voltage on one of the unit's four aux DAC channels.
// channel must be 0, 1, 2, or 3.  Nothing is sent if the channel or voltage
// is invalid.
func (d *DboardIface) WriteAuxDAC(u dboard.Unit, channel int, volts float64) error {
	if err := checkUnit(u); err != nil {
		return err
	}
	if channel < 0 || channel >= len(ad5624ChannelAddr) {
		return fmt.Errorf("%w: aux DAC %d, must be 0, 1, 2, or 3", dboard.ErrInvalidArgument, channel)
	}
	code, err := VoltsToDAC(volts)
	if err != nil {
		return err
	}
	d.dacRegs[u] = AD5624{
		Data: code,
		Addr: ad5624ChannelAddr[channel],
		Cmd:  AD5624CmdWrUpDACChanN,
	}
	return d.writeAuxDAC(u)
}

// ReadAuxADC reads the voltage on one of the unit's two aux ADC channels.
//
// The AD7922 returns the result of the conversion selected by the previous
// transfer, so the channel is selected by one write only transfer and the
// result read by a second.  The two transfers must not be separated by
// another transfer to the same ADC.
func (d *DboardIface) ReadAuxADC(u dboard.Unit, channel int) (float64, error) {
	if err := checkUnit(u); err != nil {
		return 0, err
	}
	if channel < 0 || channel >= AD7922Channels {
		return 0, fmt.Errorf("%w: aux ADC %d, must be 0 or 1", dboard.ErrInvalidArgument, channel)
	}
	cfg := dboard.SPIConfig{MOSIEdge: dboard.EdgeFall, MISOEdge: dboard.EdgeRise}

	// normal mode: mod == chn
	regs := AD7922{Mod: uint8(channel), Chn: uint8(channel)}
	which := unitToSPIADC[u]
	if _, err := d.iface.TransactSPI(which, cfg, regs.Reg(), AD7922Bits, false); err != nil {
		return 0, err
	}
	rb, err := d.iface.TransactSPI(which, cfg, regs.Reg(), AD7922Bits, true)
	if err != nil {
		return 0, err
	}
	regs.SetReg(uint32(uint16(rb)))
	return ADCToVolts(regs.Result), nil
}

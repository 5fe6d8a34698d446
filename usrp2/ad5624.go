package usrp2

import "github.com/nasa-jpl/dboard/util"

// AD5624 command codes, bits 19..21 of the shift register
const (
	AD5624CmdWrInputN      = 0
	AD5624CmdUpDACN        = 1
	AD5624CmdWrInputNUpAll = 2
	AD5624CmdWrUpDACChanN  = 3
	AD5624CmdPowerDown     = 4
	AD5624CmdReset         = 5
	AD5624CmdLoadLDAC      = 6
)

// AD5624 address codes, bits 16..18 of the shift register
const (
	AD5624AddrDACA = 0
	AD5624AddrDACB = 1
	AD5624AddrDACC = 2
	AD5624AddrDACD = 3
	AD5624AddrAll  = 7
)

// AD5624Bits is the length of an AD5624 transfer
const AD5624Bits = 24

// AD5624FullScale is the largest 12-bit data code
const AD5624FullScale = 4095

// ad5624ChannelAddr maps aux DAC channel 0..3 to the chip's address code
var ad5624ChannelAddr = [...]uint8{
	AD5624AddrDACA,
	AD5624AddrDACB,
	AD5624AddrDACC,
	AD5624AddrDACD,
}

// AD5624 is the shift register image of an Analog Devices AD5624,
// a quad 12-bit DAC
type AD5624 struct {
	// Data is the 12-bit output code
	Data uint16

	// Addr is one of the AD5624Addr constants
	Addr uint8

	// Cmd is one of the AD5624Cmd constants
	Cmd uint8
}

// Reg packs the image into the low 24 bits of a word
func (r AD5624) Reg() uint32 {
	var w uint32
	w = util.SetField(w, 4, 12, uint32(r.Data))
	w = util.SetField(w, 16, 3, uint32(r.Addr))
	w = util.SetField(w, 19, 3, uint32(r.Cmd))
	return w
}

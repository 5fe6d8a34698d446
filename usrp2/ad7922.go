package usrp2

import "github.com/nasa-jpl/dboard/util"

// AD7922Bits is the length of an AD7922 transfer
const AD7922Bits = 16

// AD7922FullScale is the largest 12-bit conversion result
const AD7922FullScale = 4095

// AD7922Channels is the number of inputs on the chip
const AD7922Channels = 2

// AD7922 is the shift register image of an Analog Devices AD7922,
// a dual 12-bit successive approximation ADC.
//
// On the way out Mod and Chn select the input for the next conversion; in
// normal single channel operation they are equal.  On the way in Result holds
// the conversion selected by the previous transfer.
type AD7922 struct {
	Result uint16
	Mod    uint8
	Chn    uint8
}

// Reg packs the image into the low 16 bits of a word
func (r AD7922) Reg() uint32 {
	var w uint32
	w = util.SetField(w, 0, 12, uint32(r.Result))
	w = util.SetField(w, 12, 1, uint32(r.Mod))
	w = util.SetField(w, 13, 1, uint32(r.Chn))
	return w
}

// SetReg unpacks a word clocked in from the chip
func (r *AD7922) SetReg(w uint32) {
	r.Result = uint16(util.GetField(w, 0, 12))
	r.Mod = uint8(util.GetField(w, 12, 1))
	r.Chn = uint8(util.GetField(w, 13, 1))
}

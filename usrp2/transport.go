package usrp2

import "github.com/nasa-jpl/dboard/dboard"

// Transport is the control path to the USRP2 FPGA and the chips attached to
// its SPI and I2C masters.  Every call blocks until the motherboard has
// completed the transaction.  Implementations must serialize transactions.
type Transport interface {
	// Poke32 writes a 32-bit register
	Poke32(addr uint32, data uint32) error

	// Poke16 writes a 16-bit register
	Poke16(addr uint32, data uint16) error

	// Peek32 reads a 32-bit register
	Peek32(addr uint32) (uint32, error)

	// TransactSPI clocks nbits of data out to the slave(s) selected by which.
	// If readback is true the bits clocked in are returned, otherwise the
	// returned value is zero and the caller does not wait on the response.
	TransactSPI(which int, cfg dboard.SPIConfig, data uint32, nbits int, readback bool) (uint32, error)

	// WriteI2C writes bytes to the device at addr
	WriteI2C(addr uint8, buf []byte) error

	// ReadI2C reads n bytes from the device at addr
	ReadI2C(addr uint8, n int) ([]byte, error)

	// MasterClockFreq returns the frequency of the motherboard clock in Hz
	MasterClockFreq() float64
}

// ClockCtrl switches the clocks distributed to the daughterboards
type ClockCtrl interface {
	EnableRxDboardClock(bool) error
	EnableTxDboardClock(bool) error
	RxDboardClockEnabled() bool
	TxDboardClockEnabled() bool
}

package dboard

import "sync"

// Locked wraps an Iface so that each call holds a mutex for its duration.
// The read-modify-write of a shadow register and the bus write that follows
// it are then one unit with respect to other goroutines.
type Locked struct {
	mu sync.Mutex
	d  Iface
}

var _ Iface = (*Locked)(nil)

// NewLocked returns a concurrent safe view of d.  d must not be used
// directly once wrapped.
func NewLocked(d Iface) *Locked {
	return &Locked{d: d}
}

// SetPinCtrl calls SetPinCtrl on the wrapped Iface
func (l *Locked) SetPinCtrl(u Unit, v uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.SetPinCtrl(u, v)
}

// SetGPIODDR calls SetGPIODDR on the wrapped Iface
func (l *Locked) SetGPIODDR(u Unit, v uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.SetGPIODDR(u, v)
}

// WriteGPIO calls WriteGPIO on the wrapped Iface
func (l *Locked) WriteGPIO(u Unit, v uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.WriteGPIO(u, v)
}

// ReadGPIO calls ReadGPIO on the wrapped Iface
func (l *Locked) ReadGPIO(u Unit) (uint16, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.ReadGPIO(u)
}

// SetATRReg calls SetATRReg on the wrapped Iface
func (l *Locked) SetATRReg(u Unit, a ATRReg, v uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.SetATRReg(u, a, v)
}

// WriteSPI calls WriteSPI on the wrapped Iface
func (l *Locked) WriteSPI(u Unit, cfg SPIConfig, data uint32, nbits int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.WriteSPI(u, cfg, data, nbits)
}

// ReadWriteSPI calls ReadWriteSPI on the wrapped Iface
func (l *Locked) ReadWriteSPI(u Unit, cfg SPIConfig, data uint32, nbits int) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.ReadWriteSPI(u, cfg, data, nbits)
}

// WriteI2C calls WriteI2C on the wrapped Iface
func (l *Locked) WriteI2C(addr uint8, buf []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.WriteI2C(addr, buf)
}

// ReadI2C calls ReadI2C on the wrapped Iface
func (l *Locked) ReadI2C(addr uint8, n int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.ReadI2C(addr, n)
}

// ClockRate calls ClockRate on the wrapped Iface
func (l *Locked) ClockRate(u Unit) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.ClockRate(u)
}

// SetClockEnabled calls SetClockEnabled on the wrapped Iface
func (l *Locked) SetClockEnabled(u Unit, enb bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.SetClockEnabled(u, enb)
}

// ClockEnabled calls ClockEnabled on the wrapped Iface
func (l *Locked) ClockEnabled(u Unit) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.ClockEnabled(u)
}

// WriteAuxDAC calls WriteAuxDAC on the wrapped Iface
func (l *Locked) WriteAuxDAC(u Unit, channel int, volts float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.WriteAuxDAC(u, channel, volts)
}

// ReadAuxADC calls ReadAuxADC on the wrapped Iface
func (l *Locked) ReadAuxADC(u Unit, channel int) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.ReadAuxADC(u, channel)
}

package comm

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/mathx"
	"github.com/nasa-jpl/dboard/usrp2"
)

// SPITransfer is one SPI transfer seen by a Mock
type SPITransfer struct {
	Which    int
	Cfg      dboard.SPIConfig
	Data     uint32
	NBits    int
	Readback bool
}

// Mock is an in-memory USRP2 motherboard.  It answers control packets the
// way the firmware does and implements Link, so it can stand in for the
// hardware behind a Motherboard.
//
// The register file is flat; every address reads back what was last written
// to it.  The aux ADCs behave like an AD7922: each transfer returns the
// conversion of the input selected by the previous transfer on the same
// select.
type Mock struct {
	mu sync.Mutex

	regs     map[uint32]uint32
	spi      []SPITransfer
	adcIn    map[int]*[usrp2.AD7922Channels]float64
	adcNext  map[int]uint8
	i2c      map[uint8][]byte
	spiReply map[int]uint32

	log *zap.Logger
}

// NewMock returns a Mock with a zero register file, both aux ADCs present
// with grounded inputs, and no I2C devices
func NewMock() *Mock {
	return &Mock{
		regs: map[uint32]uint32{},
		adcIn: map[int]*[usrp2.AD7922Channels]float64{
			usrp2.SPISSRxADC: {},
			usrp2.SPISSTxADC: {},
		},
		adcNext:  map[int]uint8{},
		i2c:      map[uint8][]byte{},
		spiReply: map[int]uint32{},
		log:      zap.NewNop(),
	}
}

// SetLogger sets the logger used to trace handled packets
func (m *Mock) SetLogger(l *zap.Logger) {
	if l != nil {
		m.log = l
	}
}

// SetADCInput sets the voltage on one input of the aux ADC behind a select
func (m *Mock) SetADCInput(which int, channel int, volts float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.adcIn[which]; ok && channel >= 0 && channel < len(in) {
		in[channel] = volts
	}
}

// SetSPIReply sets the word clocked back by transfers with readback on a
// select that is not an aux ADC
func (m *Mock) SetSPIReply(which int, data uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spiReply[which] = data
}

// AddI2CDevice makes addr acknowledge, with mem as its initial contents
func (m *Mock) AddI2CDevice(addr uint8, mem []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.i2c[addr] = append([]byte(nil), mem...)
}

// Reg returns the last value written to a register
func (m *Mock) Reg(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// SPI returns the SPI transfers handled so far, oldest first
func (m *Mock) SPI() []SPITransfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SPITransfer(nil), m.spi...)
}

// RoundTrip handles req in memory
func (m *Mock) RoundTrip(req []byte) ([]byte, error) {
	resp := m.Handle(req)
	if resp == nil {
		return nil, ErrBadVersion
	}
	return resp, nil
}

// Close does nothing
func (m *Mock) Close() error {
	return nil
}

// ServeStream answers framed requests read from rw until it is closed.
// It returns nil when the stream ends cleanly.
func (m *Mock) ServeStream(rw io.ReadWriter) error {
	for {
		req, err := readFrame(rw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		resp := m.Handle(req)
		if resp == nil {
			continue
		}
		if err := writeFrame(rw, resp); err != nil {
			return err
		}
	}
}

// Handle decodes one request packet and returns the reply packet.  A request
// too mangled to answer yields nil.
func (m *Mock) Handle(req []byte) []byte {
	p, err := decodePacket(req)
	if err != nil || p.op&opReply != 0 {
		m.log.Warn("mock dropped packet", zap.Error(err))
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	status, body := m.handle(p.op, &decoder{b: p.body})
	m.log.Debug("mock handled packet",
		zap.Uint8("op", p.op), zap.Uint32("seq", p.seq), zap.Uint8("status", status))
	return encodeReply(p.op, p.seq, status, body)
}

func (m *Mock) handle(op byte, d *decoder) (byte, []byte) {
	e := encoder{}
	switch op {
	case opPoke32:
		addr, data := d.u32(), d.u32()
		if d.err != nil {
			return statusBadRequest, nil
		}
		m.regs[addr] = data
	case opPoke16:
		addr, data := d.u32(), d.u16()
		if d.err != nil {
			return statusBadRequest, nil
		}
		m.regs[addr] = uint32(data)
	case opPeek32:
		addr := d.u32()
		if d.err != nil {
			return statusBadRequest, nil
		}
		e.u32(m.regs[addr])
	case opSPI:
		s := decodeSPIBody(d)
		if d.err != nil || s.nbits < 1 || s.nbits > 32 {
			return statusBadRequest, nil
		}
		rb := m.spiTransfer(s)
		if s.readback {
			e.u32(rb)
		}
	case opI2CWrite:
		addr := d.u8()
		buf := d.take(int(d.u8()))
		if d.err != nil {
			return statusBadRequest, nil
		}
		if _, ok := m.i2c[addr]; !ok {
			return statusNack, nil
		}
		m.i2c[addr] = append([]byte(nil), buf...)
	case opI2CRead:
		addr, n := d.u8(), int(d.u8())
		if d.err != nil {
			return statusBadRequest, nil
		}
		mem, ok := m.i2c[addr]
		if !ok {
			return statusNack, nil
		}
		out := make([]byte, n)
		copy(out, mem)
		e.u8(byte(n))
		e.bytes(out)
	default:
		return statusUnsupported, nil
	}
	return statusOK, e.b
}

// spiTransfer logs a transfer and returns the word clocked back
func (m *Mock) spiTransfer(s spiBody) uint32 {
	which := int(s.which)
	m.spi = append(m.spi, SPITransfer{
		Which:    which,
		Cfg:      s.cfg,
		Data:     s.data,
		NBits:    int(s.nbits),
		Readback: s.readback,
	})
	in, ok := m.adcIn[which]
	if !ok {
		return m.spiReply[which]
	}
	var sel usrp2.AD7922
	sel.SetReg(s.data)
	prev := m.adcNext[which]
	m.adcNext[which] = sel.Chn
	out := usrp2.AD7922{Result: adcCode(in[prev]), Mod: prev, Chn: prev}
	return out.Reg()
}

// adcCode converts a voltage to a 12-bit conversion result, clipping at the rails
func adcCode(volts float64) uint16 {
	code := mathx.IRound(mathx.Scale(volts, usrp2.AuxVRef, usrp2.AD7922FullScale))
	if code < 0 {
		return 0
	}
	if code > usrp2.AD7922FullScale {
		return usrp2.AD7922FullScale
	}
	return uint16(code)
}

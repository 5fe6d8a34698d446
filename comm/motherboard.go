package comm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/dboard/dboard"
)

// Option configures a Motherboard
type Option func(*Motherboard)

// WithLogger sets the logger used by the Motherboard
func WithLogger(l *zap.Logger) Option {
	return func(m *Motherboard) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRateLimit paces control packets to at most pps per second.
// pps <= 0 removes the limit.
func WithRateLimit(pps float64) Option {
	return func(m *Motherboard) {
		if pps <= 0 {
			m.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		m.limiter = rate.NewLimiter(rate.Limit(pps), 1)
	}
}

// Motherboard is a usrp2.Transport over a Link.  Transactions are
// serialized; each one is a request and the matching reply.
type Motherboard struct {
	mu      sync.Mutex
	link    Link
	seq     uint32
	clock   float64
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewMotherboard returns a transport over link.  masterClock is the
// motherboard clock frequency in Hz, reported by MasterClockFreq.
func NewMotherboard(link Link, masterClock float64, opts ...Option) *Motherboard {
	m := &Motherboard{
		link:    link,
		clock:   masterClock,
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// transact sends one request and returns the body of its reply
func (m *Motherboard) transact(op byte, body []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}
	m.seq++
	seq := m.seq
	raw, err := m.link.RoundTrip(encodeRequest(op, seq, body))
	if err != nil {
		return nil, err
	}
	p, err := decodePacket(raw)
	if err != nil {
		return nil, err
	}
	if p.op != op|opReply || p.seq != seq {
		m.log.Warn("unexpected control reply",
			zap.Uint8("op", op), zap.Uint32("seq", seq),
			zap.Uint8("replyOp", p.op), zap.Uint32("replySeq", p.seq))
		return nil, ErrSeqMismatch
	}
	if err := statusErr(p.status); err != nil {
		return nil, err
	}
	return p.body, nil
}

// Poke32 writes a 32-bit register
func (m *Motherboard) Poke32(addr uint32, data uint32) error {
	e := encoder{}
	e.u32(addr)
	e.u32(data)
	if _, err := m.transact(opPoke32, e.b); err != nil {
		return fmt.Errorf("poke32 %#x: %w", addr, err)
	}
	return nil
}

// Poke16 writes a 16-bit register
func (m *Motherboard) Poke16(addr uint32, data uint16) error {
	e := encoder{}
	e.u32(addr)
	e.u16(data)
	if _, err := m.transact(opPoke16, e.b); err != nil {
		return fmt.Errorf("poke16 %#x: %w", addr, err)
	}
	return nil
}

// Peek32 reads a 32-bit register
func (m *Motherboard) Peek32(addr uint32) (uint32, error) {
	e := encoder{}
	e.u32(addr)
	body, err := m.transact(opPeek32, e.b)
	if err != nil {
		return 0, fmt.Errorf("peek32 %#x: %w", addr, err)
	}
	d := decoder{b: body}
	v := d.u32()
	if d.err != nil {
		return 0, fmt.Errorf("peek32 %#x: %w", addr, d.err)
	}
	return v, nil
}

// TransactSPI performs one SPI transfer on the motherboard's SPI master
func (m *Motherboard) TransactSPI(which int, cfg dboard.SPIConfig, data uint32, nbits int, readback bool) (uint32, error) {
	if nbits < 1 || nbits > 32 {
		return 0, fmt.Errorf("%w: SPI transfer of %d bits", dboard.ErrInvalidArgument, nbits)
	}
	e := encoder{}
	spiBody{which: uint32(which), cfg: cfg, data: data, nbits: byte(nbits), readback: readback}.encode(&e)
	body, err := m.transact(opSPI, e.b)
	if err != nil {
		return 0, fmt.Errorf("spi select %#x: %w", which, err)
	}
	if !readback {
		return 0, nil
	}
	d := decoder{b: body}
	v := d.u32()
	if d.err != nil {
		return 0, fmt.Errorf("spi select %#x: %w", which, d.err)
	}
	return v, nil
}

// WriteI2C writes bytes to the device at addr
func (m *Motherboard) WriteI2C(addr uint8, buf []byte) error {
	if len(buf) > MaxI2CBytes {
		return fmt.Errorf("%w: I2C write of %d bytes, at most %d", dboard.ErrInvalidArgument, len(buf), MaxI2CBytes)
	}
	e := encoder{}
	e.u8(addr)
	e.u8(byte(len(buf)))
	e.bytes(buf)
	if _, err := m.transact(opI2CWrite, e.b); err != nil {
		return fmt.Errorf("i2c write %#x: %w", addr, err)
	}
	return nil
}

// ReadI2C reads n bytes from the device at addr
func (m *Motherboard) ReadI2C(addr uint8, n int) ([]byte, error) {
	if n < 0 || n > MaxI2CBytes {
		return nil, fmt.Errorf("%w: I2C read of %d bytes, at most %d", dboard.ErrInvalidArgument, n, MaxI2CBytes)
	}
	e := encoder{}
	e.u8(addr)
	e.u8(byte(n))
	body, err := m.transact(opI2CRead, e.b)
	if err != nil {
		return nil, fmt.Errorf("i2c read %#x: %w", addr, err)
	}
	d := decoder{b: body}
	got := int(d.u8())
	data := d.take(got)
	if d.err != nil {
		return nil, fmt.Errorf("i2c read %#x: %w", addr, d.err)
	}
	if got != n {
		return nil, fmt.Errorf("i2c read %#x: %w: wanted %d bytes got %d", addr, ErrShortPacket, n, got)
	}
	return append([]byte(nil), data...), nil
}

// MasterClockFreq returns the motherboard clock frequency in Hz
func (m *Motherboard) MasterClockFreq() float64 {
	return m.clock
}

// Close closes the link
func (m *Motherboard) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.link.Close()
}

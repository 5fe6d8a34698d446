package usrp2

import (
	"errors"

	"github.com/nasa-jpl/dboard/dboard"
)

var errBus = errors.New("bus timeout")

// txn is one transaction seen by recorder
type txn struct {
	Op       string
	Addr     uint32
	Data     uint32
	Which    int
	Cfg      dboard.SPIConfig
	NBits    int
	Readback bool
	Bytes    []byte
}

// recorder is a Transport that logs every call in order
type recorder struct {
	log []txn

	// regs backs Peek32
	regs map[uint32]uint32

	// spiResp is returned, in order, by readback SPI transactions
	spiResp []uint32

	// i2c is returned by ReadI2C
	i2c []byte

	// failOn makes the matching op return errBus
	failOn string

	clock float64
}

func newRecorder() *recorder {
	return &recorder{regs: map[uint32]uint32{}, clock: 100e6}
}

func (r *recorder) fail(op string) error {
	if r.failOn == op {
		return errBus
	}
	return nil
}

func (r *recorder) Poke32(addr, data uint32) error {
	r.log = append(r.log, txn{Op: "poke32", Addr: addr, Data: data})
	return r.fail("poke32")
}

func (r *recorder) Poke16(addr uint32, data uint16) error {
	r.log = append(r.log, txn{Op: "poke16", Addr: addr, Data: uint32(data)})
	return r.fail("poke16")
}

func (r *recorder) Peek32(addr uint32) (uint32, error) {
	r.log = append(r.log, txn{Op: "peek32", Addr: addr})
	if err := r.fail("peek32"); err != nil {
		return 0, err
	}
	return r.regs[addr], nil
}

func (r *recorder) TransactSPI(which int, cfg dboard.SPIConfig, data uint32, nbits int, readback bool) (uint32, error) {
	r.log = append(r.log, txn{Op: "spi", Which: which, Cfg: cfg, Data: data, NBits: nbits, Readback: readback})
	if err := r.fail("spi"); err != nil {
		return 0, err
	}
	if !readback || len(r.spiResp) == 0 {
		return 0, nil
	}
	resp := r.spiResp[0]
	r.spiResp = r.spiResp[1:]
	return resp, nil
}

func (r *recorder) WriteI2C(addr uint8, buf []byte) error {
	r.log = append(r.log, txn{Op: "i2c-write", Addr: uint32(addr), Bytes: append([]byte(nil), buf...)})
	return r.fail("i2c-write")
}

func (r *recorder) ReadI2C(addr uint8, n int) ([]byte, error) {
	r.log = append(r.log, txn{Op: "i2c-read", Addr: uint32(addr), NBits: n * 8})
	if err := r.fail("i2c-read"); err != nil {
		return nil, err
	}
	return r.i2c[:n], nil
}

func (r *recorder) MasterClockFreq() float64 {
	return r.clock
}

// fakeClocks is a ClockCtrl that only remembers
type fakeClocks struct {
	rx, tx bool
	err    error
}

func (f *fakeClocks) EnableRxDboardClock(b bool) error {
	if f.err != nil {
		return f.err
	}
	f.rx = b
	return nil
}

func (f *fakeClocks) EnableTxDboardClock(b bool) error {
	if f.err != nil {
		return f.err
	}
	f.tx = b
	return nil
}

func (f *fakeClocks) RxDboardClockEnabled() bool { return f.rx }
func (f *fakeClocks) TxDboardClockEnabled() bool { return f.tx }

// newTestIface builds a DboardIface and discards the construction traffic
func newTestIface() (*DboardIface, *recorder, *fakeClocks) {
	r := newRecorder()
	c := &fakeClocks{}
	d, err := NewDboardIface(r, c)
	if err != nil {
		panic(err)
	}
	r.log = nil
	return d, r, c
}

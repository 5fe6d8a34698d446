package usrp2

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nasa-jpl/dboard/dboard"
)

const badUnit = dboard.Unit(7)

func TestConstructionResetsBothAuxDACs(t *testing.T) {
	r := newRecorder()
	_, err := NewDboardIface(r, &fakeClocks{})
	if err != nil {
		t.Fatal(err)
	}
	reset := uint32(0x2F0010) // cmd=reset, addr=all, data=1
	fall := dboard.NewSPIConfig(dboard.EdgeFall)
	expected := []txn{
		{Op: "spi", Which: SPISSRxDAC, Cfg: fall, Data: reset, NBits: 24},
		{Op: "spi", Which: SPISSTxDAC, Cfg: fall, Data: reset, NBits: 24},
	}
	if diff := cmp.Diff(expected, r.log); diff != "" {
		t.Errorf("construction traffic mismatch (-want +got):\n%s", diff)
	}
}

func TestConstructionFailsOnTransportError(t *testing.T) {
	r := newRecorder()
	r.failOn = "spi"
	_, err := NewDboardIface(r, &fakeClocks{})
	if !errors.Is(err, errBus) {
		t.Errorf("expected the transport error to propagate, got %v", err)
	}
}

func TestGPIOWritesDoNotDisturbOtherUnit(t *testing.T) {
	values := []uint16{0x0000, 0xFFFF, 0xA5A5, 0x0001, 0x8000}
	type op struct {
		name   string
		addr   uint32
		write  func(*DboardIface, dboard.Unit, uint16) error
		shadow func(*DboardIface) uint32
	}
	ops := []op{
		{"ddr", FRGPIODDR, (*DboardIface).SetGPIODDR, func(d *DboardIface) uint32 { return d.ddrShadow }},
		{"io", FRGPIOIO, (*DboardIface).WriteGPIO, func(d *DboardIface) uint32 { return d.gpioShadow }},
	}
	for _, o := range ops {
		for _, u := range dboard.Units {
			other := dboard.UnitTx
			if u == dboard.UnitTx {
				other = dboard.UnitRx
			}
			for _, background := range values {
				for _, v := range values {
					d, r, _ := newTestIface()
					if err := o.write(d, other, background); err != nil {
						t.Fatal(err)
					}
					before := o.shadow(d)
					if err := o.write(d, u, v); err != nil {
						t.Fatal(err)
					}
					after := o.shadow(d)
					otherMask := uint32(0xFFFF) << unitToShift[other]
					if before&otherMask != after&otherMask {
						t.Errorf("%s: writing %#04x to %s changed %s bits %#08x => %#08x", o.name, v, u, other, before, after)
					}
					if got := uint16(after >> unitToShift[u]); got != v {
						t.Errorf("%s: expected %s field %#04x got %#04x", o.name, u, v, got)
					}
					last := r.log[len(r.log)-1]
					if last.Op != "poke32" || last.Addr != o.addr || last.Data != after {
						t.Errorf("%s: expected poke32 of the full shadow to %#x, got %+v", o.name, o.addr, last)
					}
				}
			}
		}
	}
}

func TestGPIOWriteFailureKeepsShadow(t *testing.T) {
	d, r, _ := newTestIface()
	if err := d.WriteGPIO(dboard.UnitRx, 0x1234); err != nil {
		t.Fatal(err)
	}
	r.failOn = "poke32"
	err := d.WriteGPIO(dboard.UnitTx, 0xFFFF)
	if !errors.Is(err, errBus) {
		t.Fatalf("expected bus error, got %v", err)
	}
	if d.gpioShadow != 0x1234 {
		t.Errorf("shadow should hold the last successful write, got %#08x", d.gpioShadow)
	}
}

func TestReadGPIOExtractsUnit(t *testing.T) {
	d, r, _ := newTestIface()
	r.regs[FRGPIOIO] = 0xBEEF1234
	cases := map[dboard.Unit]uint16{dboard.UnitRx: 0x1234, dboard.UnitTx: 0xBEEF}
	for u, expected := range cases {
		got, err := d.ReadGPIO(u)
		if err != nil {
			t.Fatal(err)
		}
		if got != expected {
			t.Errorf("%s: expected %#04x got %#04x", u, expected, got)
		}
	}
	if d.gpioShadow != 0 {
		t.Error("ReadGPIO must not touch the shadow")
	}
}

func TestSetPinCtrlBoundaries(t *testing.T) {
	cases := []struct {
		in  uint16
		out uint32
	}{
		{0x0000, 0x00000000},
		{0xFFFF, 0x55555555},
		{0x0001, 0x00000001},
		{0x8000, 0x40000000},
	}
	for _, u := range dboard.Units {
		for _, c := range cases {
			d, r, _ := newTestIface()
			if err := d.SetPinCtrl(u, c.in); err != nil {
				t.Fatal(err)
			}
			expected := []txn{{Op: "poke32", Addr: unitToGPIOSel[u], Data: c.out}}
			if diff := cmp.Diff(expected, r.log); diff != "" {
				t.Errorf("%s %#04x (-want +got):\n%s", u, c.in, diff)
			}
		}
	}
}

func TestPinCtrlSelsPerBit(t *testing.T) {
	mask := uint16(0xA50F)
	sels := pinCtrlSels(mask)
	for i := uint(0); i < 16; i++ {
		field := (sels >> (2 * i)) & 3
		isATR := mask&(1<<i) != 0
		if isATR && field != GPIOSelATR {
			t.Errorf("pin %d: expected ATR selection, got %d", i, field)
		}
		if !isATR && field != GPIOSelSW {
			t.Errorf("pin %d: expected software selection, got %d", i, field)
		}
	}
}

func TestSetATRRegAddressesAreDistinct(t *testing.T) {
	seen := map[uint32]string{}
	for _, u := range dboard.Units {
		for _, a := range dboard.ATRRegs {
			d, r, _ := newTestIface()
			if err := d.SetATRReg(u, a, 0x00F0); err != nil {
				t.Fatal(err)
			}
			if len(r.log) != 1 || r.log[0].Op != "poke16" || r.log[0].Data != 0x00F0 {
				t.Fatalf("%s %s: expected a single poke16, got %+v", u, a, r.log)
			}
			name := u.String() + "/" + a.String()
			if prev, ok := seen[r.log[0].Addr]; ok {
				t.Errorf("%s and %s share address %#x", prev, name, r.log[0].Addr)
			}
			seen[r.log[0].Addr] = name
		}
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 addresses, got %d", len(seen))
	}
}

func TestSetATRRegRejectsUnknownRegister(t *testing.T) {
	d, r, _ := newTestIface()
	err := d.SetATRReg(dboard.UnitRx, dboard.ATRReg(4), 1)
	if !errors.Is(err, dboard.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if len(r.log) != 0 {
		t.Errorf("nothing should be sent, got %+v", r.log)
	}
}

func TestInvalidUnitFailsFast(t *testing.T) {
	d, r, _ := newTestIface()
	calls := map[string]func() error{
		"SetPinCtrl": func() error { return d.SetPinCtrl(badUnit, 1) },
		"SetGPIODDR": func() error { return d.SetGPIODDR(badUnit, 1) },
		"WriteGPIO":  func() error { return d.WriteGPIO(badUnit, 1) },
		"ReadGPIO": func() error {
			_, err := d.ReadGPIO(badUnit)
			return err
		},
		"SetATRReg": func() error { return d.SetATRReg(badUnit, dboard.ATRIdle, 1) },
		"WriteSPI":  func() error { return d.WriteSPI(badUnit, dboard.SPIConfig{}, 1, 8) },
		"ReadWriteSPI": func() error {
			_, err := d.ReadWriteSPI(badUnit, dboard.SPIConfig{}, 1, 8)
			return err
		},
		"ClockRate": func() error {
			_, err := d.ClockRate(badUnit)
			return err
		},
		"SetClockEnabled": func() error { return d.SetClockEnabled(badUnit, true) },
		"ClockEnabled": func() error {
			_, err := d.ClockEnabled(badUnit)
			return err
		},
		"WriteAuxDAC": func() error { return d.WriteAuxDAC(badUnit, 0, 1) },
		"ReadAuxADC": func() error {
			_, err := d.ReadAuxADC(badUnit, 0)
			return err
		},
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, dboard.ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
	if len(r.log) != 0 {
		t.Errorf("nothing should reach the transport, got %+v", r.log)
	}
}

func TestSPIRoutesToDboardSelect(t *testing.T) {
	d, r, _ := newTestIface()
	cfg := dboard.SPIConfig{MOSIEdge: dboard.EdgeRise, MISOEdge: dboard.EdgeFall}
	r.spiResp = []uint32{0xABCD}
	if err := d.WriteSPI(dboard.UnitRx, cfg, 0x123456, 24); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadWriteSPI(dboard.UnitTx, cfg, 0x42, 16)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xABCD {
		t.Errorf("expected readback 0xabcd got %#x", got)
	}
	expected := []txn{
		{Op: "spi", Which: SPISSRxDB, Cfg: cfg, Data: 0x123456, NBits: 24},
		{Op: "spi", Which: SPISSTxDB, Cfg: cfg, Data: 0x42, NBits: 16, Readback: true},
	}
	if diff := cmp.Diff(expected, r.log); diff != "" {
		t.Errorf("SPI routing mismatch (-want +got):\n%s", diff)
	}
	if d.gpioShadow != 0 || d.ddrShadow != 0 {
		t.Error("SPI must not touch the GPIO shadows")
	}
}

func TestSPIRejectsBadBitCount(t *testing.T) {
	d, r, _ := newTestIface()
	for _, n := range []int{0, 33, -1} {
		if err := d.WriteSPI(dboard.UnitRx, dboard.SPIConfig{}, 0, n); !errors.Is(err, dboard.ErrInvalidArgument) {
			t.Errorf("%d bits: expected ErrInvalidArgument, got %v", n, err)
		}
	}
	if len(r.log) != 0 {
		t.Errorf("nothing should be sent, got %+v", r.log)
	}
}

func TestSPIErrorPropagates(t *testing.T) {
	d, r, _ := newTestIface()
	r.failOn = "spi"
	_, err := d.ReadWriteSPI(dboard.UnitTx, dboard.SPIConfig{}, 0, 8)
	if !errors.Is(err, errBus) {
		t.Errorf("expected bus error unchanged, got %v", err)
	}
}

func TestI2CForwards(t *testing.T) {
	d, r, _ := newTestIface()
	r.i2c = []byte{9, 8, 7, 6}
	if err := d.WriteI2C(0x50, []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadI2C(0x51, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{9, 8, 7}, got); diff != "" {
		t.Errorf("read mismatch (-want +got):\n%s", diff)
	}
	expected := []txn{
		{Op: "i2c-write", Addr: 0x50, Bytes: []byte{1, 2}},
		{Op: "i2c-read", Addr: 0x51, NBits: 24},
	}
	if diff := cmp.Diff(expected, r.log); diff != "" {
		t.Errorf("I2C mismatch (-want +got):\n%s", diff)
	}
	if d.gpioShadow != 0 || d.ddrShadow != 0 {
		t.Error("I2C must not touch the GPIO shadows")
	}
	if _, err := d.ReadI2C(0x51, -1); !errors.Is(err, dboard.ErrInvalidArgument) {
		t.Errorf("negative length: expected ErrInvalidArgument, got %v", err)
	}
}

func TestClockRateIsMasterClock(t *testing.T) {
	d, r, _ := newTestIface()
	r.clock = 100e6
	for _, u := range dboard.Units {
		f, err := d.ClockRate(u)
		if err != nil {
			t.Fatal(err)
		}
		if f != 100e6 {
			t.Errorf("%s: expected 100 MHz got %f", u, f)
		}
	}
}

func TestClockEnableRoutesPerUnit(t *testing.T) {
	d, _, c := newTestIface()
	if err := d.SetClockEnabled(dboard.UnitTx, true); err != nil {
		t.Fatal(err)
	}
	if c.rx || !c.tx {
		t.Errorf("expected only tx enabled, rx=%v tx=%v", c.rx, c.tx)
	}
	rx, _ := d.ClockEnabled(dboard.UnitRx)
	tx, _ := d.ClockEnabled(dboard.UnitTx)
	if rx || !tx {
		t.Errorf("ClockEnabled disagrees with the controller, rx=%v tx=%v", rx, tx)
	}
	c.err = errBus
	if err := d.SetClockEnabled(dboard.UnitRx, true); !errors.Is(err, errBus) {
		t.Errorf("expected clock controller error, got %v", err)
	}
}

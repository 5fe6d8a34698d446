// Package dboard exposes a daughterboard interface over HTTP.
//
// Routes are relative to the mount point; {unit} is rx or tx.
//
//	POST /{unit}/gpio/ddr           {"u32": pins}
//	GET  /{unit}/gpio/io            {"u32": pins}
//	POST /{unit}/gpio/io            {"u32": pins}
//	POST /{unit}/gpio/pin-ctrl      {"u32": pins}
//	POST /{unit}/atr/{reg}          {"u32": pins}, reg is idle, tx-only, rx-only, full-duplex
//	POST /{unit}/spi/write          SPIRequest
//	POST /{unit}/spi/read-write     SPIRequest, replies {"u32": word}
//	POST /i2c/write                 I2CRequest
//	POST /i2c/read                  I2CRequest, replies I2CReply
//	GET  /{unit}/clock/rate         {"f64": Hz}
//	GET  /{unit}/clock/enabled      {"bool": on}
//	POST /{unit}/clock/enabled      {"bool": on}
//	POST /{unit}/aux-dac            AuxDACRequest
//	GET  /{unit}/aux-adc/{channel}  {"f64": volts}
//	GET  /routes                    list of routes
package dboard

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/generichttp"
	"github.com/nasa-jpl/dboard/server"
)

// SPIRequest is the body of the SPI routes
type SPIRequest struct {
	Config dboard.SPIConfig `json:"config"`
	Data   uint32           `json:"data"`
	NBits  int              `json:"nbits"`
}

// I2CRequest is the body of the I2C routes.  Data is used by writes and N
// by reads.
type I2CRequest struct {
	Addr uint8 `json:"addr"`
	Data []int `json:"data,omitempty"`
	N    int   `json:"n,omitempty"`
}

// I2CReply is the response to an I2C read
type I2CReply struct {
	Data []int `json:"data"`
}

// AuxDACRequest is the body of the aux DAC route
type AuxDACRequest struct {
	Channel int     `json:"channel"`
	Volts   float64 `json:"volts"`
}

// unitHandler parses {unit} and passes it to the handler built by fcn
func unitHandler(fcn func(dboard.Unit) http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := dboard.ParseUnit(chi.URLParam(r, "unit"))
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		fcn(u)(w, r)
	}
}

// pins narrows a word from a request to a 16-bit pin field
func pins(fcn func(uint16) error) func(uint32) error {
	return func(v uint32) error {
		if v > math.MaxUint16 {
			return fmt.Errorf("%w: pin value %#x wider than 16 bits", dboard.ErrInvalidArgument, v)
		}
		return fcn(uint16(v))
	}
}

// SetGPIODDR sets the pin directions of a unit
func SetGPIODDR(d dboard.GPIO) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.SetUint32(pins(func(v uint16) error { return d.SetGPIODDR(u, v) }))
	})
}

// WriteGPIO sets the software driven pin values of a unit
func WriteGPIO(d dboard.GPIO) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.SetUint32(pins(func(v uint16) error { return d.WriteGPIO(u, v) }))
	})
}

// ReadGPIO reads the pin values of a unit
func ReadGPIO(d dboard.GPIO) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.GetUint32(func() (uint32, error) {
			v, err := d.ReadGPIO(u)
			return uint32(v), err
		})
	})
}

// SetPinCtrl selects ATR or software control for each pin of a unit
func SetPinCtrl(d dboard.GPIO) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.SetUint32(pins(func(v uint16) error { return d.SetPinCtrl(u, v) }))
	})
}

// SetATRReg sets the pin values of a unit for one radio state
func SetATRReg(d dboard.ATR) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			atr, err := dboard.ParseATRReg(chi.URLParam(r, "reg"))
			if err != nil {
				generichttp.Error(w, err)
				return
			}
			generichttp.SetUint32(pins(func(v uint16) error { return d.SetATRReg(u, atr, v) }))(w, r)
		}
	})
}

// WriteSPI clocks a word out to a unit's SPI bus
func WriteSPI(d dboard.SPI) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			req := SPIRequest{}
			if !generichttp.DecodeBody(w, r, &req) {
				return
			}
			if err := d.WriteSPI(u, req.Config, req.Data, req.NBits); err != nil {
				generichttp.Error(w, err)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	})
}

// ReadWriteSPI clocks a word out to a unit's SPI bus and replies with the
// word clocked in
func ReadWriteSPI(d dboard.SPI) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			req := SPIRequest{}
			if !generichttp.DecodeBody(w, r, &req) {
				return
			}
			generichttp.GetUint32(func() (uint32, error) {
				return d.ReadWriteSPI(u, req.Config, req.Data, req.NBits)
			})(w, r)
		}
	})
}

// toBytes converts JSON numbers to bytes, rejecting any outside 0..255
func toBytes(in []int) ([]byte, error) {
	out := make([]byte, len(in))
	for i, v := range in {
		if v < 0 || v > math.MaxUint8 {
			return nil, fmt.Errorf("%w: I2C data[%d] = %d is not a byte", dboard.ErrInvalidArgument, i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}

// WriteI2C writes bytes to a device on the I2C bus
func WriteI2C(d dboard.I2C) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := I2CRequest{}
		if !generichttp.DecodeBody(w, r, &req) {
			return
		}
		buf, err := toBytes(req.Data)
		if err == nil {
			err = d.WriteI2C(req.Addr, buf)
		}
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ReadI2C reads bytes from a device on the I2C bus
func ReadI2C(d dboard.I2C) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := I2CRequest{}
		if !generichttp.DecodeBody(w, r, &req) {
			return
		}
		buf, err := d.ReadI2C(req.Addr, req.N)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		reply := I2CReply{Data: make([]int, len(buf))}
		for i, b := range buf {
			reply.Data[i] = int(b)
		}
		server.ReplyJSON(w, reply)
	}
}

// GetClockRate replies with the frequency of a unit's clock
func GetClockRate(d dboard.Clock) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.GetFloat(func() (float64, error) { return d.ClockRate(u) })
	})
}

// GetClockEnabled replies with the state of a unit's clock
func GetClockEnabled(d dboard.Clock) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.GetBool(func() (bool, error) { return d.ClockEnabled(u) })
	})
}

// SetClockEnabled turns a unit's clock on or off
func SetClockEnabled(d dboard.Clock) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return generichttp.SetBool(func(b bool) error { return d.SetClockEnabled(u, b) })
	})
}

// WriteAuxDAC sets a unit's aux DAC output
func WriteAuxDAC(d dboard.AuxIO) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			req := AuxDACRequest{}
			if !generichttp.DecodeBody(w, r, &req) {
				return
			}
			if err := d.WriteAuxDAC(u, req.Channel, req.Volts); err != nil {
				generichttp.Error(w, err)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	})
}

// ReadAuxADC replies with the voltage on a unit's aux ADC input
func ReadAuxADC(d dboard.AuxIO) http.HandlerFunc {
	return unitHandler(func(u dboard.Unit) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ch, err := strconv.Atoi(chi.URLParam(r, "channel"))
			if err != nil {
				generichttp.Error(w, fmt.Errorf("%w: aux ADC channel: %v", dboard.ErrInvalidArgument, err))
				return
			}
			generichttp.GetFloat(func() (float64, error) { return d.ReadAuxADC(u, ch) })(w, r)
		}
	})
}

// HTTPDboard wraps a daughterboard interface in an HTTP route table
type HTTPDboard struct {
	// Iface is the underlying daughterboard interface
	Iface dboard.Iface

	// RouteTable maps URLs to functions
	RouteTable generichttp.RouteTable
}

// NewHTTPDboard returns a new HTTP wrapper around d.  d should be safe for
// concurrent use, see dboard.NewLocked.
func NewHTTPDboard(d dboard.Iface) HTTPDboard {
	h := HTTPDboard{Iface: d}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/gpio/ddr"}:      SetGPIODDR(d),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/{unit}/gpio/io"}:        ReadGPIO(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/gpio/io"}:       WriteGPIO(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/gpio/pin-ctrl"}: SetPinCtrl(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/atr/{reg}"}:     SetATRReg(d),

		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/spi/write"}:      WriteSPI(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/spi/read-write"}: ReadWriteSPI(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/i2c/write"}:             WriteI2C(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/i2c/read"}:              ReadI2C(d),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/{unit}/clock/rate"}:     GetClockRate(d),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/{unit}/clock/enabled"}:  GetClockEnabled(d),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/clock/enabled"}: SetClockEnabled(d),

		generichttp.MethodPath{Method: http.MethodPost, Path: "/{unit}/aux-dac"}:          WriteAuxDAC(d),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/{unit}/aux-adc/{channel}"}: ReadAuxADC(d),
	}
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/routes"}] = generichttp.ListEndpoints(rt)
	h.RouteTable = rt
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPDboard) RT() generichttp.RouteTable {
	return h.RouteTable
}

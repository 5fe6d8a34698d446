package comm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/snksoft/crc"

	"github.com/nasa-jpl/dboard/dboard"
)

// protoVersion is the first byte of every control packet
const protoVersion = 1

// control packet operations.  Replies carry the request op with opReply set.
const (
	opPoke32   byte = 0x01
	opPoke16   byte = 0x02
	opPeek32   byte = 0x03
	opSPI      byte = 0x04
	opI2CWrite byte = 0x05
	opI2CRead  byte = 0x06

	opReply byte = 0x80
)

// reply status codes
const (
	statusOK          byte = 0
	statusBadRequest  byte = 1
	statusNack        byte = 2
	statusUnsupported byte = 3
)

const (
	// headerLen is version, op, seq
	headerLen = 6

	// replyHeaderLen adds the status byte
	replyHeaderLen = headerLen + 1

	// MaxI2CBytes is the most bytes moved by one I2C request
	MaxI2CBytes = 255

	// maxPacketLen bounds any packet, the largest is an I2C transfer
	maxPacketLen = replyHeaderLen + 2 + MaxI2CBytes
)

var (
	dataOrder = binary.BigEndian

	crcTable = crc.NewTable(crc.XMODEM)

	// ErrShortPacket is generated when a packet ends before its body does
	ErrShortPacket = errors.New("control packet truncated")

	// ErrBadCRC is generated when a frame's CRC does not match its contents
	ErrBadCRC = errors.New("control frame CRC mismatch")

	// ErrBadVersion is generated when the remote speaks another protocol version
	ErrBadVersion = errors.New("control packet protocol version mismatch")

	// ErrSeqMismatch is generated when a reply does not answer the last request
	ErrSeqMismatch = errors.New("control reply sequence number does not match request")

	// ErrBadRequest is returned when the motherboard could not parse a request
	ErrBadRequest = errors.New("motherboard rejected malformed request")

	// ErrNack is returned when a device on the SPI or I2C bus did not respond
	ErrNack = errors.New("device did not acknowledge")

	// ErrUnsupported is returned when the motherboard does not know the operation
	ErrUnsupported = errors.New("operation not supported by motherboard")
)

// statusErr converts a reply status to an error, nil for statusOK
func statusErr(s byte) error {
	switch s {
	case statusOK:
		return nil
	case statusBadRequest:
		return ErrBadRequest
	case statusNack:
		return ErrNack
	case statusUnsupported:
		return ErrUnsupported
	default:
		return fmt.Errorf("unknown motherboard status %d", s)
	}
}

// encoder appends big endian fields to a byte slice
type encoder struct {
	b []byte
}

func (e *encoder) u8(v byte) {
	e.b = append(e.b, v)
}

func (e *encoder) u16(v uint16) {
	var buf [2]byte
	dataOrder.PutUint16(buf[:], v)
	e.b = append(e.b, buf[:]...)
}

func (e *encoder) u32(v uint32) {
	var buf [4]byte
	dataOrder.PutUint32(buf[:], v)
	e.b = append(e.b, buf[:]...)
}

func (e *encoder) bytes(v []byte) {
	e.b = append(e.b, v...)
}

// decoder consumes big endian fields, the first short read sets err and
// all following reads return zero
type decoder struct {
	b   []byte
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.b) < n {
		d.err = ErrShortPacket
		return nil
	}
	out := d.b[:n]
	d.b = d.b[n:]
	return out
}

func (d *decoder) u8() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return dataOrder.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return dataOrder.Uint32(b)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// spiBody is the body of an opSPI request
type spiBody struct {
	which    uint32
	cfg      dboard.SPIConfig
	data     uint32
	nbits    byte
	readback bool
}

func (s spiBody) encode(e *encoder) {
	e.u32(s.which)
	e.u8(byte(s.cfg.MOSIEdge))
	e.u8(byte(s.cfg.MISOEdge))
	e.u32(s.data)
	e.u8(s.nbits)
	e.u8(boolByte(s.readback))
}

func decodeSPIBody(d *decoder) spiBody {
	var s spiBody
	s.which = d.u32()
	s.cfg.MOSIEdge = dboard.SPIEdge(d.u8())
	s.cfg.MISOEdge = dboard.SPIEdge(d.u8())
	s.data = d.u32()
	s.nbits = d.u8()
	s.readback = d.u8() != 0
	return s
}

// packet is a decoded control packet header plus its undecoded body
type packet struct {
	op     byte
	seq    uint32
	status byte
	body   []byte
}

// encodeRequest builds a request packet
func encodeRequest(op byte, seq uint32, body []byte) []byte {
	e := encoder{b: make([]byte, 0, headerLen+len(body))}
	e.u8(protoVersion)
	e.u8(op)
	e.u32(seq)
	e.bytes(body)
	return e.b
}

// encodeReply builds a reply packet
func encodeReply(op byte, seq uint32, status byte, body []byte) []byte {
	e := encoder{b: make([]byte, 0, replyHeaderLen+len(body))}
	e.u8(protoVersion)
	e.u8(op | opReply)
	e.u32(seq)
	e.u8(status)
	e.bytes(body)
	return e.b
}

// decodePacket parses the header of a request or reply
func decodePacket(b []byte) (packet, error) {
	d := decoder{b: b}
	var p packet
	ver := d.u8()
	p.op = d.u8()
	p.seq = d.u32()
	if d.err != nil {
		return p, d.err
	}
	if ver != protoVersion {
		return p, fmt.Errorf("%w: got %d want %d", ErrBadVersion, ver, protoVersion)
	}
	if p.op&opReply != 0 {
		p.status = d.u8()
		if d.err != nil {
			return p, d.err
		}
	}
	p.body = d.b
	return p, nil
}

// crc16 computes the XMODEM CRC of buf
func crc16(buf []byte) uint16 {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, buf)
	return crcTable.CRC16(c)
}

// frame wraps a packet for a byte stream: length, packet, CRC
func frame(pkt []byte) []byte {
	e := encoder{b: make([]byte, 0, len(pkt)+4)}
	e.u16(uint16(len(pkt)))
	e.bytes(pkt)
	e.u16(crc16(pkt))
	return e.b
}

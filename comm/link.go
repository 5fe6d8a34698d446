package comm

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Link carries one encoded control packet to the motherboard and returns
// the encoded reply
type Link interface {
	RoundTrip(req []byte) ([]byte, error)
	io.Closer
}

// StreamLink is a Link over a byte stream, TCP or serial.  The connection is
// opened on first use and dropped after any error so that the next
// RoundTrip reconnects.
type StreamLink struct {
	rd *RemoteDevice
}

// NewStreamLink returns a link over the remote device
func NewStreamLink(rd *RemoteDevice) *StreamLink {
	return &StreamLink{rd: rd}
}

// RoundTrip writes the framed request and reads one framed reply
func (s *StreamLink) RoundTrip(req []byte) ([]byte, error) {
	if s.rd.Conn == nil {
		if err := s.rd.Open(); err != nil {
			return nil, err
		}
	}
	s.rd.refreshDeadline()
	resp, err := roundTripStream(s.rd.Conn, req)
	if err != nil {
		s.rd.log.Warn("dropping control connection", zap.Error(err))
		s.rd.Close()
		return nil, err
	}
	return resp, nil
}

// Close closes the underlying connection
func (s *StreamLink) Close() error {
	return s.rd.Close()
}

func roundTripStream(rw io.ReadWriter, req []byte) ([]byte, error) {
	if err := writeFrame(rw, req); err != nil {
		return nil, err
	}
	return readFrame(rw)
}

// readFrame reads one length prefixed, CRC checked packet from r
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(dataOrder.Uint16(hdr[:]))
	if n > maxPacketLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, n)
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	pkt, sum := buf[:n], dataOrder.Uint16(buf[n:])
	if crc16(pkt) != sum {
		return nil, ErrBadCRC
	}
	return pkt, nil
}

// writeFrame frames pkt and writes it to w
func writeFrame(w io.Writer, pkt []byte) error {
	_, err := w.Write(frame(pkt))
	return err
}

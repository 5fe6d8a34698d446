/*Package comm provides the control transports to a USRP2 motherboard.

Every transport carries the same control packets: a version byte, an
operation, a sequence number, and an operation specific body, big endian.
The motherboard answers each request with a reply echoing the sequence
number and carrying a status byte.

A Link moves one encoded request to the motherboard and returns the encoded
reply.  There are three:
	1.  StreamLink, for a TCP socket or an RS232 line.  Packets are framed
		with a length prefix and a CRC-16/XMODEM trailer.
	2.  USBLink, which sends the packet in a vendor control request.
	3.  Mock, an in-memory motherboard for tests and bench work without
		hardware.

Motherboard sits on top of a Link and implements usrp2.Transport.

	link := comm.NewStreamLink(comm.NewRemoteDevice("192.168.10.2:49200", false))
	mb := comm.NewMotherboard(link, 100e6)
	defer mb.Close()
	db, err := usrp2.NewDboardIface(mb, usrp2.NewAD9510(mb))
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected is generated when .Conn is nil and a transfer is attempted.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrFrameTooLong is generated when a frame header announces more than any packet can hold
	ErrFrameTooLong = errors.New("control frame longer than any packet")

	// DefaultTimeout is used by RemoteDevice when Timeout is zero
	DefaultTimeout = 3 * time.Second

	// DefaultBaud is used for serial connections when Baud is zero
	DefaultBaud = 115200
)

/*RemoteDevice has an address and holds the connection to it.

If IsSerial is true, Addr is the name of the serial port (/dev/ttyUSB0,
COM3), otherwise it is a host:port for TCP.
*/
type RemoteDevice struct {
	Addr     string
	IsSerial bool
	Baud     int
	Timeout  time.Duration
	Conn     io.ReadWriteCloser

	log *zap.Logger
}

// NewRemoteDevice creates a new RemoteDevice instance
func NewRemoteDevice(addr string, serial bool) *RemoteDevice {
	return &RemoteDevice{
		Addr:     addr,
		IsSerial: serial,
		log:      zap.NewNop()}
}

// SetLogger sets the logger used for connection events
func (rd *RemoteDevice) SetLogger(l *zap.Logger) {
	if l != nil {
		rd.log = l
	}
}

func (rd *RemoteDevice) timeout() time.Duration {
	if rd.Timeout == 0 {
		return DefaultTimeout
	}
	return rd.Timeout
}

// SerialConf yields a pointer to a serial config object for use with serial.OpenPort
func (rd *RemoteDevice) SerialConf() *serial.Config {
	baud := rd.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	return &serial.Config{Name: rd.Addr, Baud: baud, ReadTimeout: rd.timeout()}
}

// Open the connection, setting the Conn variable
func (rd *RemoteDevice) Open() error {
	// exponential backoff; the motherboard firmware takes a moment to
	// bring its control socket up after a reset
	attempt := 0
	op := func() error {
		attempt++
		err := rd.open()
		if err != nil {
			rd.log.Debug("connect attempt failed",
				zap.String("addr", rd.Addr), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}

	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      rd.timeout(),
		Clock:               backoff.SystemClock})
	if err != nil {
		return fmt.Errorf("connecting to %s, gave up after %d attempts: %w", rd.Addr, attempt, err)
	}
	rd.log.Info("connected", zap.String("addr", rd.Addr), zap.Bool("serial", rd.IsSerial))
	return nil
}

func (rd *RemoteDevice) open() error {
	var err error
	var conn io.ReadWriteCloser
	if rd.IsSerial {
		conn, err = serial.OpenPort(rd.SerialConf())
	} else {
		conn, err = TCPSetup(rd.Addr, rd.timeout())
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	return nil
}

// Close the connection, nil-ing the Conn variable
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	rd.Conn = nil
	return err
}

// refreshDeadline pushes the read and write deadlines of a network
// connection out by the timeout.  Serial ports carry their own read timeout.
func (rd *RemoteDevice) refreshDeadline() {
	if c, ok := rd.Conn.(net.Conn); ok {
		c.SetDeadline(time.Now().Add(rd.timeout()))
	}
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

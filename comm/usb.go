package comm

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
	"go.uber.org/multierr"
)

// vendor requests carrying control packets
const (
	vrqCtrlOut = 0x10
	vrqCtrlIn  = 0x90
)

// ErrUSBDeviceNotFound is generated when no device matches the VID:PID
var ErrUSBDeviceNotFound = errors.New("no USB device with the given VID:PID")

// USBLink is a Link over USB vendor control transfers.  The request is sent
// in an OUT transfer and the reply fetched with an IN transfer.
type USBLink struct {
	ctx *gousb.Context
	dev *gousb.Device
}

// OpenUSBLink opens the first device matching vid:pid
func OpenUSBLink(vid, pid uint16) (*USBLink, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, err
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %04x:%04x", ErrUSBDeviceNotFound, vid, pid)
	}
	return &USBLink{ctx: ctx, dev: dev}, nil
}

// RoundTrip sends req and reads the reply
func (u *USBLink) RoundTrip(req []byte) ([]byte, error) {
	const (
		out = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
		in  = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
	)
	if _, err := u.dev.Control(out, vrqCtrlOut, 0, 0, req); err != nil {
		return nil, fmt.Errorf("USB control out: %w", err)
	}
	buf := make([]byte, maxPacketLen)
	n, err := u.dev.Control(in, vrqCtrlIn, 0, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("USB control in: %w", err)
	}
	return buf[:n], nil
}

// Close releases the device and the libusb context
func (u *USBLink) Close() error {
	return multierr.Combine(u.dev.Close(), u.ctx.Close())
}

//go:build !linux

package serial

import (
	"errors"
	"fmt"

	bugst "go.bug.st/serial"
)

// port adapts a go.bug.st/serial port to the Port interface on platforms
// without the termios backend.
type port struct {
	bugst.Port
	device string
}

var _ Port = (*port)(nil)

func openPort(device string, config Config) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   bugstParity(config.Parity),
		StopBits: bugst.OneStopBit,
	}
	if config.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}

	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, openError(device, err)
	}
	if err := p.SetReadTimeout(config.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return &port{Port: p, device: device}, nil
}

func bugstParity(p Parity) bugst.Parity {
	switch p {
	case ParityOdd:
		return bugst.OddParity
	case ParityEven:
		return bugst.EvenParity
	default:
		return bugst.NoParity
	}
}

// openError maps go.bug.st port errors onto the package sentinels
func openError(device string, err error) error {
	var portErr *bugst.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case bugst.PortNotFound:
			return fmt.Errorf("open %s: %w", device, ErrDeviceNotFound)
		case bugst.PermissionDenied:
			return fmt.Errorf("open %s: %w", device, ErrPermissionDenied)
		case bugst.PortBusy:
			return fmt.Errorf("open %s: %w", device, ErrDeviceInUse)
		}
	}
	return fmt.Errorf("open %s: %w", device, err)
}

func (p *port) Name() string {
	return p.device
}

func (p *port) FlushInput() error {
	return p.ResetInputBuffer()
}

func (p *port) FlushOutput() error {
	return p.ResetOutputBuffer()
}

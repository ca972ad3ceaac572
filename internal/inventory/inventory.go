// Package inventory enumerates serial ports and reports what is known about
// the board attached to the first one.
package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	serial "github.com/allbin/go-serial-ide"
)

// NoPortsSentinel is the single entry ListPorts returns when nothing usable
// was enumerated.
const NoPortsSentinel = "No ports found"

// ErrNoPorts is returned by BoardInfo when enumeration yields no ports.
var ErrNoPorts = errors.New("no ports available")

// Enumerator lists the serial ports currently attached.
type Enumerator interface {
	Ports() ([]string, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func() ([]string, error)

// Ports calls f.
func (f EnumeratorFunc) Ports() ([]string, error) { return f() }

// HardwareIDProvider looks up device registry hardware ids for a port,
// e.g. USB\VID_2341&PID_0043\7573530333935.
type HardwareIDProvider interface {
	HardwareIDs(port string) ([]string, error)
}

// HardwareIDProviderFunc adapts a function to HardwareIDProvider.
type HardwareIDProviderFunc func(port string) ([]string, error)

// HardwareIDs calls f.
func (f HardwareIDProviderFunc) HardwareIDs(port string) ([]string, error) { return f(port) }

// SystemEnumerator lists ports through the serial package.
var SystemEnumerator Enumerator = EnumeratorFunc(serial.ListPorts)

// SystemHardwareIDs derives a hardware id from the port's USB descriptor.
var SystemHardwareIDs HardwareIDProvider = HardwareIDProviderFunc(func(port string) ([]string, error) {
	info, err := serial.GetPortInfo(port)
	if err != nil {
		return nil, err
	}
	if !info.IsUSB() {
		return nil, serial.ErrUSBInfoNotAvailable
	}
	return []string{info.HardwareID()}, nil
})

// Inventory answers port and board queries. It holds no state between calls.
type Inventory struct {
	ports    Enumerator
	hardware HardwareIDProvider
	log      logrus.FieldLogger
}

// New constructs an Inventory. Nil collaborators fall back to the system ones.
func New(ports Enumerator, hardware HardwareIDProvider, log logrus.FieldLogger) *Inventory {
	if ports == nil {
		ports = SystemEnumerator
	}
	if hardware == nil {
		hardware = SystemHardwareIDs
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Inventory{
		ports:    ports,
		hardware: hardware,
		log:      log.WithField("component", "inventory"),
	}
}

// Ports exposes the underlying enumerator so the session can validate names.
func (inv *Inventory) Ports() ([]string, error) {
	return inv.ports.Ports()
}

// ListPorts never fails. Enumeration errors and empty results both yield
// []string{NoPortsSentinel}.
func (inv *Inventory) ListPorts() []string {
	ports, err := inv.ports.Ports()
	if err != nil {
		inv.log.WithError(err).Warn("port enumeration failed")
		return []string{NoPortsSentinel}
	}
	if len(ports) == 0 {
		return []string{NoPortsSentinel}
	}
	return ports
}

// BoardInfo describes the first enumerated port. Hardware lookup failures are
// reported inside the text; only an empty or failed enumeration is an error.
func (inv *Inventory) BoardInfo() (string, error) {
	ports, err := inv.ports.Ports()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoPorts
	}
	port := ports[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Device Name: %s\n", port)
	fmt.Fprintf(&b, "Port Number: %s\n", port)
	b.WriteString("BN: Unknown board\n")

	ids, err := inv.hardware.HardwareIDs(port)
	if err != nil {
		inv.log.WithError(err).WithField("port", port).Debug("hardware id lookup failed")
		fmt.Fprintf(&b, "Error fetching device info: %v\n", err)
		return b.String(), nil
	}
	for _, id := range ids {
		vid, pid := ParseHardwareID(id)
		if vid != "" {
			fmt.Fprintf(&b, "VID: %s\n", vid)
		}
		if pid != "" {
			fmt.Fprintf(&b, "PID: %s\n", pid)
		}
	}
	return b.String(), nil
}

// ParseHardwareID extracts the VID_ and PID_ values from a registry hardware
// id. Segments are separated by '&', ';' or the '\' bus delimiter.
func ParseHardwareID(id string) (vid, pid string) {
	fields := strings.FieldsFunc(id, func(r rune) bool {
		return r == '&' || r == ';' || r == '\\'
	})
	for _, field := range fields {
		switch {
		case vid == "" && strings.HasPrefix(field, "VID_"):
			vid = field[len("VID_"):]
		case pid == "" && strings.HasPrefix(field, "PID_"):
			pid = field[len("PID_"):]
		}
	}
	return vid, pid
}

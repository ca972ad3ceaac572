// Package serial provides the serial port layer used by the idec backend:
// opening a board's port in raw mode, bounded reads, writes, and port
// discovery with USB metadata.
//
// # Basic Usage
//
// Open a serial port with the default configuration (9600 8N1, one second
// read timeout, exclusive access):
//
//	port, err := serial.Open("/dev/ttyACM0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("ping\n"))
//	buffer := make([]byte, 1024)
//	n, err = port.Read(buffer) // returns 0, nil when the timeout expires
//
// # Configuration Options
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(115200),
//	    serial.WithReadTimeout(500*time.Millisecond),
//	    serial.WithExclusive(false),
//	)
//
// # Port Discovery
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s %s\n", info.Path, info.Description, info.HardwareID())
//	}
//
// HardwareID renders USB identity in the registry form USB\VID_xxxx&PID_yyyy\SERIAL,
// which is what board identification in the rest of the application parses.
//
// # Error Handling
//
// Open wraps the sentinel errors so errors.Is works:
//
//	if errors.Is(err, serial.ErrDeviceInUse) {
//	    // another process holds the port
//	}
//
// # Platform Support
//
// On Linux the port is driven directly through termios via golang.org/x/sys/unix
// and USB metadata is read from sysfs. Other platforms use go.bug.st/serial and
// its enumerator.
package serial

//go:build linux

package serial

import (
	"os"
	"path/filepath"
	"testing"
)

// TestReadSysfsFile tests the sysfs file reading helper
func TestReadSysfsFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		expected string
		setup    func(string) error
	}{
		{
			name:     "normal file",
			expected: "1234",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("1234\n"), 0644)
			},
		},
		{
			name:     "file with spaces",
			expected: "test value",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("  test value  \n"), 0644)
			},
		},
		{
			name:     "nonexistent file",
			expected: "",
			setup:    func(path string) error { return nil },
		},
		{
			name:     "empty file",
			expected: "",
			setup: func(path string) error {
				return os.WriteFile(path, []byte(""), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, tt.name)
			if err := tt.setup(testFile); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			result := readSysfsFile(testFile)
			if result != tt.expected {
				t.Errorf("readSysfsFile() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

// buildSysfs creates a fake sysfs tree:
//
//	root/class/tty/<tty>/device -> root/devices/usb1/1-2/1-2:1.0[/<tty>]
//
// nested selects the ttyUSB layout where the tty node sits under the interface.
func buildSysfs(t *testing.T, tty string, nested bool, files map[string]string) string {
	t.Helper()
	root := t.TempDir()

	devicePath := filepath.Join(root, "devices", "usb1", "1-2")
	interfacePath := filepath.Join(devicePath, "1-2:1.0")
	target := interfacePath
	if nested {
		target = filepath.Join(interfacePath, tty)
	}
	classTtyPath := filepath.Join(root, "class", "tty", tty)

	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatalf("Failed to create directory structure: %v", err)
	}
	if err := os.MkdirAll(classTtyPath, 0755); err != nil {
		t.Fatalf("Failed to create class/tty directory: %v", err)
	}
	for filename, content := range files {
		if err := os.WriteFile(filepath.Join(devicePath, filename), []byte(content+"\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", filename, err)
		}
	}
	if err := os.WriteFile(filepath.Join(interfacePath, "bInterfaceNumber"), []byte("00\n"), 0644); err != nil {
		t.Fatalf("Failed to write interface number: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(classTtyPath, "device")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	return root
}

func withSysfsRoot(t *testing.T, root string) {
	t.Helper()
	orig := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() { sysfsRoot = orig })
}

// TestEnrichUSBInfo tests USB metadata extraction with a mock sysfs structure
func TestEnrichUSBInfo(t *testing.T) {
	tests := []struct {
		name   string
		tty    string
		nested bool
	}{
		{"ttyUSB layout", "ttyUSB0", true},
		{"ttyACM layout", "ttyACM0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSysfsRoot(t, buildSysfs(t, tt.tty, tt.nested, map[string]string{
				"idVendor":     "2341",
				"idProduct":    "0043",
				"serial":       "75735353038351F0E1A1",
				"manufacturer": "Arduino (www.arduino.cc)",
				"product":      "Arduino Uno",
			}))

			info := &PortInfo{Name: tt.tty, Path: "/dev/" + tt.tty}
			enrichUSBInfo(info)

			checks := []struct {
				field    string
				got      string
				expected string
			}{
				{"VendorID", info.VendorID, "2341"},
				{"ProductID", info.ProductID, "0043"},
				{"SerialNumber", info.SerialNumber, "75735353038351F0E1A1"},
				{"InterfaceNumber", info.InterfaceNumber, "00"},
				{"Manufacturer", info.Manufacturer, "Arduino (www.arduino.cc)"},
				{"Product", info.Product, "Arduino Uno"},
			}
			for _, c := range checks {
				if c.got != c.expected {
					t.Errorf("%s = %q, expected %q", c.field, c.got, c.expected)
				}
			}

			expectedID := `USB\VID_2341&PID_0043\75735353038351F0E1A1`
			if info.HardwareID() != expectedID {
				t.Errorf("HardwareID() = %q, expected %q", info.HardwareID(), expectedID)
			}
		})
	}
}

// TestEnrichUSBInfoGracefulFailure tests that enrichUSBInfo handles missing files gracefully
func TestEnrichUSBInfoGracefulFailure(t *testing.T) {
	withSysfsRoot(t, t.TempDir())

	info := &PortInfo{
		Name: "ttyUSB999",
		Path: "/dev/ttyUSB999",
	}
	enrichUSBInfo(info)

	if info.VendorID != "" {
		t.Errorf("VendorID should be empty, got %q", info.VendorID)
	}
	if info.ProductID != "" {
		t.Errorf("ProductID should be empty, got %q", info.ProductID)
	}
	if info.IsUSB() {
		t.Error("IsUSB should be false without metadata")
	}
}

func TestHardwareIDFormatting(t *testing.T) {
	tests := []struct {
		info     PortInfo
		expected string
	}{
		{PortInfo{VendorID: "1a86", ProductID: "7523"}, `USB\VID_1A86&PID_7523`},
		{PortInfo{VendorID: "0403", ProductID: "6001", SerialNumber: "A50285BI"}, `USB\VID_0403&PID_6001\A50285BI`},
		{PortInfo{Name: "ttyS0"}, ""},
	}

	for _, tt := range tests {
		if got := tt.info.HardwareID(); got != tt.expected {
			t.Errorf("HardwareID() = %q, expected %q", got, tt.expected)
		}
	}
}

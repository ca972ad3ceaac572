/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	serial "github.com/allbin/go-serial-ide"
	"github.com/allbin/go-serial-ide/internal/inventory"
	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:     "ports",
	Aliases: []string{"list"},
	Short:   "List available serial ports",
	Long: `List the serial ports a board could be attached to.

The output is the same list the editor window shows in its port selector.
When nothing is attached a single "No ports found" line is printed.

Example usage:
  idec ports
  idec ports --filter usb
  idec ports --table`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		ports := newService(nil, nil).ListSerialPorts()
		if len(ports) == 1 && ports[0] == inventory.NoPortsSentinel {
			fmt.Println(ports[0])
			return
		}

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			return
		}

		if tableFormat {
			fmt.Println(renderTable(filtered))
			return
		}
		for _, port := range filtered {
			fmt.Println(port)
		}
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)

	portsCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	portsCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		kind := portType(port)
		switch strings.ToLower(filterType) {
		case "usb":
			if kind == "USB Serial" || kind == "USB CDC/ACM" {
				filtered = append(filtered, port)
			}
		case "standard":
			if kind == "Standard Serial" {
				filtered = append(filtered, port)
			}
		case "arm":
			if kind == "ARM Serial" {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

const (
	columnKeyPort    = "port"
	columnKeyType    = "type"
	columnKeyUSB     = "usb"
	columnKeyProduct = "product"
)

// renderTable lays the ports out with their USB identity.
func renderTable(ports []string) string {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 18),
		table.NewColumn(columnKeyType, "Type", 16),
		table.NewColumn(columnKeyUSB, "VID:PID", 11),
		table.NewColumn(columnKeyProduct, "Product", 30),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		usb, product := "-", "-"
		if info, err := serial.GetPortInfo(port); err == nil {
			if info.IsUSB() {
				usb = info.VendorID + ":" + info.ProductID
			}
			if info.Product != "" {
				product = info.Product
			} else if info.Description != "" {
				product = info.Description
			}
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:    port,
			columnKeyType:    portType(port),
			columnKeyUSB:     usb,
			columnKeyProduct: product,
		}))
	}

	t := table.New(columns).
		WithRows(rows).
		HeaderStyle(styles.TitleStyle).
		WithBaseStyle(styles.ValueStyle)

	return fmt.Sprintf("Found %d serial port(s):\n\n%s", len(ports), t.View())
}

// portType returns a more specific type classification for the port
func portType(port string) string {
	name := strings.ToLower(port)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	case strings.HasPrefix(name, "com"):
		return "COM Port"
	case strings.HasPrefix(name, "cu."), strings.HasPrefix(name, "tty."):
		return "Serial Device"
	default:
		return "Serial Port"
	}
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	serial "github.com/allbin/go-serial-ide"
	"github.com/allbin/go-serial-ide/internal/inventory"
	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// boardCmd represents the board command
var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Describe the first attached board",
	Long: `Describe the first serial port the system reports, including the
USB vendor and product ID when the port belongs to a USB adapter.

Example usage:
  idec board`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info, err := newService(nil, nil).GetBoardInfo()
		exitOnError(err)
		fmt.Print(info)
	},
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  idec info /dev/ttyUSB0
  idec info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and the hardware ID the board lookup parses.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := serial.GetPortInfo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n\n", styles.TitleStyle.Render("Port Information: "+info.Path))
		field("Name", info.Name)
		field("Description", info.Description)

		if !info.IsUSB() {
			return
		}
		fmt.Printf("\n%s\n", styles.TitleStyle.Render("USB Device Information"))
		field("Vendor ID", info.VendorID)
		field("Product ID", info.ProductID)
		field("Serial", info.SerialNumber)
		field("Interface", info.InterfaceNumber)
		field("Manufacturer", info.Manufacturer)
		field("Product", info.Product)

		hwid := info.HardwareID()
		field("Hardware ID", hwid)
		if vid, pid := inventory.ParseHardwareID(hwid); vid != "" || pid != "" {
			field("Parsed", fmt.Sprintf("VID %s, PID %s", vid, pid))
		}
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(infoCmd)
}

func field(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %s %s\n", styles.LabelStyle.Render(fmt.Sprintf("%-13s", label+":")), styles.ValueStyle.Render(value))
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/commands"
	"github.com/allbin/go-serial-ide/internal/tui/models"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Interactive serial monitor",
	Long: `Open a port and show everything the board prints.

The port is polled on an interval, the same way the editor window's
serial pane does it. Press 'i' to type data to send, Esc to leave insert
mode, '?' for all key bindings and 'q' to quit.

Examples:
  idec monitor /dev/ttyACM0
  idec monitor /dev/ttyUSB0 --baud 115200 --line-ending crlf
  idec monitor /dev/ttyACM0 --interval 100ms`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		interval, _ := cmd.Flags().GetDuration("interval")
		lineEnding, _ := cmd.Flags().GetString("line-ending")

		ending, err := parseLineEnding(lineEnding)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		svc := newService(nil, nil)
		monitor := models.NewMonitor(serviceSession{svc}, args[0], appCfg.Serial.BaudRate, interval, ending)

		p := tea.NewProgram(monitor, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running monitor: %v\n", err)
			os.Exit(1)
		}
		if svc.SerialStatus() != "" {
			_ = svc.CloseSerialPort()
		}
		fmt.Println(monitor.Summary())
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Duration("interval", 500*time.Millisecond, "How often the port is polled")
	monitorCmd.Flags().StringP("line-ending", "l", "lf", "Line ending appended to sent text: none, lf, cr, crlf")
}

func parseLineEnding(name string) (string, error) {
	switch name {
	case "none", "":
		return "", nil
	case "lf":
		return "\n", nil
	case "cr":
		return "\r", nil
	case "crlf":
		return "\r\n", nil
	}
	return "", fmt.Errorf("unknown line ending %q", name)
}

// serviceSession drives the monitor through the command surface so its
// errors carry the same messages the editor shows.
type serviceSession struct{ svc *commands.Service }

func (s serviceSession) Open(name string) error  { return s.svc.OpenSerialPort(name) }
func (s serviceSession) Read() (string, error)   { return s.svc.ReadSerialPort() }
func (s serviceSession) Write(data string) error { return s.svc.WriteSerialPort(data) }
func (s serviceSession) Close() error            { return s.svc.CloseSerialPort() }
func (s serviceSession) Status() string          { return s.svc.SerialStatus() }

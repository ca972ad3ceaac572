/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/tui/components"
	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port and optionally print the reply.

Data can be provided as:
- Command line argument: idec send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | idec send /dev/ttyUSB0
- Interactive mode: idec send /dev/ttyUSB0 (prompts for input)

Example usage:
  idec send "AT+GMR" /dev/ttyUSB0 --newline
  idec send "48656c6c6f" /dev/ttyACM0 --hex
  idec send "ping" /dev/ttyACM0 -n --reply`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var data, portPath string

		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portPath = args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		reply, _ := cmd.Flags().GetBool("reply")

		if hexMode {
			raw, err := components.ParseHex(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
			data = string(raw)
		} else if addNewline {
			data += "\n"
		}

		exitOnError(sendData(portPath, data, reply))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().BoolP("reply", "r", false, "Print whatever arrives within one read timeout after sending")
}

func promptForData() string {
	fmt.Print(styles.TitleStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(portPath, data string, reply bool) error {
	svc := newService(nil, nil)

	fmt.Printf("%s Opening %s...\n", styles.TitleStyle.Render("⚡"), portPath)
	if err := svc.OpenSerialPort(portPath); err != nil {
		return err
	}
	defer svc.CloseSerialPort()

	fmt.Printf("%s Connected successfully\n", styles.SuccessStyle.Render("✓"))
	fmt.Printf("%s Sending %d bytes...\n", styles.TitleStyle.Render("📤"), len(data))
	if err := svc.WriteSerialPort(data); err != nil {
		return err
	}
	fmt.Printf("%s Sent\n", styles.SuccessStyle.Render("✓"))

	if !reply {
		return nil
	}
	text, err := svc.ReadSerialPort()
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Println(styles.MutedStyle.Render("(no reply)"))
		return nil
	}
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
	return nil
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/commands"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

The port is polled the same way the editor's serial pane polls it, and
every chunk that arrives is appended to the output file. Runs until
interrupted (Ctrl+C).

Example usage:
  idec capture /dev/ttyACM0 data.log
  idec capture /dev/ttyUSB0 output.txt --baud 115200
  idec capture /dev/ttyACM0 capture.log --console`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		showConsole, _ := cmd.Flags().GetBool("console")

		if err := runCapture(newService(nil, nil), args[0], args[1], showConsole); err != nil {
			exitOnError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(svc *commands.Service, portPath, outputPath string, showConsole bool) error {
	if err := svc.OpenSerialPort(portPath); err != nil {
		return err
	}
	defer svc.CloseSerialPort()

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	bytesWritten := int64(0)
	startTime := time.Now()

	// Each read returns after at most one read timeout, so cancellation is
	// noticed within that bound.
	for ctx.Err() == nil {
		text, err := svc.ReadSerialPort()
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		written, err := file.WriteString(text)
		if err != nil {
			return fmt.Errorf("write error: %w", err)
		}
		bytesWritten += int64(written)
		if showConsole {
			os.Stdout.WriteString(text)
		}
	}

	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", bytesWritten, time.Since(startTime).Round(time.Millisecond))
	return nil
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/commands"
	"github.com/allbin/go-serial-ide/internal/events"
	"github.com/allbin/go-serial-ide/internal/gui"
)

// guiCmd represents the gui command
var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the editor window",
	Long: `Open the editor window. The page calls every backend command through
a single bound function and receives build and flash output as events.

The window needs a binary built with the webview tag:
  go build -tags webview ./cmd/idec`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		depth, _ := cmd.Flags().GetInt("event-buffer")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bus := events.NewBus(logger, depth)

		var window *gui.Window
		svc := commands.NewService(appCfg, commands.Deps{
			Emitter: bus,
			Quit: func() {
				if window != nil {
					window.Terminate()
				}
			},
		}, logger)

		window, err := gui.NewWindow(ctx, svc, bus, debug, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening window: %v\n", err)
			os.Exit(1)
		}
		defer window.Close()

		window.Run()

		if svc.SerialStatus() != "" {
			_ = svc.CloseSerialPort()
		}
		if dropped := bus.Dropped(); dropped > 0 {
			logger.WithField("dropped", dropped).Warn("output events dropped")
		}
	},
}

func init() {
	rootCmd.AddCommand(guiCmd)

	guiCmd.Flags().Bool("debug", false, "Enable the webview developer tools")
	guiCmd.Flags().Int("event-buffer", events.DefaultDepth, "Events buffered per window before output is dropped")
}

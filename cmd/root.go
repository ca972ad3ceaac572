/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/commands"
	"github.com/allbin/go-serial-ide/internal/config"
	"github.com/allbin/go-serial-ide/internal/events"
	"github.com/allbin/go-serial-ide/internal/logging"
	"github.com/allbin/go-serial-ide/internal/runner"
	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

var (
	cfgFile string
	appCfg  config.Config
	logger  *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "idec",
	Short: "Backend for a small microcontroller IDE",
	Long: `idec lists and talks to serial boards, builds and flashes firmware
projects and serves the editor window.

Every command the editor window uses is also available here, so the
backend can be driven from a shell:

  idec ports
  idec monitor /dev/ttyACM0
  idec build src/main.rs
  idec flash /dev/ttyACM0 target/avr-atmega328p/release/app.elf
  idec gui`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		appCfg = cfg
		logger = logging.New(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/idec/idec.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text, json")
	rootCmd.PersistentFlags().IntP("baud", "b", 9600, "Serial baud rate")
}

// newService wires a Service for a single CLI invocation.
func newService(emitter events.Emitter, quit func()) *commands.Service {
	return commands.NewService(appCfg, commands.Deps{
		Emitter: emitter,
		Quit:    quit,
	}, logger)
}

// printer writes runner lines to stdout, colouring stderr lines.
func printer() events.Emitter {
	var mu sync.Mutex
	return events.EmitterFunc(func(_ events.Topic, payload string) error {
		mu.Lock()
		defer mu.Unlock()
		isErr := strings.HasPrefix(payload, runner.ErrorPrefix)
		_, err := fmt.Fprintln(os.Stdout, styles.OutputLineStyle(payload, isErr))
		return err
	})
}

// exitOnError prints err with its classification and exits.
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v (%s)\n", styles.ErrorStyle.Render("✗"), err, commands.KindOf(err))
	os.Exit(1)
}

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

	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Build the project containing a source file",
	Long: `Run the toolchain build in the project that contains <file> and
stream its output. The project root is the parent of the file's directory,
so src/main.rs builds the project one level above src.

Lines written to stderr are prefixed with "ERROR: ".

Example usage:
  idec build ~/blink/src/main.rs`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exitOnError(newService(printer(), nil).BuildProject(ctx, args[0]))
	},
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the project in a new terminal window",
	Long: `Open a terminal window in the project containing <file> and run it
there with the toolchain's run command.

Example usage:
  idec run ~/blink/src/main.rs
  idec run ~/blink/src/main.rs --port /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")

		msg, err := newService(nil, nil).RunProject(args[0], port)
		exitOnError(err)
		fmt.Printf("%s %s\n", styles.SuccessStyle.Render("✓"), msg)
	},
}

// flashCmd represents the flash command
var flashCmd = &cobra.Command{
	Use:   "flash <port> <elf>",
	Short: "Flash a firmware image to a board",
	Long: `Flash the ELF image to the board on <port> with the configured flash
tool and stream its output.

Example usage:
  idec flash /dev/ttyACM0 target/avr-atmega328p/release/blink.elf`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err := newService(printer(), nil).FlashToController(ctx, args[0], args[1])
		exitOnError(err)
	},
}

// buildWindowCmd represents the open-build-window command
var buildWindowCmd = &cobra.Command{
	Use:   "open-build-window <project-dir>",
	Short: "Build a project in a new terminal window",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(newService(nil, nil).OpenCmdWindowAndBuild(args[0]))
	},
}

// exploreCmd represents the explore command
var exploreCmd = &cobra.Command{
	Use:   "explore <path>",
	Short: "Show a path in the file manager",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(newService(nil, nil).OpenFileExplorer(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(buildWindowCmd)
	rootCmd.AddCommand(exploreCmd)

	runCmd.Flags().StringP("port", "p", "", "Serial port passed to the run command")
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// fileCmd groups the editor's file commands
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Read, save and create source files",
}

var fileOpenCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := newService(nil, nil).OpenFile(args[0])
		exitOnError(err)
		fmt.Print(content)
	},
}

var fileSaveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Replace a file with standard input",
	Long: `Replace the content of <path> with everything read from standard input.

Example usage:
  echo 'fn main() {}' | idec file save src/main.rs`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
			os.Exit(1)
		}
		exitOnError(newService(nil, nil).SaveFile(args[0], string(content)))
	},
}

var fileNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty source file in the current directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := newService(nil, nil).CreateNewFile()
		exitOnError(err)
		fmt.Printf("%s Created %s\n", styles.SuccessStyle.Render("✓"), path)
	},
}

// aboutCmd represents the about command
var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Show information about idec",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService(nil, nil)
		fmt.Println(styles.TitleStyle.Render("idec"))
		fmt.Println(svc.AboutUs())
		fmt.Println(styles.MutedStyle.Render(svc.GitHubURL()))
	},
}

func init() {
	fileCmd.AddCommand(fileOpenCmd)
	fileCmd.AddCommand(fileSaveCmd)
	fileCmd.AddCommand(fileNewCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(aboutCmd)
}

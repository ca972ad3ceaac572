/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/allbin/go-serial-ide/internal/config"
	"github.com/allbin/go-serial-ide/internal/logging"
	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the default configuration to --config, or to
$XDG_CONFIG_HOME/idec/idec.yaml. An existing file is kept unless --force
is given.`,
	Args: cobra.NoArgs,
	// The file may not exist yet, so loading it first would fail.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.New(logging.Options{})
	},
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		path := cfgFile
		if path == "" {
			var err error
			path, err = config.DefaultPath()
			exitOnError(err)
		}
		exitOnError(config.WriteDefault(path, force))
		fmt.Printf("%s Wrote %s\n", styles.SuccessStyle.Render("✓"), path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out, err := yaml.Marshal(appCfg)
		exitOnError(err)
		fmt.Print(string(out))
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

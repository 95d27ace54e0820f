package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqlink/seqlinkd/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print a commented default config.yaml",
	Long: "Prints the daemon's default settings as a commented YAML file.\n\n" +
		"Redirect to " + config.DefaultPath + " for first-time setup.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(config.DefaultYAML())
	},
}

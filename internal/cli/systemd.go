package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqlink/seqlinkd/internal/systemd"
)

func init() {
	rootCmd.AddCommand(systemdCmd)
}

var systemdCmd = &cobra.Command{
	Use:   "systemd",
	Short: "Print the seqlinkd.service unit file",
	Long: "Prints the systemd service unit for running the daemon at boot.\n\n" +
		"Install with:\n" +
		"  seqlinkd systemd | sudo tee /etc/systemd/system/seqlinkd.service\n" +
		"  sudo systemctl enable --now seqlinkd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(systemd.Unit())
	},
}

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqlink/seqlinkd/internal/control"
	"github.com/seqlink/seqlinkd/internal/version"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a running daemon's status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	sock, err := controlSocketPath()
	if err != nil {
		return err
	}

	st, err := control.NewClient(sock).Status(cmd.Context())
	if err != nil {
		return err
	}

	uptime := (time.Duration(st.UptimeSeconds) * time.Second).String()
	fmt.Printf("version:           %s\n", version.Display(st.Version))
	fmt.Printf("pid:               %d\n", st.PID)
	fmt.Printf("run id:            %s\n", st.RunID)
	fmt.Printf("started:           %s (up %s)\n", st.StartedAt.Local().Format(time.RFC3339), uptime)
	fmt.Printf("sequencer client:  %d (%s)\n", st.SequencerClient, st.ClientName)
	fmt.Printf("software clients:  %d\n", st.SoftwareClients)
	fmt.Printf("hardware clients:  %d\n", st.HardwareClients)
	fmt.Printf("links made:        %d\n", st.LinksMade)
	fmt.Printf("links duplicate:   %d\n", st.LinksDuplicate)
	fmt.Printf("links failed:      %d\n", st.LinksFailed)

	if warn := version.Mismatch(st.Version); warn != "" {
		fmt.Fprintln(os.Stderr, warn)
	}
	return nil
}

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seqlink/seqlinkd/internal/control"
)

func init() {
	rootCmd.AddCommand(endpointsCmd)
}

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the clients a running daemon is tracking",
	RunE:  runEndpoints,
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	sock, err := controlSocketPath()
	if err != nil {
		return err
	}

	eps, err := control.NewClient(sock).Endpoints(cmd.Context())
	if err != nil {
		return err
	}
	if len(eps) == 0 {
		fmt.Println("no tracked endpoints")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLIENT\tNAME\tROLE\tINPUT\tOUTPUT")
	for _, ep := range eps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			ep.Client, ep.Name, ep.Role, orDash(ep.Input), orDash(ep.Output))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

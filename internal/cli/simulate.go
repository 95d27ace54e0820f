package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seqlink/seqlinkd/internal/config"
	"github.com/seqlink/seqlinkd/internal/policy"
)

var simRules string

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simRules, "rules", "", "Path to rules.conf (defaults to the configured file)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <output-client> <input-client>",
	Short: "Show how the rules grade one client pair",
	Long: "Loads the rules exactly the way the daemon does, then reports the allow\n" +
		"and disallow strengths for a link from <output-client> to <input-client>\n" +
		"and the verdict at both link thresholds.\n\n" +
		"Use this to preview rule changes before touching a live setup.",
	Args: cobra.ExactArgs(2),
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	path := simRules
	if path == "" {
		cfg, err := config.Load(rootConfigPath)
		if err != nil {
			return err
		}
		path = cfg.RulesPath
	}

	// Load with the daemon's fallback behavior so the preview matches
	// reality, warnings included.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rules := policy.LoadFile(path, logger)

	simulateVerdict(rules, path, args[0], args[1], os.Stdout)
	return nil
}

func simulateVerdict(rules *policy.RuleSet, path, output, input string, w io.Writer) {
	allowCount, disallowCount := rules.Counts()
	fmt.Fprintf(w, "rules:    %s (%d allow, %d disallow)\n", path, allowCount, disallowCount)
	fmt.Fprintf(w, "output:   %q\n", output)
	fmt.Fprintf(w, "input:    %q\n", input)
	fmt.Fprintln(w)

	allow, disallow := rules.Strengths(output, input)
	fmt.Fprintf(w, "allow strength:    %s\n", allow)
	fmt.Fprintf(w, "disallow strength: %s\n", disallow)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "cross-role pairing (needs %s): %s\n",
		policy.VeryVague, verdict(rules.Allowed(output, input, policy.VeryVague)))
	fmt.Fprintf(w, "same-role pairing (needs %s): %s\n",
		policy.Specific, verdict(rules.Allowed(output, input, policy.Specific)))
}

func verdict(allowed bool) string {
	if allowed {
		return "would link"
	}
	return "would not link"
}

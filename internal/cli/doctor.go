package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/seqlink/seqlinkd/internal/alsa"
	"github.com/seqlink/seqlinkd/internal/config"
	"github.com/seqlink/seqlinkd/internal/control"
	"github.com/seqlink/seqlinkd/internal/policy"
	"github.com/seqlink/seqlinkd/internal/systemd"
	"github.com/seqlink/seqlinkd/internal/version"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Sequencer device node.
	switch err := unix.Access(alsa.DevicePath, unix.R_OK|unix.W_OK); {
	case err == nil:
		checks = append(checks, checkResult{
			label:  "sequencer device",
			ok:     true,
			detail: alsa.DevicePath,
		})
	case errors.Is(err, unix.ENOENT):
		checks = append(checks, checkResult{
			label:  "sequencer device",
			ok:     false,
			detail: "missing",
			fix:    "modprobe snd-seq",
		})
	case errors.Is(err, unix.EACCES):
		checks = append(checks, checkResult{
			label:  "sequencer device",
			ok:     false,
			detail: "permission denied",
			fix:    "add this user to the audio group",
		})
	default:
		checks = append(checks, checkResult{
			label:  "sequencer device",
			ok:     false,
			detail: err.Error(),
		})
	}

	// 2. Settings file.
	configPath := rootConfigPath
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := loadConfig()
	switch {
	case err != nil:
		checks = append(checks, checkResult{
			label:  "config file",
			ok:     false,
			detail: err.Error(),
			fix:    "seqlinkd config > " + configPath,
		})
		cfg = config.Default()
	default:
		detail := configPath
		if _, statErr := os.Stat(configPath); statErr != nil {
			detail = "missing, using defaults"
		}
		checks = append(checks, checkResult{label: "config file", ok: true, detail: detail})
	}

	// 3. Rules file.
	if f, err := os.Open(cfg.RulesPath); err != nil {
		checks = append(checks, checkResult{
			label:  "rules file",
			ok:     true,
			detail: "missing, every link allowed",
		})
	} else {
		res, perr := policy.Parse(f)
		f.Close()
		switch {
		case perr != nil:
			checks = append(checks, checkResult{
				label:  "rules file",
				ok:     false,
				detail: perr.Error(),
			})
		case len(res.Warnings) > 0:
			checks = append(checks, checkResult{
				label:  "rules file",
				ok:     false,
				detail: fmt.Sprintf("%d lines would be skipped", len(res.Warnings)),
				fix:    "seqlinkd check " + cfg.RulesPath,
			})
		default:
			allow, disallow := res.Set.Counts()
			checks = append(checks, checkResult{
				label:  "rules file",
				ok:     true,
				detail: fmt.Sprintf("%d allow, %d disallow", allow, disallow),
			})
		}
	}

	// 4. Running daemon.
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()
	if st, err := control.NewClient(cfg.ControlSocket).Status(ctx); err == nil {
		checks = append(checks, checkResult{
			label:  "daemon",
			ok:     true,
			detail: fmt.Sprintf("running, pid %d, %s", st.PID, version.Display(st.Version)),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "daemon",
			ok:     false,
			detail: "not reachable on " + cfg.ControlSocket,
			fix:    "sudo systemctl enable --now seqlinkd",
		})
	}

	// 5. systemd unit.
	if p := systemd.InstalledPath(); p != "" {
		checks = append(checks, checkResult{label: "systemd unit", ok: true, detail: p})
	} else {
		checks = append(checks, checkResult{
			label:  "systemd unit",
			ok:     false,
			detail: "not installed",
			fix:    "seqlinkd systemd | sudo tee " + systemd.UnitFilePaths[0],
		})
	}

	// Print results.
	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}

// Package cli wires the seqlinkd commands. Running the bare binary starts
// the daemon; subcommands query a running daemon or inspect configuration.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqlink/seqlinkd/internal/alsa"
	"github.com/seqlink/seqlinkd/internal/config"
	"github.com/seqlink/seqlinkd/internal/daemon"
	"github.com/seqlink/seqlinkd/internal/policy"
	"github.com/seqlink/seqlinkd/internal/version"
)

var (
	rootConfigPath string
	rootSocket     string
	rootRulesPath  string
	rootJournal    string
	rootPIDFile    string
	rootLogLevel   string
	rootLogFormat  string
	rootClientName string
	rootNoWait     bool
)

var rootCmd = &cobra.Command{
	Use:   "seqlinkd",
	Short: "MIDI port autoconnect daemon",
	Long: "Watches the kernel sequencer for MIDI ports appearing and disappearing\n" +
		"and links them automatically: hardware to software at wildcard trust,\n" +
		"same-kind pairs only when a literal rule names them. The link policy\n" +
		"lives in rules.conf; run with no arguments to start the daemon.",
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootConfigPath, "config", "", "Path to config.yaml (default "+config.DefaultPath+")")
	pf.StringVar(&rootSocket, "socket", "", "Control socket of the daemon (overrides config)")

	f := rootCmd.Flags()
	f.StringVar(&rootRulesPath, "rules", "", "Path to rules.conf (overrides config)")
	f.StringVar(&rootJournal, "journal", "", "Path to the link journal (overrides config)")
	f.StringVar(&rootPIDFile, "pid-file", "", "Path to the PID lock file (overrides config)")
	f.StringVar(&rootLogLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	f.StringVar(&rootLogFormat, "log-format", "", "text|json (overrides config)")
	f.StringVar(&rootClientName, "client-name", "", "Sequencer client name (overrides config)")
	f.BoolVar(&rootNoWait, "no-wait", false, "Do not wait for the sequencer device to appear")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return nil, err
	}
	if rootRulesPath != "" {
		cfg.RulesPath = rootRulesPath
	}
	if rootSocket != "" {
		cfg.ControlSocket = rootSocket
	}
	if rootJournal != "" {
		cfg.JournalPath = rootJournal
	}
	if rootPIDFile != "" {
		cfg.PIDFile = rootPIDFile
	}
	if rootLogLevel != "" {
		cfg.LogLevel = rootLogLevel
	}
	if rootLogFormat != "" {
		cfg.LogFormat = rootLogFormat
	}
	if rootClientName != "" {
		cfg.ClientName = rootClientName
	}
	if rootNoWait {
		cfg.WaitForDevice = false
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// controlSocketPath resolves the socket subcommands should query.
func controlSocketPath() (string, error) {
	if rootSocket != "" {
		return rootSocket, nil
	}
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return "", err
	}
	return cfg.ControlSocket, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WaitForDevice {
		wait := time.Duration(cfg.DeviceWaitSeconds) * time.Second
		if err := daemon.WaitForPath(ctx, alsa.DevicePath, wait); err != nil {
			return err
		}
	}

	client, err := alsa.Open(cfg.ClientName, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	rules := policy.LoadFile(cfg.RulesPath, logger)

	d, err := daemon.New(daemon.Config{
		ClientName:      cfg.ClientName,
		SequencerClient: client.ClientID(),
		Rules:           rules,
		RulesPath:       cfg.RulesPath,
		Source:          client,
		Linker:          client,
		JournalPath:     cfg.JournalPath,
		ControlSocket:   cfg.ControlSocket,
		PIDFile:         cfg.PIDFile,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting",
		"version", version.String(),
		"sequencer_client", client.ClientID(),
		"rules", cfg.RulesPath)
	return d.Run(ctx)
}

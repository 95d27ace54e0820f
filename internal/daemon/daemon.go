// Package daemon runs the autoconnect loop: it seeds the registry from a
// sequencer snapshot, wires the existing graph, then applies endpoint
// events one at a time until the context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/seqlink/seqlinkd/internal/connector"
	"github.com/seqlink/seqlinkd/internal/control"
	"github.com/seqlink/seqlinkd/internal/journal"
	"github.com/seqlink/seqlinkd/internal/policy"
	"github.com/seqlink/seqlinkd/internal/registry"
	"github.com/seqlink/seqlinkd/internal/seq"
	"github.com/seqlink/seqlinkd/internal/version"
)

// Config holds full daemon configuration.
type Config struct {
	// ClientName is the name the daemon registered on the sequencer.
	ClientName string

	// SequencerClient is the daemon's own client number on the sequencer.
	SequencerClient int

	// Rules decides which links may be made.
	Rules *policy.RuleSet

	// RulesPath is where Rules were loaded from, reported over the
	// control socket.
	RulesPath string

	// Source delivers the port snapshot and the event stream.
	Source seq.EventSource

	// Linker makes subscriptions on the sequencer.
	Linker seq.Linker

	// JournalPath enables the link journal when non-empty.
	JournalPath string

	// ControlSocket enables the status API when non-empty.
	ControlSocket string

	// PIDFile enables the single-instance lock when non-empty.
	PIDFile string

	Logger *slog.Logger
}

// Daemon owns the registry and connector and serializes all access to them.
type Daemon struct {
	cfg     Config
	logger  *slog.Logger
	runID   string
	started time.Time

	// mu guards reg and the connector's view of it. The event loop holds
	// it per event; the control server holds it per request.
	mu   sync.Mutex
	reg  *registry.Registry
	conn *connector.Connector
	act  *linkActuator
}

// New creates a daemon with validated configuration.
func New(cfg Config) (*Daemon, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("an event source is required")
	}
	if cfg.Linker == nil {
		return nil, fmt.Errorf("a linker is required")
	}
	if cfg.Rules == nil {
		return nil, fmt.Errorf("a rule set is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Daemon{
		cfg:    cfg,
		logger: cfg.Logger,
		runID:  uuid.NewString(),
	}
	d.reg = registry.New(cfg.Logger)
	d.act = &linkActuator{
		linker: cfg.Linker,
		reg:    d.reg,
		runID:  d.runID,
		logger: cfg.Logger,
	}
	d.conn = connector.New(cfg.Rules, d.reg, d.act, cfg.Logger)
	return d, nil
}

// Run starts the daemon. Blocks until ctx is cancelled or the event
// source fails.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()

	if d.cfg.PIDFile != "" {
		if err := acquirePIDLock(d.cfg.PIDFile); err != nil {
			return fmt.Errorf("acquire PID lock: %w", err)
		}
		defer func() { _ = os.Remove(d.cfg.PIDFile) }()
	}

	if d.cfg.JournalPath != "" {
		j, err := journal.Open(d.cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() { _ = j.Close() }()
		d.act.journal = j
	}

	if d.cfg.ControlSocket != "" {
		srv := control.NewServer(d, d.logger)
		if err := srv.Start(d.cfg.ControlSocket); err != nil {
			return fmt.Errorf("start control server: %w", err)
		}
		defer func() { _ = srv.Close() }()
	}

	if err := d.seed(); err != nil {
		return err
	}

	d.logger.Info("watching sequencer",
		"run_id", d.runID,
		"client", d.cfg.ClientName,
		"software_clients", d.reg.Count(registry.Software),
		"hardware_clients", d.reg.Count(registry.Hardware))

	for {
		ev, err := d.cfg.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				d.logger.Info("shutting down", "run_id", d.runID)
				return nil
			}
			return fmt.Errorf("read sequencer event: %w", err)
		}
		d.dispatch(ev)
	}
}

// seed registers everything already on the sequencer, then links the
// existing graph in one pass.
func (d *Daemon) seed() error {
	ports, err := d.cfg.Source.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot sequencer graph: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range ports {
		d.reg.AddPort(p)
	}
	d.conn.ConnectExisting()
	return nil
}

// dispatch applies one endpoint event. The connector only reacts to
// appearances that claimed a new direction slot; duplicates and untracked
// endpoints fall through silently.
func (d *Daemon) dispatch(ev seq.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Kind {
	case seq.PortAppeared:
		if d.reg.AddPort(ev.Port) {
			d.conn.PortAppeared(ev.Port.Addr, ev.Port.Directions())
		}
	case seq.PortGone:
		d.reg.RemovePort(ev.Port.Addr)
	}
}

// Status implements control.Snapshotter.
func (d *Daemon) Status() control.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	linked, duplicate, failed := d.act.counts()
	return control.Status{
		Version:         version.String(),
		RunID:           d.runID,
		PID:             os.Getpid(),
		StartedAt:       d.started.UTC(),
		UptimeSeconds:   int64(time.Since(d.started).Seconds()),
		ClientName:      d.cfg.ClientName,
		SequencerClient: d.cfg.SequencerClient,
		SoftwareClients: d.reg.Count(registry.Software),
		HardwareClients: d.reg.Count(registry.Hardware),
		LinksMade:       linked,
		LinksDuplicate:  duplicate,
		LinksFailed:     failed,
	}
}

// Endpoints implements control.Snapshotter. Records are reported in role
// then client order so repeated queries are comparable.
func (d *Daemon) Endpoints() []control.Endpoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []control.Endpoint
	for _, role := range registry.Roles {
		var eps []control.Endpoint
		for client, rec := range d.reg.Clients(role) {
			ep := control.Endpoint{
				Client: int(client),
				Name:   rec.Name,
				Role:   role.String(),
			}
			if rec.In != nil {
				ep.Input = rec.In.String()
			}
			if rec.Out != nil {
				ep.Output = rec.Out.String()
			}
			eps = append(eps, ep)
		}
		sort.Slice(eps, func(i, j int) bool { return eps[i].Client < eps[j].Client })
		out = append(out, eps...)
	}
	return out
}

// Rules implements control.Snapshotter.
func (d *Daemon) Rules() control.RulesInfo {
	allow, disallow := d.cfg.Rules.Counts()
	return control.RulesInfo{
		Path:          d.cfg.RulesPath,
		AllowRules:    allow,
		DisallowRules: disallow,
	}
}

// linkActuator is the seq.Linker the connector drives. It forwards to the
// real linker, keeps the run counters, and journals every attempt.
type linkActuator struct {
	linker  seq.Linker
	reg     *registry.Registry
	journal *journal.Journal
	runID   string
	logger  *slog.Logger

	linked    int
	duplicate int
	failed    int
}

func (a *linkActuator) Link(output, input seq.Addr) error {
	err := a.linker.Link(output, input)

	result := journal.ResultLinked
	switch {
	case err == nil:
		a.linked++
	case errors.Is(err, seq.ErrAlreadyLinked):
		result = journal.ResultAlreadyLinked
		a.duplicate++
	default:
		result = journal.ResultFailed
		a.failed++
	}

	if a.journal != nil {
		entry := journal.Entry{
			RunID:  a.runID,
			Output: output.String(),
			Input:  input.String(),
			Result: result,
		}
		if rec, _, ok := a.reg.Owner(output); ok {
			entry.OutputClient = rec.Name
		}
		if rec, _, ok := a.reg.Owner(input); ok {
			entry.InputClient = rec.Name
		}
		if result == journal.ResultFailed && err != nil {
			entry.Error = err.Error()
		}
		if jerr := a.journal.Record(entry); jerr != nil {
			a.logger.Warn("journal write failed", "error", jerr)
		}
	}
	return err
}

// counts reports the run totals. Callers hold the daemon mutex, which also
// serializes every Link call.
func (a *linkActuator) counts() (linked, duplicate, failed int) {
	return a.linked, a.duplicate, a.failed
}

// acquirePIDLock writes the current PID to the file and checks for stale locks.
func acquirePIDLock(path string) error {
	// Check for existing PID file.
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(string(data))
		if err == nil {
			// Check if the process is still running.
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another daemon is running (PID %d)", pid)
				}
			}
		}
		// Stale PID file, remove it.
		_ = os.Remove(path)
	}

	// Write our PID.
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}

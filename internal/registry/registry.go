// Package registry classifies and tracks sequencer clients and their
// endpoints. It is the daemon's single source of truth for what exists on
// the sequencer right now.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/seqlink/seqlinkd/internal/seq"
)

// Role classifies a client as software (an application) or hardware (a
// device or kernel driver). The role decides which link threshold applies.
type Role int

const (
	Software Role = iota
	Hardware
)

func (r Role) String() string {
	switch r {
	case Software:
		return "software"
	case Hardware:
		return "hardware"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Roles lists both roles in registry search order.
var Roles = [2]Role{Software, Hardware}

const (
	// systemClientID is the sequencer's own reserved client. Its timer and
	// announce ports are never link candidates.
	systemClientID = 0

	// throughPrefix matches the kernel's virtual pass-through client family.
	// Linking against it would echo every event back.
	throughPrefix = "Midi Through"
)

// hardwareNameOverrides lists client names always classified as hardware
// bridges regardless of the type bits they advertise.
var hardwareNameOverrides = []string{"amidithru"}

// Classify derives a client's role from one of its endpoint facts: the name
// override wins, otherwise the application type bit decides.
func Classify(p seq.PortInfo) Role {
	for _, name := range hardwareNameOverrides {
		if p.ClientName == name {
			return Hardware
		}
	}
	if p.Type&seq.TypeApplication != 0 {
		return Software
	}
	return Hardware
}

// ShouldTrack filters endpoints the registry must never see: unexported
// ports, the system client, and the pass-through family.
func ShouldTrack(p seq.PortInfo) bool {
	if p.Caps&seq.CapNoExport != 0 {
		return false
	}
	if p.Addr.Client == systemClientID {
		return false
	}
	if strings.HasPrefix(p.ClientName, throughPrefix) {
		return false
	}
	return true
}

// ClientRecord tracks at most one input and one output endpoint per client.
// The first endpoint of a direction wins; later ones from the same client
// are ignored. A record with both slots empty is inert.
type ClientRecord struct {
	Name string
	In   *seq.Addr
	Out  *seq.Addr
}

// Registry holds the tracked clients, one map per role, keyed by the
// sequencer client identifier. Single-writer; the dispatch loop owns it.
type Registry struct {
	logger  *slog.Logger
	clients map[Role]map[uint8]*ClientRecord
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		clients: map[Role]map[uint8]*ClientRecord{
			Software: {},
			Hardware: {},
		},
	}
}

// AddPort ingests an endpoint-appeared fact. Returns true iff at least one
// direction slot was newly claimed, meaning the connector should react.
// Untrackable and duplicate facts return false without mutation.
func (r *Registry) AddPort(p seq.PortInfo) bool {
	if !ShouldTrack(p) {
		return false
	}
	role := Classify(p)
	rec := r.clients[role][p.Addr.Client]
	if rec == nil {
		rec = &ClientRecord{Name: p.ClientName}
		r.clients[role][p.Addr.Client] = rec
	}

	added := false
	dir := p.Directions()
	if dir.Has(seq.Input) && rec.In == nil {
		addr := p.Addr
		rec.In = &addr
		added = true
	}
	if dir.Has(seq.Output) && rec.Out == nil {
		addr := p.Addr
		rec.Out = &addr
		added = true
	}
	if added {
		r.logger.Debug("tracking endpoint",
			"addr", p.Addr.String(),
			"client", p.ClientName,
			"role", role.String(),
			"directions", dir.String())
	}
	return added
}

// RemovePort ingests an endpoint-removed fact. Only slots holding this
// exact address are cleared, so a stale removal cannot evict a replacement
// endpoint that claimed the slot in the meantime. Unknown addresses are
// no-ops.
func (r *Registry) RemovePort(a seq.Addr) {
	rec, _, ok := r.Owner(a)
	if !ok {
		return
	}
	if rec.In != nil && *rec.In == a {
		rec.In = nil
		r.logger.Debug("untracked input", "addr", a.String(), "client", rec.Name)
	}
	if rec.Out != nil && *rec.Out == a {
		rec.Out = nil
		r.logger.Debug("untracked output", "addr", a.String(), "client", rec.Name)
	}
}

// Owner returns the record for the address's client, searching the software
// map first, then hardware.
func (r *Registry) Owner(a seq.Addr) (*ClientRecord, Role, bool) {
	for _, role := range Roles {
		if rec := r.clients[role][a.Client]; rec != nil {
			return rec, role, true
		}
	}
	return nil, 0, false
}

// Clients exposes one role's live map for scanning. Callers must not mutate
// it; the dispatch loop is the only writer.
func (r *Registry) Clients(role Role) map[uint8]*ClientRecord {
	return r.clients[role]
}

// Count returns how many records exist for a role, inert ones included.
func (r *Registry) Count(role Role) int {
	return len(r.clients[role])
}

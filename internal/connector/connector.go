// Package connector decides which endpoint pairs to link and asks the
// actuator to link them. It keeps no state of its own; every decision is
// recomputed from the registry and the rule set.
package connector

import (
	"errors"
	"log/slog"

	"github.com/seqlink/seqlinkd/internal/policy"
	"github.com/seqlink/seqlinkd/internal/registry"
	"github.com/seqlink/seqlinkd/internal/seq"
)

// linkThreshold is the minimum rule strength required to link a client of
// one role (first index) against clients of another (second index).
// Cross-role links are the common case and work at wildcard trust; same-role
// links risk feedback loops and need a literal rule.
var linkThreshold = [2][2]policy.Strength{
	registry.Software: {
		registry.Software: policy.Specific,
		registry.Hardware: policy.VeryVague,
	},
	registry.Hardware: {
		registry.Software: policy.VeryVague,
		registry.Hardware: policy.Specific,
	},
}

// Connector wires newly appeared endpoints to existing ones, and performs
// the startup sweep over everything already present.
type Connector struct {
	rules  *policy.RuleSet
	reg    *registry.Registry
	linker seq.Linker
	logger *slog.Logger
}

func New(rules *policy.RuleSet, reg *registry.Registry, linker seq.Linker, logger *slog.Logger) *Connector {
	return &Connector{
		rules:  rules,
		reg:    reg,
		linker: linker,
		logger: logger,
	}
}

// PortAppeared reacts to one endpoint that the registry just started
// tracking. It scans both role maps, each at the threshold the role pairing
// demands, and requests a link for every allowed pair. The appeared
// endpoint's own client is a candidate too, so a duplex client can loop to
// itself when a specific rule says so. An unknown owner means nothing to do.
func (c *Connector) PortAppeared(addr seq.Addr, dir seq.Direction) {
	rec, role, ok := c.reg.Owner(addr)
	if !ok {
		return
	}
	for _, scanned := range registry.Roles {
		min := linkThreshold[role][scanned]
		for _, cand := range c.reg.Clients(scanned) {
			if dir.Has(seq.Input) && cand.Out != nil && c.rules.Allowed(cand.Name, rec.Name, min) {
				c.link(*cand.Out, addr)
			}
			if dir.Has(seq.Output) && cand.In != nil && c.rules.Allowed(rec.Name, cand.Name, min) {
				c.link(addr, *cand.In)
			}
		}
	}
}

// linkKey identifies one attempted output→input pair during a sweep.
type linkKey struct {
	out seq.Addr
	in  seq.Addr
}

// ConnectExisting runs the startup sweep: cross-role pairs at wildcard
// trust, then each role against itself at specific trust. One dedup set
// spans all three passes so scanning a collection against itself cannot
// submit the same pair twice.
func (c *Connector) ConnectExisting() {
	attempted := make(map[linkKey]bool)
	c.bulkConnect(registry.Hardware, registry.Software, policy.VeryVague, attempted)
	c.bulkConnect(registry.Hardware, registry.Hardware, policy.Specific, attempted)
	c.bulkConnect(registry.Software, registry.Software, policy.Specific, attempted)
}

// bulkConnect evaluates every client pair across two role maps in both
// directions.
func (c *Connector) bulkConnect(roleA, roleB registry.Role, min policy.Strength, attempted map[linkKey]bool) {
	for _, a := range c.reg.Clients(roleA) {
		for _, b := range c.reg.Clients(roleB) {
			c.tryLink(a, b, min, attempted)
			c.tryLink(b, a, min, attempted)
		}
	}
}

// tryLink requests from.Out → to.In if both slots exist, the pair has not
// been attempted this sweep, and the rules allow it at min.
func (c *Connector) tryLink(from, to *registry.ClientRecord, min policy.Strength, attempted map[linkKey]bool) {
	if from.Out == nil || to.In == nil {
		return
	}
	key := linkKey{out: *from.Out, in: *to.In}
	if attempted[key] {
		return
	}
	attempted[key] = true
	if !c.rules.Allowed(from.Name, to.Name, min) {
		return
	}
	c.link(key.out, key.in)
}

// link submits one request. Failures are logged and forgotten; the actuator
// result never changes what the connector does next.
func (c *Connector) link(out, in seq.Addr) {
	err := c.linker.Link(out, in)
	switch {
	case err == nil:
		c.logger.Info("linked", "output", out.String(), "input", in.String())
	case errors.Is(err, seq.ErrAlreadyLinked):
		c.logger.Debug("already linked", "output", out.String(), "input", in.String())
	default:
		c.logger.Warn("link failed", "output", out.String(), "input", in.String(), "error", err)
	}
}

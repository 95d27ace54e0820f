// Package policy stores link rules and evaluates how strongly a rule set
// matches an (output, input) client-name pair.
package policy

import (
	"fmt"
	"strings"
)

// Wildcard is the universal pattern token. It is only valid as a complete
// pattern; mixing it with literal text is rejected at insertion.
const Wildcard = "*"

// Strength ranks how specifically a rule matched. Higher wins.
type Strength int

const (
	None Strength = iota
	VeryVague
	Vague
	Specific
)

func (s Strength) String() string {
	switch s {
	case None:
		return "none"
	case VeryVague:
		return "very-vague"
	case Vague:
		return "vague"
	case Specific:
		return "specific"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Kind selects which rule collection an inserted rule belongs to.
type Kind int

const (
	KindNone Kind = iota
	KindAllow
	KindDisallow
)

func (k Kind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindDisallow:
		return "disallow"
	default:
		return "none"
	}
}

type rulePattern struct {
	out string
	in  string
}

// RuleSet holds the allow and disallow rule collections. It is populated
// before the event loop starts and read-only afterwards; evaluation never
// mutates it.
type RuleSet struct {
	allow    []rulePattern
	disallow []rulePattern
}

func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// Add inserts one rule. Both patterns must be non-empty and either the
// wildcard token or plain literal text. Rejected rules are dropped; the
// caller decides how to surface the error. Duplicates are not collapsed.
func (rs *RuleSet) Add(kind Kind, outputPattern, inputPattern string) error {
	if kind != KindAllow && kind != KindDisallow {
		return fmt.Errorf("rule kind not specified")
	}
	if err := validatePattern(outputPattern); err != nil {
		return fmt.Errorf("output pattern: %w", err)
	}
	if err := validatePattern(inputPattern); err != nil {
		return fmt.Errorf("input pattern: %w", err)
	}
	r := rulePattern{out: outputPattern, in: inputPattern}
	if kind == KindAllow {
		rs.allow = append(rs.allow, r)
	} else {
		rs.disallow = append(rs.disallow, r)
	}
	return nil
}

func validatePattern(p string) error {
	if p == "" {
		return fmt.Errorf("empty")
	}
	if strings.Contains(p, Wildcard) && p != Wildcard {
		return fmt.Errorf("%q mixes the wildcard with literal text", p)
	}
	return nil
}

// HasRules reports whether at least one rule exists in either collection.
func (rs *RuleSet) HasRules() bool {
	return len(rs.allow) > 0 || len(rs.disallow) > 0
}

// Counts returns the number of allow and disallow rules.
func (rs *RuleSet) Counts() (allow, disallow int) {
	return len(rs.allow), len(rs.disallow)
}

// AllowAll installs the default rule that permits every pair at wildcard
// strength. Callers use it when no rules were loaded at all.
func (rs *RuleSet) AllowAll() {
	rs.allow = append(rs.allow, rulePattern{out: Wildcard, in: Wildcard})
}

// Allowed reports whether a link from the client named outputName to the
// client named inputName is permitted at the given minimum strength: the
// allow collection must reach minimum, and must reach at least the disallow
// collection's strength. Equal strengths favor allow. Pure function.
func (rs *RuleSet) Allowed(outputName, inputName string, minimum Strength) bool {
	allow := collectionStrength(rs.allow, outputName, inputName)
	disallow := collectionStrength(rs.disallow, outputName, inputName)
	return allow >= minimum && allow >= disallow
}

// Strengths exposes both collection strengths for a pair, for diagnostics.
func (rs *RuleSet) Strengths(outputName, inputName string) (allow, disallow Strength) {
	return collectionStrength(rs.allow, outputName, inputName),
		collectionStrength(rs.disallow, outputName, inputName)
}

// collectionStrength is the maximum strength any single rule achieves; a
// single strong match dominates any number of weak ones.
func collectionStrength(rules []rulePattern, outputName, inputName string) Strength {
	best := None
	for _, r := range rules {
		if s := matchStrength(r, outputName, inputName); s > best {
			best = s
		}
	}
	return best
}

// matchStrength grades one rule against a name pair. Literal patterns match
// by case-sensitive substring containment.
func matchStrength(r rulePattern, outputName, inputName string) Strength {
	outWild := r.out == Wildcard
	inWild := r.in == Wildcard
	outSub := !outWild && strings.Contains(outputName, r.out)
	inSub := !inWild && strings.Contains(inputName, r.in)

	switch {
	case outWild && inWild:
		return VeryVague
	case outWild && inSub:
		return Vague
	case outSub && inWild:
		return Vague
	case outSub && inSub:
		return Specific
	default:
		return None
	}
}

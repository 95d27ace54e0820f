package policy

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Direction tokens recognized in rule lines. A line must contain exactly one.
const (
	tokenBoth  = "<->"
	tokenRight = "->"
	tokenLeft  = "<-"
)

// AddedRule is one successfully inserted rule, after direction expansion.
type AddedRule struct {
	Kind   Kind
	Output string
	Input  string
}

// Warning describes one skipped line or rejected rule.
type Warning struct {
	Line int
	Msg  string
}

// ParseResult holds everything a rule-file parse produced.
type ParseResult struct {
	Set      *RuleSet
	Added    []AddedRule
	Warnings []Warning
}

// Parse reads the rule-file grammar: `#` starts a trailing comment, blank
// lines are skipped, `[allow]` / `[disallow]` switch the active kind, and a
// rule line is two operands around exactly one of `<->`, `->`, `<-`. A `<->`
// rule is inserted in both directions unless the operands are equal.
// Malformed lines are recorded as warnings and skipped; parsing never aborts
// on a bad line. The returned error reports read failures only.
func Parse(r io.Reader) (*ParseResult, error) {
	res := &ParseResult{Set: NewRuleSet()}
	kind := KindNone

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			switch line {
			case "[allow]":
				kind = KindAllow
			case "[disallow]":
				kind = KindDisallow
			default:
				kind = KindNone
				res.warnf(lineNo, "unrecognized section %q", line)
			}
			continue
		}

		left, right, token, err := splitRule(line)
		if err != nil {
			res.warnf(lineNo, "%v", err)
			continue
		}
		if kind == KindNone {
			res.warnf(lineNo, "rule outside any [allow] or [disallow] section")
			continue
		}

		pairs := [][2]string{}
		switch token {
		case tokenRight:
			pairs = append(pairs, [2]string{left, right})
		case tokenLeft:
			pairs = append(pairs, [2]string{right, left})
		case tokenBoth:
			pairs = append(pairs, [2]string{left, right})
			if left != right {
				pairs = append(pairs, [2]string{right, left})
			}
		}
		for _, p := range pairs {
			if err := res.Set.Add(kind, p[0], p[1]); err != nil {
				res.warnf(lineNo, "%v", err)
				continue
			}
			res.Added = append(res.Added, AddedRule{Kind: kind, Output: p[0], Input: p[1]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return res, nil
}

// splitRule finds the single direction token and returns the trimmed
// operands. At the same position `<->` wins over `<-`.
func splitRule(line string) (left, right, token string, err error) {
	pos := -1
	for i := 0; i < len(line); i++ {
		if strings.HasPrefix(line[i:], tokenBoth) {
			pos, token = i, tokenBoth
		} else if strings.HasPrefix(line[i:], tokenRight) {
			pos, token = i, tokenRight
		} else if strings.HasPrefix(line[i:], tokenLeft) {
			pos, token = i, tokenLeft
		}
		if pos >= 0 {
			break
		}
	}
	if pos < 0 {
		return "", "", "", fmt.Errorf("missing direction token")
	}
	left = strings.TrimSpace(line[:pos])
	rest := line[pos+len(token):]
	for _, t := range []string{tokenBoth, tokenRight, tokenLeft} {
		if strings.Contains(rest, t) {
			return "", "", "", fmt.Errorf("more than one direction token")
		}
	}
	right = strings.TrimSpace(rest)
	return left, right, token, nil
}

func (r *ParseResult) warnf(line int, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Line: line, Msg: fmt.Sprintf(format, args...)})
}

// LoadFile reads the rule file at path and returns the resulting rule set.
// A missing or unreadable file, and a file that yields no rules at all, fall
// back to the default allow-everything policy. Never fails: configuration
// problems are logged and absorbed.
func LoadFile(path string, logger *slog.Logger) *RuleSet {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("rules file unavailable, allowing all links", "path", path, "error", err)
		rs := NewRuleSet()
		rs.AllowAll()
		return rs
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		logger.Warn("rules file unreadable, allowing all links", "path", path, "error", err)
		rs := NewRuleSet()
		rs.AllowAll()
		return rs
	}
	for _, w := range res.Warnings {
		logger.Warn("rule skipped", "path", path, "line", w.Line, "reason", w.Msg)
	}
	if !res.Set.HasRules() {
		logger.Info("no rules loaded, allowing all links", "path", path)
		res.Set.AllowAll()
	}
	return res.Set
}

package rules

import (
	"fmt"
	"io"
	"strings"
)

// TraceEntry records the evaluation of one criterion.
type TraceEntry struct {
	Rule      string
	Criterion string
	Depth     int
	Key       string // empty for composites
	Expr      string
	Value     string
	Found     bool
	Matched   bool
	Score     float32
	Excluded  bool
}

// RuleScore records the final score of one rule.
type RuleScore struct {
	Rule     string
	Score    float32
	Excluded bool
}

// Trace collects a per-criterion account of a dispatch. A nil *Trace
// records nothing.
type Trace struct {
	Entries []TraceEntry
	Rules   []RuleScore
	current string
}

func (t *Trace) beginRule(name string) {
	if t == nil {
		return
	}
	t.current = name
}

func (t *Trace) criterion(e TraceEntry) {
	if t == nil {
		return
	}
	e.Rule = t.current
	t.Entries = append(t.Entries, e)
}

func (t *Trace) endRule(score float32, excluded bool) {
	if t == nil {
		return
	}
	t.Rules = append(t.Rules, RuleScore{Rule: t.current, Score: score, Excluded: excluded})
	t.current = ""
}

// Write prints the trace, one rule per block, children indented. Entries
// are recorded children-first, so each block is printed in that order.
func (t *Trace) Write(w io.Writer) {
	if t == nil {
		return
	}
	for _, rs := range t.Rules {
		status := fmt.Sprintf("score %.3f", rs.Score)
		if rs.Excluded {
			status = "excluded"
		}
		fmt.Fprintf(w, "rule %s: %s\n", rs.Rule, status)
		for _, e := range t.Entries {
			if e.Rule != rs.Rule {
				continue
			}
			indent := strings.Repeat("  ", e.Depth+1)
			mark := "-"
			if e.Matched {
				mark = "+"
			}
			if e.Excluded {
				mark = "!"
			}
			if e.Key == "" {
				fmt.Fprintf(w, "%s%s %s (composite) = %.3f\n", indent, mark, e.Criterion, e.Score)
				continue
			}
			value := fmt.Sprintf("%q", e.Value)
			if !e.Found {
				value = "<absent>"
			}
			fmt.Fprintf(w, "%s%s %s: %s %q vs %s = %.3f\n", indent, mark, e.Criterion, e.Key, e.Expr, value, e.Score)
		}
	}
}

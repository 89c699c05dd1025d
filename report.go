package cinder

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report is the result of checking a rule.
type Report struct {
	// The name of the rule that was checked.
	Rule string

	// Whether the rule holds for the current context sets.
	Pass bool

	// The witness chains explaining a violation, in evaluation order.
	// The chains belong to the report; changing them does not affect the
	// checker.
	// Empty when the rule passes. A rule can also fail without chains, for
	// example an existential quantifier over an empty set at the top level.
	Chains []Chain

	// The number of checking tree nodes recomputed by this check.
	Recomputed int

	// The size of the checking tree.
	Nodes int
}

// Links returns the witness in the wire format: chains joined by '#', the
// contexts of each chain joined by ';'. It is empty for a passing rule.
func (r *Report) Links() string {
	return Witness(r.Chains).String()
}

// Summary returns the one-line verdict for the rule followed by one line per
// witness chain.
func (r *Report) Summary() string {
	var sb strings.Builder
	if r.Pass {
		fmt.Fprintf(&sb, "[rule] %s: Pass!\n", r.Rule)
		return sb.String()
	}
	fmt.Fprintf(&sb, "[rule] %s: Failed!\n", r.Rule)
	for _, c := range r.Chains {
		sb.WriteString(c.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// String produces a table with the verdict and witness chains of the rule.
func (r *Report) String() string {
	tw := table.NewWriter()
	tw.SetTitle("\nCINDER CHECK REPORT\n")
	tw.AppendHeader(table.Row{"\nRule", "Pass/\nFail", "Nodes", "Recom-\nputed", "\nWitness"})
	tw.AppendRow(table.Row{r.Rule, boolString(r.Pass), r.Nodes, r.Recomputed, firstChain(r.Chains)})
	for i := 1; i < len(r.Chains); i++ {
		tw.AppendRow(table.Row{"", "", "", "", r.Chains[i].String()})
	}
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func firstChain(cs []Chain) string {
	if len(cs) == 0 {
		return ""
	}
	return cs[0].String()
}

func boolString(b bool) string {
	switch b {
	case true:
		return "PASS"
	default:
		return "FAIL"
	}
}

package cinder

import (
	"fmt"
	"strings"

	"github.com/Delta456/box-cli-maker/v2"
	"github.com/alexeyco/simpletable"
)

// Diagnostics returns a report of the checker's state: the rule, the size of
// its checking tree, and one row per node with its bound context, cached
// value, witness size and state.
func (c *Checker) Diagnostics() string {
	Box := box.New(box.Config{Px: 2, Py: 1, Type: "Double", Color: "Cyan", TitlePos: "Top", ContentAlign: "Left"})

	s := strings.Builder{}
	s.WriteString("Rule:\n")
	s.WriteString("-----\n")
	s.WriteString(c.name)
	s.WriteString("\n\n")
	s.WriteString("Formula:\n")
	s.WriteString("--------\n")
	s.WriteString(wordWrap(c.rule.Formula(), 100))
	s.WriteString("\n\n")

	st := c.Stats()
	fmt.Fprintf(&s, "Nodes: %d  Stale: %d  Critical: %d  Checks: %d  Last recomputed: %d\n\n",
		st.Nodes, st.Stale, st.Critical, st.Checks, st.Recomputed)

	if c.broken != nil {
		fmt.Fprintf(&s, "DISABLED: %v\n\n", c.broken)
	}

	s.WriteString("Checking Tree:\n")
	s.WriteString("--------------\n")
	s.WriteString(c.nodeTable().String())
	return Box.String("CINDER CHECKER DIAGNOSTIC REPORT", s.String())
}

func (c *Checker) nodeTable() *simpletable.Table {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "ID"},
			{Align: simpletable.AlignCenter, Text: "Node"},
			{Align: simpletable.AlignCenter, Text: "Bound"},
			{Align: simpletable.AlignCenter, Text: "Value"},
			{Align: simpletable.AlignCenter, Text: "Chains"},
			{Align: simpletable.AlignCenter, Text: "State"},
		},
	}

	var walk func(id nodeID, depth int)
	walk = func(id nodeID, depth int) {
		n := &c.tree.nodes[id]
		bound := ""
		if n.hasBound {
			bound = n.bound.String()
		}
		value := ""
		if n.valid == Fresh {
			value = fmt.Sprintf("%t", n.value)
		}
		r := []*simpletable.Cell{
			{Align: simpletable.AlignRight, Text: fmt.Sprintf("%d", id)},
			{Text: strings.Repeat("  ", depth) + n.st.label()},
			{Text: bound},
			{Text: value},
			{Align: simpletable.AlignRight, Text: fmt.Sprintf("%d", len(n.witness))},
			{Text: n.valid.String()},
		}
		table.Body.Cells = append(table.Body.Cells, r)
		for _, ch := range n.children {
			walk(ch, depth+1)
		}
	}
	if c.tree.root != noNode {
		walk(c.tree.root, 0)
	}

	table.SetStyle(simpletable.StyleUnicode)
	return table
}

func wordWrap(text string, lineWidth int) string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return text
	}
	wrapped := words[0]
	spaceLeft := lineWidth - len(wrapped)
	for _, word := range words[1:] {
		if len(word)+1 > spaceLeft {
			wrapped += "\n" + word
			spaceLeft = lineWidth - len(word)
		} else {
			wrapped += " " + word
			spaceLeft -= 1 + len(word)
		}
	}

	return wrapped
}

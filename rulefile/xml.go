package rulefile

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/ezachrisen/cinder"
)

type xmlRules struct {
	XMLName xml.Name  `xml:"rules"`
	Rules   []xmlRule `xml:"rule"`
}

type xmlRule struct {
	ID      string     `xml:"id"`
	Formula xmlElement `xml:"formula"`
}

// xmlElement is any element of a formula.
type xmlElement struct {
	XMLName  xml.Name
	Var      string       `xml:"var,attr"`
	In       string       `xml:"in,attr"`
	Name     string       `xml:"name,attr"`
	Children []xmlElement `xml:",any"`
}

// operands returns the child elements that are part of the formula.
func (e xmlElement) operands() []xmlElement {
	out := make([]xmlElement, 0, len(e.Children))
	for _, c := range e.Children {
		if c.XMLName.Local != "param" {
			out = append(out, c)
		}
	}
	return out
}

// ParseXML reads rules in the XML format.
func ParseXML(r io.Reader) ([]Definition, error) {
	var doc xmlRules
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding XML: %w", err)
	}

	defs := make([]Definition, 0, len(doc.Rules))
	for _, xr := range doc.Rules {
		ops := xr.Formula.operands()
		if len(ops) != 1 {
			return nil, fmt.Errorf("rule %s: formula must have exactly one element, has %d", xr.ID, len(ops))
		}
		root, err := fromXML(ops[0])
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", xr.ID, err)
		}
		defs = append(defs, Definition{ID: xr.ID, Root: root})
	}
	if err := check(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func fromXML(e xmlElement) (*cinder.Node, error) {
	var n *cinder.Node
	switch e.XMLName.Local {
	case "forall":
		n = &cinder.Node{Kind: cinder.KindForall, Var: e.Var, Set: e.In}
	case "exists":
		n = &cinder.Node{Kind: cinder.KindExists, Var: e.Var, Set: e.In}
	case "and":
		n = &cinder.Node{Kind: cinder.KindAnd}
	case "implies":
		n = &cinder.Node{Kind: cinder.KindImplies}
	case "not":
		n = &cinder.Node{Kind: cinder.KindNot}
	case "bfunc":
		return cinder.Pred(e.Name), nil
	default:
		return nil, fmt.Errorf("%w: unknown element <%s>", cinder.ErrShape, e.XMLName.Local)
	}
	for _, c := range e.operands() {
		child, err := fromXML(c)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

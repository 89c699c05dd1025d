package rulefile

import (
	"fmt"
	"io"

	"github.com/ezachrisen/cinder"
	"gopkg.in/yaml.v3"
)

type yamlRules struct {
	Rules []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	ID      string    `yaml:"id"`
	Formula yaml.Node `yaml:"formula"`
}

type yamlQuantifier struct {
	Var  string    `yaml:"var"`
	In   string    `yaml:"in"`
	Body yaml.Node `yaml:"body"`
}

// ParseYAML reads rules in the YAML format.
func ParseYAML(r io.Reader) ([]Definition, error) {
	var doc yamlRules
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}

	defs := make([]Definition, 0, len(doc.Rules))
	for _, yr := range doc.Rules {
		root, err := fromYAML(&yr.Formula)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", yr.ID, err)
		}
		defs = append(defs, Definition{ID: yr.ID, Root: root})
	}
	if err := check(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// fromYAML converts a mapping with a single key naming the node kind.
func fromYAML(y *yaml.Node) (*cinder.Node, error) {
	if y.Kind != yaml.MappingNode || len(y.Content) != 2 {
		return nil, fmt.Errorf("%w: line %d: a formula is a mapping with one key", cinder.ErrShape, y.Line)
	}
	key, val := y.Content[0].Value, y.Content[1]

	switch key {
	case "forall", "exists":
		var q yamlQuantifier
		if err := val.Decode(&q); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", val.Line, key, err)
		}
		body, err := fromYAML(&q.Body)
		if err != nil {
			return nil, err
		}
		if key == "forall" {
			return cinder.Forall(q.Var, q.In, body), nil
		}
		return cinder.Exists(q.Var, q.In, body), nil

	case "and", "implies":
		if val.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: line %d: %s takes a list of formulas", cinder.ErrShape, val.Line, key)
		}
		n := &cinder.Node{Kind: cinder.KindAnd}
		if key == "implies" {
			n.Kind = cinder.KindImplies
		}
		for _, c := range val.Content {
			child, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil

	case "not":
		child, err := fromYAML(val)
		if err != nil {
			return nil, err
		}
		return cinder.Not(child), nil

	case "bfunc":
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: bfunc takes a predicate name", cinder.ErrShape, val.Line)
		}
		return cinder.Pred(val.Value), nil
	}
	return nil, fmt.Errorf("%w: line %d: unknown formula %q", cinder.ErrShape, y.Line, key)
}

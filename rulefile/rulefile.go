// Package rulefile loads rule formulas from XML and YAML files.
//
// The XML format:
//
//	<rules>
//	  <rule>
//	    <id>rule_01</id>
//	    <formula>
//	      <forall var="v1" in="pat_000">
//	        <bfunc name="sz_loc_range">
//	          <param pos="1" var="v1"/>
//	        </bfunc>
//	      </forall>
//	    </formula>
//	  </rule>
//	</rules>
//
// Elements are forall and exists (attributes var and in), and, implies, not,
// and bfunc (attribute name). param elements are accepted and ignored: a
// predicate always receives the two innermost bound contexts.
//
// The same rule in YAML:
//
//	rules:
//	  - id: rule_01
//	    formula:
//	      forall:
//	        var: v1
//	        in: pat_000
//	        body: {bfunc: sz_loc_range}
//
// and and implies take a list of two formulas, not takes one formula.
package rulefile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ezachrisen/cinder"
)

// Definition is a named rule read from a file.
type Definition struct {
	ID   string
	Root *cinder.Node
}

// Load reads the rules in the file at path. The format is chosen by the file
// extension: .xml, .yaml or .yml. It returns the rules in file order and the
// names of the context sets they range over.
func Load(path string) ([]Definition, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening rule file: %w", err)
	}
	defer f.Close()

	var defs []Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		defs, err = ParseXML(f)
	case ".yaml", ".yml":
		defs, err = ParseYAML(f)
	default:
		return nil, nil, fmt.Errorf("rule file %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return defs, Sets(defs), nil
}

// Sets returns the sorted names of the context sets referenced by defs.
func Sets(defs []Definition) []string {
	seen := map[string]bool{}
	for _, d := range defs {
		for _, s := range d.Root.Sets() {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// check validates the definitions read from a file.
func check(defs []Definition) error {
	ids := map[string]bool{}
	for i, d := range defs {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("rule %d: missing id", i+1)
		}
		if ids[d.ID] {
			return fmt.Errorf("rule %s: duplicate id", d.ID)
		}
		ids[d.ID] = true
		if err := d.Root.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", d.ID, err)
		}
	}
	return nil
}

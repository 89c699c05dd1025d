package cinder

import (
	"slices"
)

// criticalIndex lists, per context set name, the CCT nodes that are
// quantifier instances over that set. Updates to a set only touch these
// nodes and their paths to the root.
type criticalIndex map[string][]nodeID

func (x criticalIndex) register(set string, id nodeID) {
	x[set] = append(x[set], id)
}

// deregister drops the dead nodes from the lists of the given sets.
func (x criticalIndex) deregister(dead map[string]map[nodeID]bool) {
	for set, ids := range dead {
		x[set] = slices.DeleteFunc(x[set], func(id nodeID) bool {
			return ids[id]
		})
	}
}

// snapshot returns a copy of the nodes registered for set, so the list can
// change while the snapshot is processed.
func (x criticalIndex) snapshot(set string) []nodeID {
	return slices.Clone(x[set])
}

func (x criticalIndex) count() int {
	n := 0
	for _, ids := range x {
		n += len(ids)
	}
	return n
}

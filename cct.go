package cinder

import (
	"fmt"
	"strings"
)

// Validity is the state of a CCT node's cached value and witness.
type Validity uint8

const (
	// Stale nodes must be recomputed on the next check.
	Stale Validity = iota
	// Fresh nodes hold a value and witness that can be reused.
	Fresh
)

func (v Validity) String() string {
	if v == Fresh {
		return "fresh"
	}
	return "stale"
}

// nodeID indexes a node in the tree's arena.
type nodeID int32

const noNode nodeID = -1

// cctNode is one node of the Checking Context Tree. Quantifier nodes have one
// child per context of their set; each such child is bound to its context.
type cctNode struct {
	st       *Node
	bound    Context
	hasBound bool
	value    bool
	witness  Witness
	valid    Validity
	children []nodeID
	parent   nodeID
	live     bool
}

// tree is an arena of CCT nodes. Children and parents refer to each other by
// index; detached nodes go on a free list and their slots are reused.
type tree struct {
	nodes []cctNode
	free  []nodeID
	root  nodeID
	size  int
}

func newTree() tree {
	return tree{root: noNode}
}

// alloc creates a stale node for the formula node st, bound to c if bind is set.
// Pointers into t.nodes are invalid after alloc.
func (t *tree) alloc(st *Node, parent nodeID, c Context, bind bool) nodeID {
	n := cctNode{
		st:       st,
		bound:    c,
		hasBound: bind,
		valid:    Stale,
		parent:   parent,
		live:     true,
	}
	t.size++
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

// release frees the subtree rooted at id and calls f for every freed
// quantifier node.
func (t *tree) release(id nodeID, f func(id nodeID, n *cctNode)) {
	n := &t.nodes[id]
	for _, c := range n.children {
		t.release(c, f)
	}
	if n.st.Kind.Quantifier() {
		f(id, n)
	}
	*n = cctNode{parent: noNode}
	t.free = append(t.free, id)
	t.size--
}

// invalidate marks id and all its ancestors stale.
func (t *tree) invalidate(id nodeID) {
	for id != noNode {
		t.nodes[id].valid = Stale
		id = t.nodes[id].parent
	}
}

// detach removes child from the child list of its parent.
func (t *tree) detach(parent nodeID, i int) nodeID {
	p := &t.nodes[parent]
	id := p.children[i]
	p.children = append(p.children[:i], p.children[i+1:]...)
	return id
}

// label describes a node for trees and diagnostics.
func (t *tree) label(id nodeID) string {
	n := &t.nodes[id]
	var sb strings.Builder
	if n.hasBound {
		sb.WriteString(n.bound.String())
		sb.WriteString(" ")
	}
	sb.WriteString(n.st.label())
	if n.valid == Fresh {
		fmt.Fprintf(&sb, " = %t", n.value)
	} else {
		sb.WriteString(" (stale)")
	}
	return sb.String()
}

func (t *tree) render() string {
	if t.root == noNode {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.label(t.root))
	sb.WriteString("\n")
	t.buildTree(&sb, t.root, "")
	return sb.String()
}

func (t *tree) buildTree(sb *strings.Builder, id nodeID, prefix string) {
	children := t.nodes[id].children
	writeTree(sb, prefix, len(children), func(i int) string {
		return t.label(children[i])
	}, func(i int, p string) {
		t.buildTree(sb, children[i], p)
	})
}

// walk visits every live node below and including id.
func (t *tree) walk(id nodeID, f func(id nodeID, n *cctNode)) {
	if id == noNode {
		return
	}
	n := &t.nodes[id]
	f(id, n)
	for _, c := range n.children {
		t.walk(c, f)
	}
}

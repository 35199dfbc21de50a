// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package placetree provides a representation
// of a phylogenetic gene tree with branch lengths,
// used to place query sequences
// among their nearest neighbors.
//
// Leaves of the tree are labeled with sequence identifiers
// (usually database accessions),
// so labels are stored verbatim.
package placetree

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	// Tree adding errors
	ErrAddNoParent  = errors.New("parent ID not in tree")
	ErrAddTerm      = errors.New("parent is a labeled leaf")
	ErrInvalidBrLen = errors.New("invalid branch length")

	// Tree validation errors
	ErrValSingleChild = errors.New("node with a single descendant")
	ErrValUnnamedTerm = errors.New("unnamed terminal")
	ErrRepeated       = errors.New("repeated leaf label")

	// Tree query errors
	ErrUnknownLeaf = errors.New("leaf not in tree")
)

// A Tree is a phylogenetic tree
// with branch lengths.
//
// Nodes are stored in an arena
// and identified by their index;
// the root is always the node 0.
// Each parent owns its children,
// in the order in which they were added
// (for a tree read from a file,
// the left-to-right order of the file).
type Tree struct {
	name string

	nodes  []*node
	labels map[string]int
}

// New returns a new phylogenetic tree with a name
// and a root node.
func New(name string) *Tree {
	t := &Tree{
		name:   strings.Join(strings.Fields(name), " "),
		labels: make(map[string]int),
	}
	t.newNode(nil)
	return t
}

// Add adds a node as child of the indicated node ID,
// using the indicated branch length,
// and a label for the node
// (that can be empty for internal nodes).
// It returns the ID of the added node
// or -1 and an error.
//
// A label can be repeated
// (i.e., the same sequence added twice),
// in that case,
// queries by label will return the first added node.
func (t *Tree) Add(id int, brLen float64, label string) (int, error) {
	if id < 0 || id >= len(t.nodes) {
		return -1, fmt.Errorf("%w: %d", ErrAddNoParent, id)
	}
	p := t.nodes[id]
	if p.label != "" {
		return -1, fmt.Errorf("%w: %s", ErrAddTerm, p.label)
	}
	if !validBrLen(brLen) {
		return -1, fmt.Errorf("%w: %v", ErrInvalidBrLen, brLen)
	}

	n := t.newNode(p)
	n.brLen = brLen
	t.setLabel(n, strings.TrimSpace(label))
	return n.id, nil
}

// BrLen returns the length of the branch
// that connects the node with its parent.
func (t *Tree) BrLen(id int) float64 {
	n, ok := t.node(id)
	if !ok {
		return 0
	}
	return n.brLen
}

// Children returns an slice with the IDs
// of the children of a node,
// in left-to-right order.
func (t *Tree) Children(id int) []int {
	n, ok := t.node(id)
	if !ok || n.isTerm() {
		return nil
	}

	children := make([]int, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c.id)
	}
	return children
}

// Depth returns the number of edges
// between the node and the root.
func (t *Tree) Depth(id int) int {
	n, ok := t.node(id)
	if !ok {
		return 0
	}
	return n.depth()
}

// IsTerm returns true if the node is a leaf.
func (t *Tree) IsTerm(id int) bool {
	n, ok := t.node(id)
	if !ok {
		return false
	}
	return n.isTerm()
}

// Label returns the label of the node
// with the indicated ID.
func (t *Tree) Label(id int) string {
	n, ok := t.node(id)
	if !ok {
		return ""
	}
	return n.label
}

// Labels returns the labels of the leaves
// in left-to-right order.
// Repeated labels are returned as many times
// as they are found in the tree.
func (t *Tree) Labels() []string {
	leaves := t.Leaves()
	labels := make([]string, 0, len(leaves))
	for _, id := range leaves {
		labels = append(labels, t.nodes[id].label)
	}
	return labels
}

// Leaf returns the ID of the leaf with the given label.
// If the label is repeated,
// it returns the first leaf with that label.
func (t *Tree) Leaf(label string) (int, bool) {
	id, ok := t.labels[strings.TrimSpace(label)]
	return id, ok
}

// Leaves returns the IDs of the leaves of the tree
// in left-to-right order.
func (t *Tree) Leaves() []int {
	var leaves []int
	t.nodes[0].preorder(func(n *node) {
		if n.isTerm() {
			leaves = append(leaves, n.id)
		}
	})
	return leaves
}

// LenToRoot returns the sum of branch lengths
// from the node to the root.
func (t *Tree) LenToRoot(id int) float64 {
	n, ok := t.node(id)
	if !ok {
		return 0
	}
	var sum float64
	for ; n.parent != nil; n = n.parent {
		sum += n.brLen
	}
	return sum
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Name returns the name of the tree.
func (t *Tree) Name() string {
	return t.name
}

// Nodes return an slice with IDs
// of the nodes of the tree.
func (t *Tree) Nodes() []int {
	ns := make([]int, len(t.nodes))
	for i := range ns {
		ns[i] = i
	}
	return ns
}

// Parent returns the ID of the parent
// of the indicated node.
// It will return -1 for the root or an invalid node.
func (t *Tree) Parent(id int) int {
	n, ok := t.node(id)
	if !ok || n.parent == nil {
		return -1
	}
	return n.parent.id
}

// Repeated returns the labels
// that are found in more than one leaf.
func (t *Tree) Repeated() []string {
	count := make(map[string]int)
	for _, l := range t.Labels() {
		count[l]++
	}
	var rep []string
	for l, c := range count {
		if c > 1 {
			rep = append(rep, l)
		}
	}
	slices.Sort(rep)
	return rep
}

// Root returns the ID of the root node
// which is 0.
func (t *Tree) Root() int {
	return 0
}

// Support returns the label of an internal node
// (usually a support value)
// as read from a newick file.
func (t *Tree) Support(id int) string {
	n, ok := t.node(id)
	if !ok {
		return ""
	}
	return n.support
}

// Validate will return an error if the tree is invalid.
// A tree is invalid if it has nodes with a single child,
// leaves without a label,
// or repeated leaf labels.
func (t *Tree) Validate() error {
	for _, n := range t.nodes {
		if len(n.children) == 1 {
			return fmt.Errorf("%w: %d", ErrValSingleChild, n.id)
		}
		if n.isTerm() && n.label == "" {
			return fmt.Errorf("%w: %d", ErrValUnnamedTerm, n.id)
		}
	}
	if rep := t.Repeated(); len(rep) > 0 {
		return fmt.Errorf("%w: %s", ErrRepeated, rep[0])
	}
	return nil
}

func (t *Tree) newNode(parent *node) *node {
	n := &node{
		id:     len(t.nodes),
		parent: parent,
	}
	t.nodes = append(t.nodes, n)
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	return n
}

func (t *Tree) node(id int) (*node, bool) {
	if id < 0 || id >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

func (t *Tree) setLabel(n *node, label string) {
	n.label = label
	if label == "" {
		return
	}
	if prev, dup := t.labels[label]; dup && prev < n.id {
		return
	}
	t.labels[label] = n.id
}

// A node is a node in a phylogenetic tree.
type node struct {
	id      int
	parent  *node
	label   string
	support string

	brLen float64

	children []*node
}

func (n *node) depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// IsTerm returns true if the node is a terminal
// (i.e. has no children).
func (n *node) isTerm() bool {
	return len(n.children) == 0
}

func (n *node) preorder(fn func(*node)) {
	fn(n)
	for _, c := range n.children {
		c.preorder(fn)
	}
}

func validBrLen(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= 0
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package placetree

import "fmt"

// Distance returns the patristic distance
// between two leaves of the tree,
// i.e., the sum of the branch lengths
// in the path that connect both leaves.
func (t *Tree) Distance(a, b string) (float64, error) {
	x, ok := t.Leaf(a)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLeaf, a)
	}
	y, ok := t.Leaf(b)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLeaf, b)
	}
	return t.NodeDistance(x, y), nil
}

// NodeDistance returns the patristic distance
// between two nodes of the tree.
// The distance between a node and itself is 0.
// It panics if any ID is not a node of the tree.
//
// Lengths are added from each node
// up to their most recent common ancestor,
// so the result is the same regardless of the order
// of the arguments.
func (t *Tree) NodeDistance(a, b int) float64 {
	if a == b {
		return 0
	}
	x, y := t.nodes[a], t.nodes[b]
	dx, dy := x.depth(), y.depth()

	var lx, ly float64
	for dx > dy {
		lx += x.brLen
		x = x.parent
		dx--
	}
	for dy > dx {
		ly += y.brLen
		y = y.parent
		dy--
	}
	for x != y {
		lx += x.brLen
		ly += y.brLen
		x = x.parent
		y = y.parent
	}
	return lx + ly
}

// MRCA returns the most recent common ancestor
// of a set of nodes.
// It returns -1 if no node is given
// or an ID is not in the tree.
func (t *Tree) MRCA(ids ...int) int {
	if len(ids) == 0 {
		return -1
	}
	m, ok := t.node(ids[0])
	if !ok {
		return -1
	}
	for _, id := range ids[1:] {
		n, ok := t.node(id)
		if !ok {
			return -1
		}
		m = mrca(m, n)
	}
	return m.id
}

func mrca(x, y *node) *node {
	dx, dy := x.depth(), y.depth()
	for dx > dy {
		x = x.parent
		dx--
	}
	for dy > dx {
		y = y.parent
		dy--
	}
	for x != y {
		x = x.parent
		y = y.parent
	}
	return x
}

// Path returns the edges of the path
// that connects two leaves.
// Each edge is identified by the ID of its descendant node.
// Edges are ordered from the first leaf
// up to the most recent common ancestor,
// and then down to the second leaf.
func (t *Tree) Path(a, b string) ([]int, error) {
	x, ok := t.Leaf(a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaf, a)
	}
	y, ok := t.Leaf(b)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaf, b)
	}
	if x == y {
		return nil, nil
	}

	anc := mrca(t.nodes[x], t.nodes[y])
	var up []int
	for n := t.nodes[x]; n != anc; n = n.parent {
		up = append(up, n.id)
	}
	var down []int
	for n := t.nodes[y]; n != anc; n = n.parent {
		down = append(down, n.id)
	}
	for i := len(down) - 1; i >= 0; i-- {
		up = append(up, down[i])
	}
	return up, nil
}

// Matrix returns the distance matrix
// between the indicated nodes.
func (t *Tree) Matrix(ids []int) [][]float64 {
	m := make([][]float64, len(ids))
	for i := range m {
		m[i] = make([]float64, len(ids))
	}
	for i, a := range ids {
		for j := i + 1; j < len(ids); j++ {
			d := t.NodeDistance(a, ids[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

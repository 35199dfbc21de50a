// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package simulate creates random trees
// with branch lengths.
package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/js-arias/placetree"
	"gonum.org/v1/gonum/stat/distuv"
)

// Coalescent creates a random tree
// using the Kingman coalescence
// with a population size of n.
// see Felsenstein J. (2004)
// "Inferring Phylogenies", Sinauer, p.456.
// Terminals are named term0, term1, ...
// Coalescent panics if terms < 2.
func Coalescent(name string, n float64, terms int) *placetree.Tree {
	if terms < 2 {
		panic("expecting more than two terminals")
	}

	lineages := make([]*simNode, terms)
	for i := range lineages {
		lineages[i] = &simNode{label: fmt.Sprintf("term%d", i)}
	}

	var age float64
	for k := terms; k > 1; k-- {
		exp := distuv.Exponential{
			Rate: float64(k*(k-1)) / (4 * n),
		}
		age += exp.Rand()

		// pick two lineages
		i := rand.IntN(k)
		j := rand.IntN(k - 1)
		if j >= i {
			j++
		}
		anc := &simNode{
			end:      age,
			children: []*simNode{lineages[i], lineages[j]},
		}
		lineages[i].start = age
		lineages[j].start = age

		// remove the coalesced lineages
		if i > j {
			i, j = j, i
		}
		lineages[i] = anc
		lineages[j] = lineages[k-1]
		lineages = lineages[:k-1]
	}

	return lineages[0].tree(name)
}

// Yule creates a random tree
// using a pure birth process
// with the indicated speciation rate.
// Terminals are named term0, term1, ...
// Yule panics if terms < 2.
func Yule(name string, rate float64, terms int) *placetree.Tree {
	if terms < 2 {
		panic("expecting more than two terminals")
	}

	root := &simNode{}
	root.split(0)
	active := []*simNode{root.children[0], root.children[1]}

	var age float64
	for len(active) < terms {
		exp := distuv.Exponential{
			Rate: rate * float64(len(active)),
		}
		age += exp.Rand()

		i := rand.IntN(len(active))
		n := active[i]
		n.end = age
		n.split(age)
		active[i] = n.children[0]
		active = append(active, n.children[1])
	}

	// extant lineages
	exp := distuv.Exponential{
		Rate: rate * float64(len(active)),
	}
	age += exp.Rand()
	for i, n := range active {
		n.end = age
		n.label = fmt.Sprintf("term%d", i)
	}

	return root.tree(name)
}

// A simNode is a node used to build a simulated tree.
// Start and end are the times of the extremes of the branch.
type simNode struct {
	label      string
	start, end float64
	children   []*simNode
}

func (n *simNode) split(age float64) {
	n.children = []*simNode{
		{start: age},
		{start: age},
	}
}

func (n *simNode) tree(name string) *placetree.Tree {
	t := placetree.New(name)
	for _, c := range n.children {
		c.add(t, t.Root())
	}
	return t
}

func (n *simNode) add(t *placetree.Tree, parent int) {
	brLen := n.end - n.start
	if brLen < 0 {
		brLen = -brLen
	}
	id, err := t.Add(parent, brLen, n.label)
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
	for _, c := range n.children {
		c.add(t, id)
	}
}

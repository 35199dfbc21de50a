// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package itol writes annotation files
// for the Interactive Tree Of Life (iTOL)
// web viewer.
package itol

import (
	"bufio"
	"fmt"
	"io"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/taxonomy"
)

// Colors of the categories.
var Colors = map[string]string{
	"Bacteria":     "#FF0000",
	"Viruses":      "#00FF00",
	"Eukaryota":    "#0000FF",
	"Archaea":      "#FFFF00",
	taxonomy.Other: "#808080",
}

// QueryColor is the color of the query symbols.
const QueryColor = "#FF0000"

// Color returns the color of a category.
func Color(category string) string {
	if c, ok := Colors[category]; ok {
		return c
	}
	return Colors[taxonomy.Other]
}

// Categories returns the category of each node of a tree,
// indexed by node ID.
// A leaf takes the category of its lineage
// (Other if it has no lineage),
// and an internal node takes the category
// shared by all of its children,
// or Other.
func Categories(t *placetree.Tree, lineages map[string]taxonomy.Lineage) []string {
	cats := make([]string, t.Len())
	setCategory(t, t.Root(), lineages, cats)
	return cats
}

func setCategory(t *placetree.Tree, id int, lineages map[string]taxonomy.Lineage, cats []string) string {
	if t.IsTerm(id) {
		c := taxonomy.Other
		if l, ok := lineages[t.Label(id)]; ok {
			c = l.Category()
		}
		cats[id] = c
		return c
	}

	c := ""
	for i, x := range t.Children(id) {
		xc := setCategory(t, x, lineages, cats)
		if i == 0 {
			c = xc
			continue
		}
		if xc != c {
			c = taxonomy.Other
		}
	}
	cats[id] = c
	return c
}

// NodeID returns the iTOL identifier of a node:
// the label for a leaf,
// or the labels of the first and last leaves of the clade,
// separated by "|",
// for an internal node.
func NodeID(t *placetree.Tree, id int) string {
	if t.IsTerm(id) {
		return t.Label(id)
	}
	first, last := id, id
	for !t.IsTerm(first) {
		first = t.Children(first)[0]
	}
	for !t.IsTerm(last) {
		children := t.Children(last)
		last = children[len(children)-1]
	}
	return t.Label(first) + "|" + t.Label(last)
}

// WriteLabels writes a LABELS file
// with the category of each leaf.
func WriteLabels(w io.Writer, t *placetree.Tree, cats []string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "LABELS\nSEPARATOR TAB\nDATA\n")
	for _, id := range t.Leaves() {
		fmt.Fprintf(bw, "%s\t%s\n", t.Label(id), cats[id])
	}
	return bw.Flush()
}

// WriteColors writes a TREE_COLORS file
// with the branch color of each node.
func WriteColors(w io.Writer, t *placetree.Tree, cats []string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "TREE_COLORS\nSEPARATOR TAB\nDATA\n")
	for _, id := range t.Nodes() {
		if id == t.Root() {
			continue
		}
		fmt.Fprintf(bw, "%s\tbranch\t%s\tnormal\t1\n", NodeID(t, id), Color(cats[id]))
	}
	return bw.Flush()
}

// WriteQueries writes a DATASET_SYMBOL file
// with a circle for each query.
func WriteQueries(w io.Writer, t *placetree.Tree, queries []string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "DATASET_SYMBOL\nSEPARATOR TAB\nDATASET_LABEL\tQuery sequences\nCOLOR\t%s\nMAX_SIZE\t10\nSHOW_INTERNAL\t0\nDATA\n", QueryColor)

	isQuery := make(map[string]bool, len(queries))
	for _, q := range queries {
		isQuery[q] = true
	}
	seen := make(map[string]bool)
	for _, l := range t.Labels() {
		if !isQuery[l] || seen[l] {
			continue
		}
		seen[l] = true
		fmt.Fprintf(bw, "%s\t1\t%s\n", l, QueryColor)
	}
	return bw.Flush()
}

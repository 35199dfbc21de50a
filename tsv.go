// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package placetree

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var headerFields = []string{
	"tree",
	"node",
	"parent",
	"length",
	"label",
}

// ReadTSV reads one or more phylogenetic trees
// from a TSV file.
//
// The TSV must contain the following fields:
//
//	-tree, for the name of the tree
//	-node, for the ID of the node
//	-parent, for of ID of the parent node
//	    (-1 is used for the root)
//	-length, the length of the branch to the parent
//	-label, the label of the node
//
// Parent nodes should be defined,
// before any children node.
// Node IDs of the file are only used
// to link the nodes,
// so the IDs of the read tree
// can be different.
// Labels of internal nodes are ignored.
//
// Here is an example file:
//
//	# gene trees
//	tree	node	parent	length	label
//	OG0001	0	-1	0
//	OG0001	1	0	0.1	q_1
//	OG0001	2	0	0.05
//	OG0001	3	2	0.2	WP_000000001.1
//	OG0001	4	2	0.3	XP_000000002.1
func ReadTSV(r io.Reader) (*Collection, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(h))
		fields[h] = i
	}
	for _, h := range headerFields {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	c := NewCollection()

	// node IDs of the file
	ids := make(map[string]map[int]int)
	labels := make(map[string]map[int]string)
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "tree"
		name := strings.Join(strings.Fields(row[fields[f]]), " ")
		if name == "" {
			continue
		}

		f = "node"
		id, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "parent"
		pID, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		t := c.Tree(name)
		if t == nil {
			if pID >= 0 {
				return nil, fmt.Errorf("on row %d: field %q: tree %q: root undefined", ln, f, name)
			}
			t = New(name)
			if err := c.Add(t); err != nil {
				return nil, fmt.Errorf("on row %d: %v", ln, err)
			}
			ids[t.Name()] = map[int]int{id: t.Root()}
			labels[t.Name()] = make(map[int]string)
			continue
		}
		nodes := ids[t.Name()]
		if _, dup := nodes[id]; dup {
			return nil, fmt.Errorf("on row %d: field %q: node ID %d already used", ln, "node", id)
		}
		if pID < 0 {
			return nil, fmt.Errorf("on row %d: field %q: root already defined", ln, f)
		}
		p, ok := nodes[pID]
		if !ok {
			return nil, fmt.Errorf("on row %d: field %q: %w: %d", ln, f, ErrAddNoParent, pID)
		}

		f = "length"
		brLen, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		// the label is set when the node is known to be a leaf
		nID, err := t.Add(p, brLen, "")
		if err != nil {
			return nil, fmt.Errorf("on row %d: %w", ln, err)
		}
		nodes[id] = nID
		if l := strings.TrimSpace(row[fields["label"]]); l != "" {
			labels[t.Name()][nID] = l
		}
	}

	for _, tn := range c.Names() {
		t := c.Tree(tn)
		for _, n := range t.nodes {
			if n.isTerm() {
				t.setLabel(n, labels[t.Name()][n.id])
			}
		}
		if err := t.Validate(); err != nil && !errors.Is(err, ErrRepeated) {
			return nil, fmt.Errorf("tree %s: %w", t.Name(), err)
		}
	}

	return c, nil
}

// TSV encodes a collection of phylogenetic trees
// into a TSV file.
func (c *Collection) TSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# gene trees\n")
	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = false

	if err := tab.Write(headerFields); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}

	for _, nm := range c.Names() {
		t := c.Tree(nm)
		if err := t.nodes[0].tsv(tab, t.name); err != nil {
			return fmt.Errorf("while writing data: %v", err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}

func (n *node) tsv(w *csv.Writer, name string) error {
	p := "-1"
	if n.parent != nil {
		p = strconv.Itoa(n.parent.id)
	}
	var label string
	if n.isTerm() {
		label = n.label
	}
	row := []string{
		name,
		strconv.Itoa(n.id),
		p,
		strconv.FormatFloat(n.brLen, 'g', -1, 64),
		label,
	}
	if err := w.Write(row); err != nil {
		return err
	}

	for _, c := range n.children {
		if err := c.tsv(w, name); err != nil {
			return err
		}
	}
	return nil
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package placetree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

var (
	// Newick errors
	ErrNotNewick    = errors.New("not a newick tree file")
	ErrUnexpBrLen   = errors.New("unexpected branch length")
	ErrUnbalanced   = errors.New("unbalanced parenthesis")
	ErrUnnamedLeaf  = errors.New("leaf without label")
	ErrMissingComma = errors.New("missing comma between nodes")
)

// A ParseError is returned when a tree
// can not be read from a newick string.
type ParseError struct {
	// Name of the tree
	Name string

	// Last read leaf
	Last string

	Err error
}

func (e *ParseError) Error() string {
	if e.Last == "" {
		return fmt.Sprintf("tree %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("tree %q: %v: last read leaf: %s", e.Name, e.Err, e.Last)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Newick reads one or more trees in newick (parenthetical) format.
// Name sets the name of the first tree,
// any other tree name will be
// in the form <name>.<number>
// starting from 1.
//
// Leaf labels are stored verbatim
// (underscores are not replaced),
// labels of internal nodes are stored as support values,
// and missing branch lengths are read as 0.
func Newick(r io.Reader, name string) (*Collection, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, ErrTreeNoName
	}
	c := NewCollection()

	br := bufio.NewReader(r)
	for i := 0; ; i++ {
		nm := name
		if i > 0 {
			nm = fmt.Sprintf("%s.%d", name, i)
		}
		t, err := newick(br, nm)
		if err != nil {
			return nil, err
		}
		if t == nil {
			if i > 0 {
				break
			}
			return nil, &ParseError{Name: name, Err: ErrNotNewick}
		}
		if err := c.Add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ReadNewick reads the first tree
// of a newick file.
func ReadNewick(r io.Reader, name string) (*Tree, error) {
	c, err := Newick(r, name)
	if err != nil {
		return nil, err
	}
	return c.Tree(c.Names()[0]), nil
}

func newick(r *bufio.Reader, name string) (*Tree, error) {
	// search for the first parenthesis of the tree.
	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if r1 == '[' {
			if err := skipComment(r); err != nil {
				return nil, nil
			}
			continue
		}
		if r1 == '(' {
			break
		}
	}

	t := &Tree{
		name:   name,
		labels: make(map[string]int),
	}

	last := ""
	if _, err := t.readNewick(r, nil, &last); err != nil {
		return nil, &ParseError{Name: name, Last: last, Err: err}
	}

	// the tree must end after the root
	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Name: name, Last: last, Err: err}
		}
		if unicode.IsSpace(r1) {
			continue
		}
		if r1 == '[' {
			if err := skipComment(r); err != nil {
				return nil, &ParseError{Name: name, Last: last, Err: err}
			}
			continue
		}
		if r1 == ';' {
			break
		}
		return nil, &ParseError{Name: name, Last: last, Err: fmt.Errorf("%w: unexpected %q after root", ErrUnbalanced, r1)}
	}

	return t, nil
}

func (t *Tree) readNewick(r *bufio.Reader, parent *node, last *string) (*node, error) {
	n := t.newNode(parent)

	// expect is true after an opening parenthesis or a comma
	expect := true
	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil, ErrUnbalanced
		}
		if err != nil {
			return nil, err
		}
		if unicode.IsSpace(r1) {
			continue
		}

		switch r1 {
		case '[':
			if err := skipComment(r); err != nil {
				return nil, ErrUnbalanced
			}
			continue
		case ',':
			if expect {
				return nil, ErrUnnamedLeaf
			}
			expect = true
			continue
		case ':':
			return nil, ErrUnexpBrLen
		case ';':
			return nil, ErrUnbalanced
		case '(':
			// an internal node
			if !expect {
				return nil, ErrMissingComma
			}
			if _, err := t.readNewick(r, n, last); err != nil {
				return nil, err
			}
			expect = false
			continue
		}

		if r1 == ')' {
			if expect {
				return nil, ErrUnnamedLeaf
			}
			break
		}

		// a leaf
		if !expect {
			return nil, ErrMissingComma
		}
		r.UnreadRune()
		leaf := t.newNode(n)
		label, bl, err := readTail(r)
		if label != "" {
			*last = label
		}
		if err != nil {
			return nil, err
		}
		if label == "" {
			return nil, ErrUnnamedLeaf
		}
		leaf.brLen = bl
		t.setLabel(leaf, label)
		expect = false
	}

	if len(n.children) < 2 {
		return nil, ErrValSingleChild
	}

	support, bl, err := readTail(r)
	if err != nil {
		return nil, err
	}
	n.support = support
	n.brLen = bl
	if parent == nil {
		// root branch is not part of any path
		n.brLen = 0
	}

	return n, nil
}

// ReadTail reads the label of a node
// and the length of the branch
// connecting the node with its ancestor.
func readTail(r *bufio.Reader) (string, float64, error) {
	label, err := readLabel(r)
	if err != nil {
		return "", 0, err
	}

	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return label, 0, nil
		}
		if err != nil {
			return label, 0, err
		}
		if unicode.IsSpace(r1) {
			continue
		}
		if r1 == '[' {
			if err := skipComment(r); err != nil {
				return label, 0, ErrUnbalanced
			}
			continue
		}
		if r1 != ':' {
			r.UnreadRune()
			return label, 0, nil
		}
		break
	}

	bl, err := readBrLen(r)
	if err != nil {
		return label, 0, err
	}
	return label, bl, nil
}

// ReadLabel reads a node label
// that can be quoted.
func readLabel(r *bufio.Reader) (string, error) {
	r1, _, err := r.ReadRune()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if r1 == '\'' || r1 == '"' {
		s, err := readBlock(r, r1)
		if err != nil {
			return "", ErrUnbalanced
		}
		return strings.TrimSpace(s), nil
	}
	r.UnreadRune()

	var b strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if unicode.IsSpace(r1) || isDelim(r1) {
			r.UnreadRune()
			break
		}
		b.WriteRune(r1)
	}
	return b.String(), nil
}

// ReadBlock reads a string
// inside a quoted block.
// A doubled delimiter is read as the delimiter.
func readBlock(r *bufio.Reader, delim rune) (string, error) {
	var b strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return "", err
		}
		if r1 == delim {
			nx, _, err := r.ReadRune()
			if err == nil && nx == delim {
				b.WriteRune(delim)
				continue
			}
			if err == nil {
				r.UnreadRune()
			}
			break
		}
		b.WriteRune(r1)
	}
	return b.String(), nil
}

// ReadBrLen reads a branch length value.
func readBrLen(r *bufio.Reader) (float64, error) {
	var b strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if unicode.IsSpace(r1) {
			if b.Len() == 0 {
				continue
			}
			break
		}
		if isDelim(r1) {
			r.UnreadRune()
			break
		}
		b.WriteRune(r1)
	}

	s := b.String()
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !validBrLen(v) {
		return 0, fmt.Errorf("%w: invalid value %q", ErrInvalidBrLen, s)
	}
	return v, nil
}

func skipComment(r *bufio.Reader) error {
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return err
		}
		if r1 == ']' {
			return nil
		}
	}
}

func isDelim(r rune) bool {
	switch r {
	case '(', ')', ',', ':', ';', '[':
		return true
	}
	return false
}

// WriteNewick writes the tree
// in newick format.
func (t *Tree) WriteNewick(w io.Writer) error {
	bw := bufio.NewWriter(w)
	t.nodes[0].writeNewick(bw)
	fmt.Fprintf(bw, ";\n")
	return bw.Flush()
}

func (n *node) writeNewick(w io.Writer) {
	if !n.isTerm() {
		fmt.Fprintf(w, "(")
		for i, c := range n.children {
			if i > 0 {
				fmt.Fprintf(w, ",")
			}
			c.writeNewick(w)
		}
		fmt.Fprintf(w, ")%s", quote(n.support))
	} else {
		fmt.Fprintf(w, "%s", quote(n.label))
	}
	if n.parent == nil {
		return
	}
	fmt.Fprintf(w, ":%s", strconv.FormatFloat(n.brLen, 'g', -1, 64))
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isDelim(r) || r == '\'' || r == '"' || r == ']'
	}) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

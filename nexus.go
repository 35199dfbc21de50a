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
	// Nexus errors
	ErrNotNexus    = errors.New("not a nexus file")
	ErrNexusBlock  = errors.New("incomplete nexus block")
	ErrTranslation = errors.New("invalid translate table")
)

// Nexus reads one or more tree
// from a nexus file.
// Only the trees block is read,
// and if the block has a translate table,
// it will be used to set the leaf labels.
//
// Errors are returned as a ParseError.
func Nexus(r io.Reader) (*Collection, error) {
	s := &nexusScanner{r: bufio.NewReader(r)}

	if err := s.next(); err != nil && !errors.Is(err, io.EOF) {
		return nil, nexusError(err)
	}
	if strings.ToLower(s.token) != "#nexus" {
		return nil, nexusError(fmt.Errorf("%w: expecting '#nexus' header", ErrNotNexus))
	}
	if err := s.trees(); err != nil {
		return nil, nexusError(err)
	}

	c := NewCollection()
	var labels map[string]string
	for {
		if err := s.next(); err != nil {
			return nil, nexusError(fmt.Errorf("%w: trees: %w", ErrNexusBlock, err))
		}
		switch strings.ToLower(s.token) {
		case "end", "endblock":
			if c.Len() == 0 {
				return nil, nexusError(ErrNotNewick)
			}
			return c, nil
		case "translate":
			var err error
			if labels, err = s.translate(); err != nil {
				return nil, nexusError(err)
			}
		case "tree":
			t, err := s.tree()
			if err != nil {
				return nil, err
			}
			translateTree(t, labels)
			if err := c.Add(t); err != nil {
				return nil, nexusError(err)
			}
		default:
			if err := s.skipCommand(); err != nil {
				return nil, nexusError(fmt.Errorf("%w: trees: command %q: %w", ErrNexusBlock, s.token, err))
			}
		}
	}
}

func nexusError(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Name: "nexus", Err: err}
}

func translateTree(t *Tree, labels map[string]string) {
	if len(labels) == 0 {
		return
	}
	t.labels = make(map[string]int)
	for _, id := range t.Leaves() {
		n := t.nodes[id]
		lb := n.label
		if tax, ok := labels[lb]; ok {
			lb = tax
		}
		t.setLabel(n, lb)
	}
}

// A nexusScanner reads the tokens of a nexus file.
type nexusScanner struct {
	r *bufio.Reader

	// last read token
	// and the delimiter that ends it
	// (0 if the token ends with a space)
	token string
	delim rune
}

// Next reads the next token.
func (s *nexusScanner) next() error {
	s.token, s.delim = "", 0
	if err := skipSpaces(s.r); err != nil {
		return err
	}

	r1, _, err := s.r.ReadRune()
	if err != nil {
		return err
	}
	if r1 == '\'' || r1 == '"' {
		tok, err := readBlock(s.r, r1)
		if err != nil {
			return fmt.Errorf("%w: unclosed quote", ErrUnbalanced)
		}
		s.token = tok
	} else {
		s.r.UnreadRune()
		var b strings.Builder
		for {
			r1, _, err := s.r.ReadRune()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			if unicode.IsSpace(r1) {
				break
			}
			if isNexusDelim(r1) {
				s.delim = r1
				break
			}
			b.WriteRune(r1)
		}
		s.token = b.String()
	}
	if s.delim != 0 {
		return nil
	}

	// a delimiter after spaces
	if err := skipSpaces(s.r); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	r1, _, err = s.r.ReadRune()
	if err != nil {
		return nil
	}
	if isNexusDelim(r1) {
		s.delim = r1
		return nil
	}
	s.r.UnreadRune()
	return nil
}

// Trees skips all blocks
// until the start of the trees block.
func (s *nexusScanner) trees() error {
	for {
		if err := s.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: without trees block", ErrNotNewick)
			}
			return err
		}
		if strings.ToLower(s.token) != "begin" {
			return fmt.Errorf("%w: got %q, expecting 'begin'", ErrNexusBlock, s.token)
		}
		if err := s.next(); err != nil {
			return fmt.Errorf("%w: expecting block name: %w", ErrNexusBlock, err)
		}
		block := strings.ToLower(s.token)
		if block == "trees" {
			return nil
		}

		for {
			err := s.next()
			if t := strings.ToLower(s.token); t == "end" || t == "endblock" {
				if s.delim != ';' {
					if err := s.skipCommand(); err != nil {
						return fmt.Errorf("%w: %s: %w", ErrNexusBlock, block, err)
					}
				}
				break
			}
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrNexusBlock, block, err)
			}
		}
	}
}

// SkipCommand reads the tokens
// until the end of a command.
func (s *nexusScanner) skipCommand() error {
	for s.delim != ';' {
		if err := s.next(); err != nil {
			return err
		}
	}
	return nil
}

// Translate reads a translate table.
func (s *nexusScanner) translate() (map[string]string, error) {
	labels := make(map[string]string)
	for i := 1; ; i++ {
		if err := s.next(); err != nil {
			return nil, fmt.Errorf("%w: taxon %d: %w", ErrTranslation, i, err)
		}
		key := s.token
		id, err := strconv.Atoi(key)
		if err != nil || id != i {
			return nil, fmt.Errorf("%w: taxon %d: got key %q", ErrTranslation, i, key)
		}

		if err := s.next(); err != nil {
			return nil, fmt.Errorf("%w: taxon %d: %w", ErrTranslation, i, err)
		}
		labels[key] = s.token
		if s.delim == ';' {
			return labels, nil
		}
	}
}

// Tree reads a tree definition.
func (s *nexusScanner) tree() (*Tree, error) {
	if err := s.next(); err != nil {
		return nil, nexusError(fmt.Errorf("%w: tree name: %w", ErrNexusBlock, err))
	}
	if s.token == "*" {
		// default tree mark
		if err := s.next(); err != nil {
			return nil, nexusError(fmt.Errorf("%w: tree name: %w", ErrNexusBlock, err))
		}
	}
	name := s.token
	if s.delim != '=' {
		return nil, nexusError(fmt.Errorf("%w: tree %q: expecting '='", ErrNexusBlock, name))
	}

	t, err := newick(s.r, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &ParseError{Name: name, Err: ErrNotNewick}
	}
	return t, nil
}

func isNexusDelim(r rune) bool {
	switch r {
	case ';', ',', '/', '=':
		return true
	}
	return false
}

func skipSpaces(r *bufio.Reader) error {
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return err
		}
		if r1 == '[' {
			if err := skipComment(r); err != nil {
				return fmt.Errorf("%w: unclosed comment", ErrUnbalanced)
			}
			continue
		}
		if !unicode.IsSpace(r1) {
			r.UnreadRune()
			return nil
		}
	}
}

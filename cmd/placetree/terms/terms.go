// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package terms implements a command to print
// the list of terminals in a tree file.
package terms

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/place"
	"golang.org/x/exp/slices"
)

var Command = &command.Command{
	Usage: "terms [--tree <tree-name>] [--nexus] [--repeated] [<tree-file>...]",
	Short: "print a list of tree terminals from a file",
	Long: `
Command terms reads a tree file in newick or nexus format and print the list
of the terminals of each tree in the file.

One or more tree files can be given as arguments. Files with extension ".nex"
or ".nexus" are read as nexus files, files with extension ".tab" or ".tsv"
are read as TSV node tables, any other file is read as a newick file.
If no file is given, the trees will be read from the standard input, in
newick format, or in nexus format if the flag --nexus is set.

Each tree is named after the file name without extension. If the file has
more than one tree, the other trees are named with the file name and a
number (e.g., "OG0001.1").

By default all terminals will be printed. If the flag --tree is set, only the
terminals of the indicated tree will be printed.

If the flag --repeated is set, only the terminals that are repeated in a tree
will be printed.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var (
	treeName  string
	nexusFlag bool
	repeated  bool
)

func setFlags(c *command.Command) {
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().BoolVar(&nexusFlag, "nexus", false, "")
	c.Flags().BoolVar(&repeated, "repeated", false, "")
}

func run(c *command.Command, args []string) error {
	coll := placetree.NewCollection()

	if len(args) == 0 {
		args = append(args, "-")
	}
	for _, a := range args {
		nc, err := readCollection(c.Stdin(), a)
		if err != nil {
			return err
		}

		for _, tn := range nc.Names() {
			t := nc.Tree(tn)
			if err := coll.Add(t); err != nil {
				return fmt.Errorf("when adding trees from %q: %v", a, err)
			}
		}
	}

	ls := makeList(coll)
	for _, term := range ls {
		fmt.Fprintf(c.Stdout(), "%s\n", term)
	}

	return nil
}

func readCollection(r io.Reader, name string) (*placetree.Collection, error) {
	isNexus := nexusFlag
	isTSV := false
	tn := "stdin"
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f

		ext := strings.ToLower(name)
		isNexus = strings.HasSuffix(ext, ".nex") || strings.HasSuffix(ext, ".nexus")
		isTSV = strings.HasSuffix(ext, ".tab") || strings.HasSuffix(ext, ".tsv")
		tn = place.SampleName(name)
	} else {
		name = "stdin"
	}

	var c *placetree.Collection
	var err error
	switch {
	case isNexus:
		c, err = placetree.Nexus(r)
	case isTSV:
		c, err = placetree.ReadTSV(r)
	default:
		c, err = placetree.Newick(r, tn)
	}
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %w", name, err)
	}
	return c, nil
}

func makeList(c *placetree.Collection) []string {
	if treeName != "" {
		t := c.Tree(treeName)
		if t == nil {
			return nil
		}
		return treeTerms(t)
	}

	terms := make(map[string]bool)
	for _, tn := range c.Names() {
		t := c.Tree(tn)
		for _, tax := range treeTerms(t) {
			terms[tax] = true
		}
	}

	termList := make([]string, 0, len(terms))
	for tax := range terms {
		termList = append(termList, tax)
	}
	slices.Sort(termList)

	return termList
}

func treeTerms(t *placetree.Tree) []string {
	if repeated {
		return t.Repeated()
	}
	ls := t.Labels()
	slices.Sort(ls)
	return slices.Compact(ls)
}

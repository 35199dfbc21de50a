// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sim implements a command to simulate
// gene trees.
package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/simulate"
)

var Command = &command.Command{
	Usage: `sim [-o|--output <file>] [--name <tree-name>]
	[--trees <tree-number>]
	[--coalescent <number>] [--yule <rate>] [--tsv]
	--terms <term-number>`,
	Short: "simulate trees",
	Long: `
Command sim creates one or more random trees with branch lengths, in newick
format, one tree per line.

By default, the output will be printed in the standard output. Use the flag
--output, or -o, to define an output file. It will replace any previous file.

By default, the trees will be named "random-tree" with a number. Use the flag
--name to modify the prefix name of the tree.

By default, a single tree will be created. Use the flag --trees to define a
different number of trees.

The flag --terms is required and indicates the number of terms that the tree
should have. Terms are named "term" with a number.

By default, it creates coalescent trees with a population size of 1. Use the
flag --coalescent to set a different population size. Use the flag --yule
with a speciation rate to create a Yule tree.

By default, the trees are written in newick format. If the flag --tsv is set,
the trees are written as a TSV table of nodes, with the columns "tree",
"node", "parent", "length", and "label".
	`,
	SetFlags: setFlags,
	Run:      run,
}

var (
	output     string
	nameFlag   string
	numTrees   int
	numTerms   int
	coalescent float64
	yule       float64
	tsvFlag    bool
)

func setFlags(c *command.Command) {
	c.Flags().IntVar(&numTrees, "trees", 1, "")
	c.Flags().IntVar(&numTerms, "terms", 0, "")
	c.Flags().Float64Var(&coalescent, "coalescent", 1, "")
	c.Flags().Float64Var(&yule, "yule", 0, "")
	c.Flags().BoolVar(&tsvFlag, "tsv", false, "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().StringVar(&nameFlag, "name", "random-tree", "")
}

func run(c *command.Command, args []string) (err error) {
	if numTerms < 2 {
		return c.UsageError("flag --terms must be defined, with at least two terms")
	}
	if coalescent <= 0 && yule <= 0 {
		return c.UsageError("flags --coalescent or --yule must be positive")
	}

	coll := placetree.NewCollection()
	for i := 0; i < numTrees; i++ {
		name := fmt.Sprintf("%s-%d", nameFlag, i)

		var t *placetree.Tree
		if yule > 0 {
			t = simulate.Yule(name, yule, numTerms)
		} else {
			t = simulate.Coalescent(name, coalescent, numTerms)
		}
		if err := coll.Add(t); err != nil {
			return err
		}
	}

	w := c.Stdout()
	if output != "" {
		var f *os.File
		f, err = os.Create(output)
		if err != nil {
			return err
		}
		w = f
		defer func() {
			e := f.Close()
			if e != nil && err == nil {
				err = e
			}
		}()
	} else {
		output = "stdout"
	}

	write := writeTrees
	if tsvFlag {
		write = func(w io.Writer, coll *placetree.Collection) error {
			return coll.TSV(w)
		}
	}
	if err := write(w, coll); err != nil {
		return fmt.Errorf("while writing to %q: %v", output, err)
	}
	return nil
}

func writeTrees(w io.Writer, coll *placetree.Collection) error {
	bw := bufio.NewWriter(w)
	for _, tn := range coll.Names() {
		if err := coll.Tree(tn).WriteNewick(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package stats implements a command to print
// the distance statistics of the queries of a tree.
package stats

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree/internal/cli"
	"github.com/js-arias/placetree/internal/config"
	"github.com/js-arias/placetree/place"
	"github.com/js-arias/placetree/stats"
)

var Command = &command.Command{
	Usage: `stats [--queries <prefix>,...] [--query-file <fasta>]
	[--taxonomy <source>] [--cache <file>] [--workers <number>]
	[-o|--output <file>] <tree-file>`,
	Short: "print distance statistics of the queries of a tree",
	Long: `
Command stats reads a tree, in newick or nexus format, and for each query leaf
prints the distance statistics to the other queries, and to the leaves of
each major taxonomic category (Bacteria, Archaea, Eukaryota, and Viruses).

Query leaves are defined with the flags --queries and --query-file, and the
lineages of the leaves with the flag --taxonomy, as in the command neighbors.
By default the lineages are inferred from the accession pattern ("prefix").

For each query, the output includes the nearest query and its distance, the
mean and standard deviation of the distance to the three nearest queries, and
the mean distance to all other queries. For each category, it includes the
nearest leaf, its distance and lineage, the mean and standard deviation of
the distance to all leaves of the category, and to the three nearest leaves.
Undefined values are written as "na".

The output is a TSV table printed in the standard output. Use the flag
--output, or -o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var output string

var (
	logFlags cli.Log
	taxFlags cli.Taxonomy
	queries  cli.Queries
)

func setFlags(c *command.Command) {
	cfg := config.Load()
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	queries.SetFlags(c.Flags())
	taxFlags.SetFlags(c.Flags(), cfg, cli.SourcePrefix)
	logFlags.SetFlags(c.Flags(), cfg)
}

func run(c *command.Command, args []string) error {
	if len(args) != 1 {
		return c.UsageError("expecting a tree file")
	}
	logger := logFlags.Init()

	qs, err := queries.Set()
	if err != nil {
		return c.UsageError(err.Error())
	}
	t, err := place.ReadTree(args[0], place.SampleName(args[0]))
	if err != nil {
		return err
	}
	labels, missing := qs.Resolve(t)
	for _, m := range missing {
		logger.Warn("query not found", "tree", t.Name(), "query", m)
	}

	cache, err := taxFlags.OpenCache(logger)
	if err != nil {
		return err
	}
	leaves := t.Labels()
	m := taxFlags.Merger(cache, len(leaves))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	lineages, err := m.Resolve(ctx, leaves)
	if e := taxFlags.SaveCache(cache); e != nil {
		logger.Error("unable to save taxonomy cache", "file", taxFlags.Cache, "error", e)
	}
	if err != nil {
		return err
	}

	res, err := stats.Compute(t, labels, lineages)
	if err != nil {
		return err
	}
	if output == "" {
		return stats.WriteTSV(c.Stdout(), res)
	}
	return cli.WriteFile(output, func(w io.Writer) error {
		return stats.WriteTSV(w, res)
	})
}

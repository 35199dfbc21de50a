// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package itol implements a command to write
// iTOL annotation files of a tree.
package itol

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree/internal/cli"
	"github.com/js-arias/placetree/internal/config"
	"github.com/js-arias/placetree/itol"
	"github.com/js-arias/placetree/place"
)

var Command = &command.Command{
	Usage: `itol [--queries <prefix>,...] [--query-file <fasta>]
	[--taxonomy <source>] [--cache <file>] [--workers <number>]
	[-o|--output <dir>] <tree-file>`,
	Short: "write iTOL annotation files of a tree",
	Long: `
Command itol reads a tree, in newick or nexus format, and writes annotation
files for the Interactive Tree Of Life (iTOL) web viewer, that color the
leaves and branches of the tree by taxonomic category.

The lineages of the leaves are defined with the flag --taxonomy, as in the
command neighbors. By default the lineages are inferred from the accession
pattern ("prefix"). Each leaf takes the category of its lineage (Bacteria,
Archaea, Eukaryota, Viruses, or Other), and internal nodes take the category
shared by all of its descendants, or Other.

The following files are written:

	itol_labels.txt          the category of each leaf
	itol_branch_colors.txt   the branch colors
	itol_query_circles.txt   a circle for each query leaf

Query leaves are defined with the flags --queries and --query-file. If no
query is defined, the file of query circles is not written.

The files are written in the current directory, use the flag --output, or -o,
to define a different directory.
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

	t, err := place.ReadTree(args[0], place.SampleName(args[0]))
	if err != nil {
		return err
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

	if output != "" {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return err
		}
	}

	cats := itol.Categories(t, lineages)
	err = cli.WriteFile(filepath.Join(output, "itol_labels.txt"), func(w io.Writer) error {
		return itol.WriteLabels(w, t, cats)
	})
	if err != nil {
		return err
	}
	err = cli.WriteFile(filepath.Join(output, "itol_branch_colors.txt"), func(w io.Writer) error {
		return itol.WriteColors(w, t, cats)
	})
	if err != nil {
		return err
	}

	if queries.Prefixes == "" && queries.File == "" {
		return nil
	}
	qs, err := queries.Set()
	if err != nil {
		return err
	}
	labels, missing := qs.Resolve(t)
	for _, m := range missing {
		logger.Warn("query not found", "tree", t.Name(), "query", m)
	}
	return cli.WriteFile(filepath.Join(output, "itol_query_circles.txt"), func(w io.Writer) error {
		return itol.WriteQueries(w, t, labels)
	})
}

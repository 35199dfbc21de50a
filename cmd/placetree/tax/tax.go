// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package tax implements a command to retrieve
// the lineages of a list of accessions.
package tax

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree/internal/cli"
	"github.com/js-arias/placetree/internal/config"
	"github.com/js-arias/placetree/place"
	"github.com/js-arias/placetree/taxonomy"
)

var Command = &command.Command{
	Usage: `tax [--list] [--taxonomy <source>] [--cache <file>]
	[--workers <number>] [--progress] [-o|--output <file>] [<file>...]`,
	Short: "retrieve the lineages of accessions",
	Long: `
Command tax reads the accessions from one or more tree files, in newick or
nexus format, and retrieves their lineages from a taxonomy source, storing
them in a taxonomy cache file, so they can be used later by other commands.

The accessions are the leaf labels of the trees. If the flag --list is set,
the files are read as lists of accessions, one per line (lines starting with
"#" are ignored), and if no file is given, the list is read from the standard
input.

The flag --taxonomy defines the source of the lineages. Valid sources are
"ncbi" (the default), "gbif", "table", and "prefix" (see the help of the
command neighbors for details). Several sources can be given, separated by
commas. The flag --workers defines the number of simultaneous lookups, and
the flag --progress shows a progress bar.

The lineages are stored in the file indicated by the flag --cache (or the
environment variable PLACETREE_CACHE). Lineages already stored in the file
are not retrieved again. If no cache file is defined, the lineages are
printed in the standard output. Use the flag --output, or -o, to write them
in a different file. The file is a TSV file with the columns "accession" and
"lineage", in which the lineage is a semicolon separated list of ranks. An
empty lineage indicates an accession without record.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var (
	listFlag bool
	output   string
)

var (
	logFlags cli.Log
	taxFlags cli.Taxonomy
)

func setFlags(c *command.Command) {
	cfg := config.Load()
	c.Flags().BoolVar(&listFlag, "list", false, "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	taxFlags.SetFlags(c.Flags(), cfg, cli.SourceNCBI)
	logFlags.SetFlags(c.Flags(), cfg)
}

func run(c *command.Command, args []string) error {
	if len(args) == 0 {
		if !listFlag {
			return c.UsageError("expecting one or more tree files")
		}
		args = append(args, "-")
	}
	logger := logFlags.Init()

	var accs []string
	for _, a := range args {
		var ls []string
		var err error
		if listFlag {
			ls, err = readList(c.Stdin(), a)
		} else {
			ls, err = readLeaves(a)
		}
		if err != nil {
			return err
		}
		accs = append(accs, ls...)
	}

	cache, err := taxFlags.OpenCache(logger)
	if err != nil {
		return err
	}
	m := taxFlags.Merger(cache, len(accs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lineages, err := m.Resolve(ctx, accs)

	// keep the lineages retrieved before an interruption
	if e := taxFlags.SaveCache(cache); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	var failed int
	ls := make([]taxonomy.Lineage, 0, len(lineages))
	for _, l := range lineages {
		if l.Status == taxonomy.Failed {
			failed++
		}
		ls = append(ls, l)
	}
	sum := taxonomy.Summarize(ls)
	logger.Info("lineages", "accessions", len(lineages), "failed", failed, "domains", sum.Domains)

	if taxFlags.Cache != "" && output == "" {
		return nil
	}
	if output == "" {
		return cache.WriteTSV(c.Stdout())
	}
	return cli.WriteFile(output, cache.WriteTSV)
}

func readLeaves(name string) ([]string, error) {
	t, err := place.ReadTree(name, place.SampleName(name))
	if err != nil {
		return nil, err
	}
	return t.Labels(), nil
}

func readList(r io.Reader, name string) ([]string, error) {
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		name = "stdin"
	}

	var accs []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		ln := strings.TrimSpace(s.Text())
		if ln == "" || ln[0] == '#' {
			continue
		}
		accs = append(accs, strings.Fields(ln)[0])
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return accs, nil
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package neighbors implements a command to find
// the nearest neighbors of query leaves
// in a set of gene trees.
package neighbors

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree/internal/cli"
	"github.com/js-arias/placetree/internal/config"
	"github.com/js-arias/placetree/neighbor"
	"github.com/js-arias/placetree/place"
	"github.com/js-arias/placetree/report"
	"github.com/js-arias/placetree/taxonomy"
)

var Command = &command.Command{
	Usage: `neighbors [--queries <prefix>,...] [--query-file <fasta>]
	[-n|--neighbors <number>] [--self-hit <value>] [--max-ratio <value>]
	[--same-genome] [--query-genomes]
	[--taxonomy <source>] [--cache <file>] [--workers <number>]
	[--format json|csv|both] [--combined <file>]
	[-o|--output <dir>] <tree-file>...`,
	Short: "find the nearest neighbors of queries in gene trees",
	Long: `
Command neighbors reads one or more gene trees, in newick or nexus format, and
for each query leaf of each tree, finds the nearest leaves, as measured by the
sum of branch lengths between the leaves.

Each tree file is a sample, named after the file name without extension
(e.g., the sample of file "OG0001.tree" is "OG0001"). Trees that can not be
read are reported as failed samples.

Query leaves are defined with the flag --queries, a comma separated list of
label prefixes, or the flag --query-file, a FASTA file with the identifiers of
the query sequences. At least one of them must be defined.

The flag --neighbors, or -n, defines the maximum number of neighbors of each
query. By default it is 5. Leaves at a distance less or equal than the value
of the flag --self-hit (default 0.001) are ignored. If the flag --max-ratio
is defined, neighbors at a distance greater than the indicated ratio of the
distance of the nearest neighbor are ignored. If the flag --same-genome is
set, leaves from the same genome as the query (i.e., with the same label
part before "|") are ignored. If the flag --query-genomes is set, leaves from
the genome of any query are ignored.

The lineage of each neighbor is retrieved with the flag --taxonomy. Valid
sources are:

	ncbi    NCBI Entrez protein database
	gbif    a GBIF taxonomy, requires flags --gbif and --organisms
	table   a lineage table, requires the flag --table
	prefix  lineages inferred from the accession pattern
	none    no taxonomy

Several sources can be given, separated by commas, and they will be tried in
order. By default no taxonomy is used. The NCBI service is configured with
the flags --email, --api-key, --rate, and --retries, or the environment
variables PLACETREE_NCBI_EMAIL, PLACETREE_NCBI_API_KEY, PLACETREE_NCBI_RATE,
and PLACETREE_RETRIES. If the flag --cache (or PLACETREE_CACHE) is defined,
the lineages are read from, and stored in, the indicated file. The flag
--workers defines the number of simultaneous lookups. Use the flag
--progress to show a progress bar of the lookups.

The flag --format defines the output of each sample: "json" (the default),
"csv", or "both". JSON reports are written as "<sample>.json" and CSV tables
as "<sample>_neighbors.csv", in the directory indicated by the flag --output,
or -o (by default the current directory). If the flag --combined is defined,
a report that combines all the samples will be written in the indicated file.
Reports are only written if all samples were processed.

Log messages are written to the standard error. The level is set with the
flag --log-level, and the flag --log-json writes them in JSON format.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var (
	numNeighbors int
	selfHit      float64
	maxRatio     float64
	sameGenome   bool
	queryGenomes bool
	format       string
	combinedFile string
	output       string
)

var (
	logFlags cli.Log
	taxFlags cli.Taxonomy
	queries  cli.Queries
)

func setFlags(c *command.Command) {
	opts := neighbor.DefaultOptions()
	cfg := config.Load()

	c.Flags().IntVar(&numNeighbors, "neighbors", opts.N, "")
	c.Flags().IntVar(&numNeighbors, "n", opts.N, "")
	c.Flags().Float64Var(&selfHit, "self-hit", opts.SelfHit, "")
	c.Flags().Float64Var(&maxRatio, "max-ratio", 0, "")
	c.Flags().BoolVar(&sameGenome, "same-genome", false, "")
	c.Flags().BoolVar(&queryGenomes, "query-genomes", false, "")
	c.Flags().StringVar(&format, "format", "json", "")
	c.Flags().StringVar(&combinedFile, "combined", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	queries.SetFlags(c.Flags())
	taxFlags.SetFlags(c.Flags(), cfg, cli.SourceNone)
	logFlags.SetFlags(c.Flags(), cfg)
}

func run(c *command.Command, args []string) error {
	if len(args) == 0 {
		return c.UsageError("expecting tree file")
	}
	switch format {
	case "json", "csv", "both":
	default:
		return c.UsageError(fmt.Sprintf("invalid --format value %q", format))
	}
	if numNeighbors < 1 {
		return c.UsageError("flag --neighbors must be positive")
	}

	logger := logFlags.Init()
	qs, err := queries.Set()
	if err != nil {
		return c.UsageError(err.Error())
	}

	cache, err := taxFlags.OpenCache(logger)
	if err != nil {
		return err
	}
	var m *taxonomy.Merger
	if taxFlags.Source != cli.SourceNone || taxFlags.Cache != "" {
		m = taxFlags.Merger(cache, -1)
	}

	if output != "" {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return err
		}
	}

	samples := make([]place.Sample, 0, len(args))
	for _, a := range args {
		samples = append(samples, place.Sample{
			Name: place.SampleName(a),
			Path: a,
		})
	}

	opts := neighbor.DefaultOptions()
	opts.N = numNeighbors
	opts.SelfHit = selfHit
	opts.MaxRatio = maxRatio
	opts.ExcludeSameGenome = sameGenome
	opts.ExcludeQueryGenomes = queryGenomes

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	comb, err := place.Run(ctx, samples, place.Config{
		Queries: qs,
		Options: opts,
		Merger:  m,
		Emit:    emit,
		Logger:  logger,
	})

	// the lineages found before an interruption
	// are still valid
	if e := taxFlags.SaveCache(cache); e != nil {
		logger.Error("unable to save taxonomy cache", "file", taxFlags.Cache, "error", e)
	}
	if err != nil {
		return err
	}

	if combinedFile != "" {
		if err := cli.WriteFile(combinedFile, comb.WriteJSON); err != nil {
			return err
		}
	}
	logger.Info("done", "samples", len(comb.Orthogroups), "failed", len(comb.Failed), "queries", comb.TotalQueries)
	return nil
}

func emit(r *report.Report) error {
	if format == "json" || format == "both" {
		name := filepath.Join(output, r.Name+".json")
		if err := cli.WriteFile(name, r.WriteJSON); err != nil {
			return err
		}
	}
	if format == "csv" || format == "both" {
		name := filepath.Join(output, r.Name+"_neighbors.csv")
		if err := cli.WriteFile(name, r.WriteCSV); err != nil {
			return err
		}
	}
	return nil
}

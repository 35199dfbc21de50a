// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package neighbor selects the nearest neighbors
// of query leaves in a gene tree.
//
// Neighbors are ranked by patristic distance,
// after removing self-hits
// (leaves at a near-zero distance from the query)
// and duplicated accessions.
package neighbor

import (
	"cmp"
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/taxonomy"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Options are the parameters
// used to select the neighbors.
type Options struct {
	// N is the maximum number of neighbors
	// reported for each query.
	N int

	// SelfHit is the distance threshold:
	// any candidate at a distance less than or equal
	// to this value is considered a self-hit.
	SelfHit float64

	// If MaxRatio is greater than zero,
	// candidates farther than MaxRatio times
	// the distance of the nearest valid candidate
	// are removed.
	MaxRatio float64

	// If ExcludeSameGenome is true,
	// candidates from the genome of the query are removed.
	ExcludeSameGenome bool

	// If ExcludeQueryGenomes is true,
	// candidates from any query genome are removed.
	ExcludeQueryGenomes bool

	// GenomeSep separates the genome
	// from the sequence in a leaf label
	// (e.g. "Hype|g1").
	GenomeSep string

	// Workers is the number of queries
	// processed in parallel.
	// If zero, the number of CPUs is used.
	Workers int
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		N:         5,
		SelfHit:   0.001,
		GenomeSep: "|",
	}
}

// A Record is a neighbor of a query.
type Record struct {
	Query    string
	Neighbor string
	Distance float64

	// Rank is the 1-based position of the neighbor.
	Rank int

	Lineage taxonomy.Lineage
}

// A Placement is the list of neighbors of a query,
// ordered by rank.
type Placement struct {
	Query     string
	Neighbors []Record
}

// A Result is the set of placements
// of the queries of a tree.
type Result struct {
	// Placements in the order of the leaves
	// of the tree.
	Placements []Placement

	// Missing are the query labels
	// not found in the tree.
	Missing []string
}

// Select returns the nearest neighbors
// of each query of a tree.
//
// Queries without a leaf in the tree
// are logged as warnings
// and reported as missing.
// If logger is nil,
// the default logger is used.
func Select(t *placetree.Tree, qs QuerySet, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.N <= 0 {
		opts.N = DefaultOptions().N
	}

	queries, missing := qs.resolve(t)
	for _, m := range missing {
		logger.Warn("query not in tree", "tree", t.Name(), "query", m, "err", placetree.ErrUnknownLeaf)
	}

	// genomes of the queries
	genomes := make(map[string]bool)
	for _, p := range qs.Prefixes {
		genomes[p] = true
	}
	for _, q := range queries {
		genomes[genome(t.Label(q), opts.GenomeSep)] = true
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	res := &Result{
		Placements: make([]Placement, len(queries)),
		Missing:    missing,
	}
	leaves := t.Leaves()
	var g errgroup.Group
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			res.Placements[i] = Placement{
				Query:     t.Label(q),
				Neighbors: nearest(t, q, leaves, genomes, opts),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

type candidate struct {
	label string
	dist  float64
}

func nearest(t *placetree.Tree, q int, leaves []int, genomes map[string]bool, opts Options) []Record {
	query := t.Label(q)
	qGenome := genome(query, opts.GenomeSep)

	var cands []candidate
	for _, id := range leaves {
		label := t.Label(id)
		if label == query {
			continue
		}
		d := t.NodeDistance(q, id)
		if d <= opts.SelfHit {
			continue
		}
		g := genome(label, opts.GenomeSep)
		if opts.ExcludeSameGenome && g == qGenome {
			continue
		}
		if opts.ExcludeQueryGenomes && genomes[g] {
			continue
		}
		cands = append(cands, candidate{label: label, dist: d})
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return strings.Compare(a.label, b.label)
	})

	seen := make(map[string]bool)
	var recs []Record
	for _, c := range cands {
		if len(recs) >= opts.N {
			break
		}
		acc := taxonomy.Accession(c.label)
		if seen[acc] {
			continue
		}
		seen[acc] = true
		if opts.MaxRatio > 0 && len(recs) > 0 && c.dist > recs[0].Distance*opts.MaxRatio {
			break
		}
		recs = append(recs, Record{
			Query:    query,
			Neighbor: c.label,
			Distance: c.dist,
			Rank:     len(recs) + 1,
		})
	}
	return recs
}

// Genome returns the genome part of a label.
func genome(label, sep string) string {
	if sep == "" {
		return label
	}
	g, _, _ := strings.Cut(label, sep)
	return g
}

// ByQuery returns the neighbors
// keyed by query.
func (r *Result) ByQuery() map[string][]Record {
	m := make(map[string][]Record, len(r.Placements))
	for _, p := range r.Placements {
		m[p.Query] = p.Neighbors
	}
	return m
}

// Records returns all the neighbors of all the queries.
func (r *Result) Records() []Record {
	var recs []Record
	for _, p := range r.Placements {
		recs = append(recs, p.Neighbors...)
	}
	return recs
}

// Neighbors returns the distinct neighbor labels
// in the order in which they are first found.
func (r *Result) Neighbors() []string {
	seen := make(map[string]bool)
	var ns []string
	for _, p := range r.Placements {
		for _, rec := range p.Neighbors {
			if seen[rec.Neighbor] {
				continue
			}
			seen[rec.Neighbor] = true
			ns = append(ns, rec.Neighbor)
		}
	}
	return ns
}

// AttachTaxonomy sets the lineage of each neighbor
// using a taxonomy merger.
// A neighbor with a failed lookup
// keeps a Failed lineage.
// It only returns an error if the context is cancelled.
func (r *Result) AttachTaxonomy(ctx context.Context, m *taxonomy.Merger) error {
	lineages, err := m.Resolve(ctx, r.Neighbors())
	if err != nil {
		return err
	}
	for i := range r.Placements {
		ns := r.Placements[i].Neighbors
		for j := range ns {
			ns[j].Lineage = lineages[ns[j].Neighbor]
		}
	}
	return nil
}

// Summary returns the number of neighbors
// by domain.
func (r *Result) Summary() taxonomy.Summary {
	var ls []taxonomy.Lineage
	for _, rec := range r.Records() {
		ls = append(ls, rec.Lineage)
	}
	return taxonomy.Summarize(ls)
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package taxonomy

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default number
// of concurrent lookups of a Merger.
const DefaultWorkers = 4

// A Progress is used to report
// each resolved accession.
type Progress interface {
	Add(n int) error
}

// A Merger resolves the lineages
// of a set of accessions
// using a shared cache.
type Merger struct {
	// Cache used for the lookups
	Cache *Cache

	// Workers is the maximum number
	// of concurrent lookups.
	// If zero, DefaultWorkers is used.
	Workers int

	// Progress, if defined,
	// is updated after each accession is resolved.
	// Progress errors are only logged.
	Progress Progress

	mu sync.Mutex
}

// Resolve returns the lineages
// of the indicated accessions,
// keyed by the given accession.
//
// Failed lookups are returned
// as lineages with Failed status,
// so the only error returned
// is the context error if the context is cancelled.
func (m *Merger) Resolve(ctx context.Context, accessions []string) (map[string]Lineage, error) {
	workers := m.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	seen := make(map[string]bool, len(accessions))
	var distinct []string
	for _, a := range accessions {
		if seen[a] {
			continue
		}
		seen[a] = true
		distinct = append(distinct, a)
	}

	lineages := make([]Lineage, len(distinct))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, a := range distinct {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			l, err := m.Cache.Lineage(gCtx, a)
			if err != nil {
				return err
			}
			lineages[i] = l
			m.progress()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := make(map[string]Lineage, len(distinct))
	for i, a := range distinct {
		res[a] = lineages[i]
	}
	return res, nil
}

func (m *Merger) progress() {
	if m.Progress == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Progress.Add(1); err != nil {
		m.Cache.logger.Debug("progress update", "err", err)
	}
}

// A Summary is the count of lineages by domain.
type Summary struct {
	Domains map[string]int
	Total   int
}

// Summarize counts the lineages by domain.
// Lineages without ranks are counted as Unknown.
func Summarize(lineages []Lineage) Summary {
	s := Summary{
		Domains: make(map[string]int),
	}
	for _, l := range lineages {
		s.Domains[l.Domain()]++
		s.Total++
	}
	return s
}

// Add adds the counts of other summary.
func (s *Summary) Add(other Summary) {
	if s.Domains == nil {
		s.Domains = make(map[string]int)
	}
	for d, c := range other.Domains {
		s.Domains[d] += c
	}
	s.Total += other.Total
}

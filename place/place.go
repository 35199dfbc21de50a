// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package place runs the placement of query sequences
// over a set of gene trees (samples).
//
// Each sample is processed independently:
// the tree is read,
// the neighbors of the queries are selected,
// and the taxonomy of the neighbors is attached.
// Once every sample is done,
// the reports are combined.
package place

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/neighbor"
	"github.com/js-arias/placetree/report"
	"github.com/js-arias/placetree/taxonomy"
	"golang.org/x/sync/errgroup"
)

// A Sample is a gene tree.
// If Tree is nil,
// the tree is read from Path.
type Sample struct {
	Name string
	Path string
	Tree *placetree.Tree
}

// SampleName returns the name of a sample
// from the name of a tree file
// (i.e., the base name without extension).
func SampleName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Config is the configuration of a run.
type Config struct {
	// Queries used in every sample.
	Queries neighbor.QuerySet

	// Options for neighbor selection.
	Options neighbor.Options

	// Merger used to attach the taxonomy.
	// If nil,
	// neighbors will be reported without taxonomy.
	Merger *taxonomy.Merger

	// Workers is the number of samples
	// processed in parallel.
	// If zero, the number of CPUs is used.
	Workers int

	// Emit, if defined,
	// is called with each sample report
	// after every sample was processed.
	Emit func(*report.Report) error

	Logger *slog.Logger
}

// Run process the samples
// and returns the combined report.
//
// A sample that can not be read
// is logged and reported as failed
// without stopping the other samples.
// If the context is cancelled,
// Run returns the context error
// and no report is emitted.
func Run(ctx context.Context, samples []Sample, cfg Config) (*report.Combined, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	reports := make([]*report.Report, len(samples))
	failed := make([]error, len(samples))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range samples {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			name := s.Name
			if name == "" {
				name = SampleName(s.Path)
			}
			log := logger.With("sample", name)

			r, err := runSample(gCtx, name, s, cfg, log)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				log.Warn("sample failed", "err", err)
				failed[i] = err
				return nil
			}
			log.Info("sample done", "queries", r.QueryCount, "neighbors", r.Summary.Total)
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var done []*report.Report
	for _, r := range reports {
		if r != nil {
			done = append(done, r)
		}
	}
	c, err := report.Combine(done)
	if err != nil {
		return nil, err
	}
	for i, err := range failed {
		if err == nil {
			continue
		}
		name := samples[i].Name
		if name == "" {
			name = SampleName(samples[i].Path)
		}
		c.AddFailure(name, err)
	}

	if cfg.Emit != nil {
		for _, r := range done {
			if err := cfg.Emit(r); err != nil {
				return nil, fmt.Errorf("sample %q: %v", r.Name, err)
			}
		}
	}
	return c, nil
}

func runSample(ctx context.Context, name string, s Sample, cfg Config, logger *slog.Logger) (*report.Report, error) {
	t := s.Tree
	if t == nil {
		var err error
		t, err = ReadTree(s.Path, name)
		if err != nil {
			return nil, err
		}
	}
	if rep := t.Repeated(); len(rep) > 0 {
		logger.Debug("repeated leaf labels", "labels", rep)
	}

	opts := cfg.Options
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	res, err := neighbor.Select(t, cfg.Queries, opts, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Merger != nil {
		if err := res.AttachTaxonomy(ctx, cfg.Merger); err != nil {
			return nil, err
		}
	}
	return report.New(name, res), nil
}

// ReadTree reads the first tree of a tree file.
// Files with .nex or .nexus extension
// are read as Nexus files,
// files with .tab or .tsv extension
// are read as TSV node tables,
// any other file is read as a Newick file.
func ReadTree(path, name string) (*placetree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".nex", ".nexus":
		c, err := placetree.Nexus(f)
		if err != nil {
			return nil, fmt.Errorf("on file %q: %w", path, err)
		}
		return c.Tree(c.Names()[0]), nil
	case ".tab", ".tsv":
		c, err := placetree.ReadTSV(f)
		if err != nil {
			return nil, fmt.Errorf("on file %q: %w", path, err)
		}
		if c.Len() == 0 {
			return nil, fmt.Errorf("on file %q: file without trees", path)
		}
		return c.Tree(c.Names()[0]), nil
	}

	t, err := placetree.ReadNewick(f, name)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %w", path, err)
	}
	return t, nil
}

// IsParseError returns true
// if the error is produced by a malformed tree.
func IsParseError(err error) bool {
	var pe *placetree.ParseError
	return errors.As(err, &pe)
}

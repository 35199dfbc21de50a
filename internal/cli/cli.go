// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package cli implements the flags
// shared by the placetree commands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/js-arias/placetree/internal/config"
	"github.com/js-arias/placetree/internal/logging"
	"github.com/js-arias/placetree/neighbor"
	"github.com/js-arias/placetree/taxonomy"
	"github.com/js-arias/placetree/taxonomy/gbif"
	"github.com/js-arias/placetree/taxonomy/ncbi"
	"github.com/schollz/progressbar/v3"
)

// Taxonomy sources.
const (
	SourceNCBI   = "ncbi"
	SourceGBIF   = "gbif"
	SourceTable  = "table"
	SourcePrefix = "prefix"
	SourceNone   = "none"
)

// Log are the logging flags.
type Log struct {
	Level string
	JSON  bool
}

// SetFlags sets the logging flags,
// with defaults from the configuration.
func (l *Log) SetFlags(set *flag.FlagSet, cfg config.Config) {
	set.StringVar(&l.Level, "log-level", cfg.LogLevel, "")
	set.BoolVar(&l.JSON, "log-json", false, "")
}

// Init sets the default logger.
func (l *Log) Init() *slog.Logger {
	return logging.Init(l.JSON, logging.ParseLevel(l.Level))
}

// Taxonomy are the flags
// that define the taxonomy lookup.
type Taxonomy struct {
	Source    string
	Table     string
	Organisms string
	GBIF      string
	Cache     string
	Workers   int
	Progress  bool

	NCBI config.NCBIConfig

	flags *flag.FlagSet
}

// SetFlags sets the taxonomy flags,
// with defaults from the configuration.
func (t *Taxonomy) SetFlags(set *flag.FlagSet, cfg config.Config, source string) {
	set.StringVar(&t.Source, "taxonomy", source, "")
	set.StringVar(&t.Table, "table", "", "")
	set.StringVar(&t.Organisms, "organisms", "", "")
	set.StringVar(&t.GBIF, "gbif", "", "")
	set.StringVar(&t.Cache, "cache", cfg.Lookup.Cache, "")
	set.IntVar(&t.Workers, "workers", cfg.Lookup.Workers, "")
	set.BoolVar(&t.Progress, "progress", false, "")
	set.StringVar(&t.NCBI.Email, "email", cfg.NCBI.Email, "")
	set.StringVar(&t.NCBI.APIKey, "api-key", cfg.NCBI.APIKey, "")
	set.Float64Var(&t.NCBI.Rate, "rate", cfg.NCBI.Rate, "")
	set.IntVar(&t.NCBI.Retries, "retries", cfg.NCBI.Retries, "")
	t.NCBI.URL = cfg.NCBI.URL
	t.NCBI.RateSet = cfg.NCBI.RateSet
	t.flags = set
}

// Rate returns the NCBI request rate.
// If the rate was not defined
// by a flag or the environment,
// and there is an API key,
// the rate allowed with a key is used.
func (t *Taxonomy) Rate() float64 {
	if t.NCBI.APIKey == "" || t.NCBI.RateSet {
		return t.NCBI.Rate
	}
	if t.flags != nil {
		set := false
		t.flags.Visit(func(f *flag.Flag) {
			if f.Name == "rate" {
				set = true
			}
		})
		if set {
			return t.NCBI.Rate
		}
	}
	return config.KeyRate
}

// Lookup returns the lookup defined by the flags.
// Several sources separated by commas
// are tried in order.
// It returns nil for the "none" source.
func (t *Taxonomy) Lookup(logger *slog.Logger) (taxonomy.Lookup, error) {
	var chain taxonomy.Chain
	for _, src := range strings.Split(t.Source, ",") {
		l, err := t.source(strings.ToLower(strings.TrimSpace(src)), logger)
		if err != nil {
			return nil, err
		}
		if l == nil {
			continue
		}
		chain = append(chain, l)
	}

	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return chain, nil
}

func (t *Taxonomy) source(src string, logger *slog.Logger) (taxonomy.Lookup, error) {
	switch src {
	case SourceNCBI:
		return ncbi.New(
			ncbi.WithURL(t.NCBI.URL),
			ncbi.WithEmail(t.NCBI.Email),
			ncbi.WithAPIKey(t.NCBI.APIKey),
			ncbi.WithRate(t.Rate()),
			ncbi.WithRetries(t.NCBI.Retries),
			ncbi.WithLogger(logger),
		), nil
	case SourceGBIF:
		return t.gbifLookup()
	case SourceTable:
		if t.Table == "" {
			return nil, fmt.Errorf("flag --table must be defined for %q taxonomy", SourceTable)
		}
		var tab taxonomy.Table
		err := readFile(t.Table, func(r io.Reader) error {
			var err error
			tab, err = taxonomy.ReadTable(r)
			return err
		})
		if err != nil {
			return nil, err
		}
		return tab, nil
	case SourcePrefix:
		return taxonomy.Prefix{}, nil
	case SourceNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown taxonomy source %q", src)
}

func (t *Taxonomy) gbifLookup() (taxonomy.Lookup, error) {
	if t.GBIF == "" || t.Organisms == "" {
		return nil, fmt.Errorf("flags --gbif and --organisms must be defined for %q taxonomy", SourceGBIF)
	}

	f, err := os.Open(t.GBIF)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tx, err := gbif.ReadTaxonomy(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", t.GBIF, err)
	}

	var orgs map[string]string
	err = readFile(t.Organisms, func(r io.Reader) error {
		var err error
		orgs, err = gbif.ReadOrganisms(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gbif.New(tx, orgs), nil
}

// OpenCache returns a new cache
// using the lookup defined by the flags.
// If the cache file exists,
// its lineages are added to the cache.
func (t *Taxonomy) OpenCache(logger *slog.Logger) (*taxonomy.Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l, err := t.Lookup(logger)
	if err != nil {
		return nil, err
	}
	c := taxonomy.NewCache(l, logger)
	if t.Cache == "" {
		return c, nil
	}

	err = readFile(t.Cache, c.ReadTSV)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("taxonomy cache", "file", t.Cache, "accessions", c.Len())
	return c, nil
}

// SaveCache writes the cache file,
// if it is defined.
func (t *Taxonomy) SaveCache(c *taxonomy.Cache) error {
	if t.Cache == "" {
		return nil
	}
	return WriteFile(t.Cache, c.WriteTSV)
}

// Merger returns a taxonomy merger
// that uses the indicated cache.
// If the progress flag is set,
// a progress bar of n steps is shown
// (-1 for an unknown number of steps).
func (t *Taxonomy) Merger(c *taxonomy.Cache, n int) *taxonomy.Merger {
	m := &taxonomy.Merger{
		Cache:   c,
		Workers: t.Workers,
	}
	if t.Progress {
		m.Progress = progressbar.Default(int64(n), "taxonomy")
	}
	return m
}

// Queries are the flags
// that define the query sequences.
type Queries struct {
	Prefixes string
	File     string
}

// SetFlags sets the query flags.
func (q *Queries) SetFlags(set *flag.FlagSet) {
	set.StringVar(&q.Prefixes, "queries", "", "")
	set.StringVar(&q.File, "query-file", "", "")
}

// Set returns the query set defined by the flags.
func (q *Queries) Set() (neighbor.QuerySet, error) {
	if q.Prefixes == "" && q.File == "" {
		return neighbor.QuerySet{}, errors.New("flag --queries or --query-file must be defined")
	}
	qs := neighbor.ParseQuerySet(q.Prefixes)
	if q.File != "" {
		fq, err := neighbor.ReadQueryFASTA(q.File)
		if err != nil {
			return neighbor.QuerySet{}, err
		}
		qs.Labels = fq.Labels
	}
	return qs, nil
}

// WriteFile creates a file
// and writes its content with the indicated function.
func WriteFile(name string, write func(io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}

func readFile(name string, read func(io.Reader) error) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := read(f); err != nil {
		return fmt.Errorf("on file %q: %w", name, err)
	}
	return nil
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package taxonomy

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"
)

// A Cache stores the lineages
// retrieved from a lookup service,
// keyed by accession without version.
//
// A Cache is safe for concurrent use,
// and concurrent requests of the same accession
// make a single call to the lookup service.
// Only resolved and not-found results are stored,
// so a failed or cancelled lookup
// will be tried again on the next request.
type Cache struct {
	lookup Lookup
	logger *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	lineages map[string][]string
	notFound map[string]bool
}

// NewCache returns a new empty cache
// that uses the indicated lookup.
// If lookup is nil,
// only the lineages already stored in the cache
// will be returned.
// If logger is nil,
// the default logger will be used.
func NewCache(lookup Lookup, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		lookup:   lookup,
		logger:   logger,
		lineages: make(map[string][]string),
		notFound: make(map[string]bool),
	}
}

// Len returns the number of accessions
// stored in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lineages) + len(c.notFound)
}

// Lineage returns the lineage of an accession.
//
// A lookup failure is not an error:
// it is reported as a lineage with Failed status.
// The only error returned is the context error
// if the context is cancelled.
func (c *Cache) Lineage(ctx context.Context, accession string) (Lineage, error) {
	key := Accession(accession)
	if l, ok := c.get(key); ok {
		return l, nil
	}
	if c.lookup == nil {
		return Lineage{Status: NoData}, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(ctx, key)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Lineage{}, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		if ctx.Err() != nil {
			return Lineage{}, ctx.Err()
		}
		if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			// the shared lookup was cancelled
			// by another caller
			return c.Lineage(ctx, accession)
		}
		c.logger.Warn("taxonomy lookup failed", "accession", key, "err", res.Err)
		return Lineage{Status: Failed}, nil
	}
	return res.Val.(Lineage), nil
}

func (c *Cache) fetch(ctx context.Context, key string) (Lineage, error) {
	if l, ok := c.get(key); ok {
		return l, nil
	}

	ranks, err := c.lookup.Lookup(ctx, key)
	if errors.Is(err, ErrNotFound) {
		c.setNotFound(key)
		return Lineage{Status: NotFound}, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return Lineage{}, ctx.Err()
		}
		var le *LookupError
		if !errors.As(err, &le) {
			err = &LookupError{Accession: key, Err: err}
		}
		return Lineage{}, err
	}

	c.Set(key, ranks)
	return Lineage{Ranks: cloneRanks(ranks), Status: Resolved}, nil
}

func (c *Cache) get(key string) (Lineage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ranks, ok := c.lineages[key]; ok {
		return Lineage{Ranks: cloneRanks(ranks), Status: Resolved}, true
	}
	if c.notFound[key] {
		return Lineage{Status: NotFound}, true
	}
	return Lineage{}, false
}

// Set stores the lineage of an accession.
// An empty lineage is stored as not found.
func (c *Cache) Set(accession string, ranks []string) {
	key := Accession(accession)
	if len(ranks) == 0 {
		c.setNotFound(key)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lineages[key] = cloneRanks(ranks)
	delete(c.notFound, key)
}

func (c *Cache) setNotFound(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lineages[key]; ok {
		return
	}
	c.notFound[key] = true
}

var cacheHeader = []string{
	"accession",
	"lineage",
}

// ReadTSV reads a cache file
// and adds its lineages to the cache.
//
// The cache file is a tab-delimited file
// with the fields:
//
//	-accession, the accession of the sequence
//	-lineage, the semicolon separated lineage
//
// An empty lineage indicates
// an accession without record in the lookup service.
// Here is an example file:
//
//	accession	lineage
//	WP_012345678	Bacteria; Pseudomonadota; Gammaproteobacteria
//	XP_000000001	Eukaryota; Metazoa
//	MBE0000001
func (c *Cache) ReadTSV(r io.Reader) error {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'
	tab.FieldsPerRecord = -1
	tab.LazyQuotes = true

	head, err := tab.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(h))
		fields[h] = i
	}
	for _, h := range cacheHeader {
		if _, ok := fields[h]; !ok {
			return fmt.Errorf("expecting field %q", h)
		}
	}

	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "accession"
		acc := ""
		if i := fields[f]; i < len(row) {
			acc = strings.TrimSpace(row[i])
		}
		if acc == "" {
			continue
		}

		f = "lineage"
		var ranks []string
		if i := fields[f]; i < len(row) {
			ranks = Ranks(row[i])
		}
		c.Set(acc, ranks)
	}
	return nil
}

// WriteTSV writes the cache
// as a tab-delimited file,
// sorted by accession.
func (c *Cache) WriteTSV(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	accs := make([]string, 0, len(c.lineages)+len(c.notFound))
	for a := range c.lineages {
		accs = append(accs, a)
	}
	for a := range c.notFound {
		accs = append(accs, a)
	}
	slices.Sort(accs)

	bw := bufio.NewWriter(w)
	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = false

	if err := tab.Write(cacheHeader); err != nil {
		return fmt.Errorf("unable to write header: %v", err)
	}
	for _, a := range accs {
		l := Lineage{Ranks: c.lineages[a]}
		row := []string{a, l.String()}
		if err := tab.Write(row); err != nil {
			return fmt.Errorf("unable to write %q: %v", a, err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}

func cloneRanks(ranks []string) []string {
	if len(ranks) == 0 {
		return nil
	}
	c := make([]string, len(ranks))
	copy(c, ranks)
	return c
}

// ReadTable reads a lineage table
// from a tab-delimited file
// with the cache format.
// Accessions without lineage are ignored.
func ReadTable(r io.Reader) (Table, error) {
	c := NewCache(nil, nil)
	if err := c.ReadTSV(r); err != nil {
		return nil, err
	}
	t := make(Table, len(c.lineages))
	for acc, ranks := range c.lineages {
		t[acc] = ranks
	}
	return t, nil
}

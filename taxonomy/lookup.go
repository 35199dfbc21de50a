// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Lookup
// when there is no record for an accession.
var ErrNotFound = errors.New("accession not found")

// A LookupError is returned when a lookup fails
// for a reason other than a missing record
// (e.g. network errors or rate limits).
type LookupError struct {
	Accession string
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %v", e.Accession, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// A Lookup retrieves the lineage of an accession.
// It returns ErrNotFound
// if the accession has no record.
type Lookup interface {
	Lookup(ctx context.Context, accession string) ([]string, error)
}

// A Table is a lookup
// from a fixed table of lineages.
type Table map[string][]string

// Lookup returns the lineage of an accession.
// Accessions are searched with and without version.
func (t Table) Lookup(ctx context.Context, accession string) ([]string, error) {
	if ranks, ok := t[accession]; ok {
		return ranks, nil
	}
	if ranks, ok := t[Accession(accession)]; ok {
		return ranks, nil
	}
	return nil, ErrNotFound
}

// Prefix is a lookup that infers a coarse lineage
// from the pattern of an accession.
type Prefix struct{}

var prefixes = []struct {
	prefix string
	ranks  []string
}{
	{"AYV", []string{"Viruses", "Nucleocytoviricota", "Hyperionvirus"}},
	{"WP_", []string{"Bacteria"}},
	{"XP_", []string{"Eukaryota"}},
	{"NP_", []string{"Bacteria", "RefSeq"}},
	{"YP_", []string{"Bacteria", "RefSeq"}},
	{"AEF", []string{"Bacteria", "Pseudomonadota", "Gammaproteobacteria"}},
	{"ARF", []string{"Bacteria", "Pseudomonadota", "Gammaproteobacteria"}},
	{"KA", []string{"Eukaryota"}},
	{"CA", []string{"Bacteria"}},
	{"MD", []string{"Bacteria"}},
	{"PBC", []string{"Bacteria"}},
}

// Lookup returns a lineage inferred from the accession prefix.
func (Prefix) Lookup(ctx context.Context, accession string) ([]string, error) {
	accession = strings.TrimSpace(accession)
	for _, p := range prefixes {
		if strings.HasPrefix(accession, p.prefix) {
			ranks := make([]string, len(p.ranks))
			copy(ranks, p.ranks)
			return ranks, nil
		}
	}
	return nil, ErrNotFound
}

// A Chain is a list of lookups
// tried in order.
// It returns the first lineage found.
type Chain []Lookup

// Lookup returns the lineage of the first lookup
// that knows the accession.
// If every lookup returns ErrNotFound,
// it returns ErrNotFound,
// otherwise it returns the last error found.
func (c Chain) Lookup(ctx context.Context, accession string) ([]string, error) {
	var last error
	for _, l := range c {
		ranks, err := l.Lookup(ctx, accession)
		if err == nil {
			return ranks, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			last = err
		}
	}
	if last != nil {
		return nil, last
	}
	return nil, ErrNotFound
}

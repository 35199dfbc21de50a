// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package gbif implements a local taxonomy lookup
// using a GBIF taxonomy file
// and a table of organism names by accession.
package gbif

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	gbtax "github.com/js-arias/gbifer/taxonomy"
	"github.com/js-arias/placetree/taxonomy"
)

// maxDepth is the maximum number of ancestors
// read for a taxon.
const maxDepth = 100

// Kingdoms of GBIF that are eukaryotes.
var eukaryotes = map[string]bool{
	"Animalia":  true,
	"Chromista": true,
	"Fungi":     true,
	"Plantae":   true,
	"Protozoa":  true,
}

// A Lookup resolves the lineage of an accession
// by the name of its organism.
type Lookup struct {
	tx        *gbtax.Taxonomy
	organisms map[string]string
}

// New returns a new lookup
// from a taxonomy
// and a table of organism names by accession.
func New(tx *gbtax.Taxonomy, organisms map[string]string) *Lookup {
	orgs := make(map[string]string, len(organisms))
	for acc, org := range organisms {
		orgs[taxonomy.Accession(acc)] = org
	}
	return &Lookup{
		tx:        tx,
		organisms: orgs,
	}
}

// ReadTaxonomy reads a taxonomy
// in the TSV format used by gbifer.
func ReadTaxonomy(r io.Reader) (*gbtax.Taxonomy, error) {
	return gbtax.Read(r)
}

// Lookup returns the lineage of the organism of an accession,
// from the kingdom (or domain) to the taxon.
// Eukaryote kingdoms are preceded by the Eukaryota domain.
func (l *Lookup) Lookup(ctx context.Context, accession string) ([]string, error) {
	org, ok := l.organisms[taxonomy.Accession(accession)]
	if !ok {
		return nil, taxonomy.ErrNotFound
	}

	id, ok := l.taxonID(org)
	if !ok {
		return nil, taxonomy.ErrNotFound
	}

	var ranks []string
	for i := 0; i < maxDepth && id != 0; i++ {
		tax := l.tx.Taxon(id)
		if tax.ID == 0 {
			break
		}
		ranks = append(ranks, tax.Name)
		id = tax.Parent
	}
	if len(ranks) == 0 {
		return nil, taxonomy.ErrNotFound
	}

	// from root to taxon
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	if eukaryotes[ranks[0]] {
		ranks = append([]string{"Eukaryota"}, ranks...)
	}
	return ranks, nil
}

// TaxonID returns the ID of the accepted taxon
// of an organism name.
// If the name is not in the taxonomy,
// the genus (the first word of the name)
// is searched.
func (l *Lookup) taxonID(name string) (int64, bool) {
	name = gbtax.Canon(name)
	if name == "" {
		return 0, false
	}
	if ids := l.tx.ByName(name); len(ids) > 0 {
		return l.tx.AcceptedAndRanked(ids[0]).ID, true
	}

	genus, _, ok := strings.Cut(name, " ")
	if !ok {
		return 0, false
	}
	if ids := l.tx.ByName(genus); len(ids) > 0 {
		return l.tx.AcceptedAndRanked(ids[0]).ID, true
	}
	return 0, false
}

// ReadOrganisms reads a table of organism names by accession.
//
// The table is a tab-delimited file
// with the fields:
//
//	-accession, the accession of the sequence
//	-organism, the scientific name of the organism
//
// Here is an example file:
//
//	accession	organism
//	WP_012345678	Escherichia coli
//	XP_000000001	Homo sapiens
func ReadOrganisms(r io.Reader) (map[string]string, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'
	tab.LazyQuotes = true

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(h))
		fields[h] = i
	}
	for _, h := range []string{"accession", "organism"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	orgs := make(map[string]string)
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		acc := taxonomy.Accession(row[fields["accession"]])
		org := strings.Join(strings.Fields(row[fields["organism"]]), " ")
		if acc == "" || org == "" {
			continue
		}
		orgs[acc] = org
	}
	return orgs, nil
}

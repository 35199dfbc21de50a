// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package taxonomy attaches taxonomic lineages
// to the leaves of a gene tree.
//
// Lineages are retrieved by accession
// from an external service,
// through the Lookup interface,
// and stored in a Cache
// shared by all the trees of a run.
package taxonomy

import (
	"fmt"
	"strings"
	"unicode"
)

// Unknown is the domain used
// for a lineage without ranks.
const Unknown = "Unknown"

// Status indicates how a lineage was obtained.
type Status int

// Lineage status values.
const (
	// NoData indicates that no lookup was done.
	NoData Status = iota

	// Resolved indicates a lineage found by the lookup.
	Resolved

	// NotFound indicates that the lookup service
	// has no record of the accession.
	NotFound

	// Failed indicates that the lookup failed
	// after all retries.
	Failed
)

var statusNames = map[Status]string{
	NoData:   "no-data",
	Resolved: "resolved",
	NotFound: "not-found",
	Failed:   "failed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) {
	n, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid lineage status %d", int(s))
	}
	return []byte(n), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus returns the status with the given name.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return NoData, fmt.Errorf("unknown lineage status %q", name)
}

// A Lineage is an ordered list of taxonomic rank names,
// from domain to species,
// possibly empty or partially populated.
type Lineage struct {
	Ranks  []string
	Status Status
}

// Domain returns the first rank of the lineage,
// or Unknown if the lineage is empty.
func (l Lineage) Domain() string {
	if len(l.Ranks) == 0 {
		return Unknown
	}
	return l.Ranks[0]
}

// String returns the lineage
// as a semicolon separated list.
func (l Lineage) String() string {
	return strings.Join(l.Ranks, "; ")
}

// Ranks splits a semicolon separated lineage
// (as used by NCBI)
// into its rank names.
// Empty ranks are ignored.
func Ranks(lineage string) []string {
	var ranks []string
	for _, r := range strings.Split(lineage, ";") {
		r = strings.Join(strings.Fields(r), " ")
		if r == "" {
			continue
		}
		ranks = append(ranks, r)
	}
	return ranks
}

// Accession returns the accession of a sequence identifier
// without its version suffix
// (e.g. WP_012345678.1 -> WP_012345678).
func Accession(id string) string {
	id = strings.TrimSpace(id)
	i := strings.LastIndexByte(id, '.')
	if i <= 0 || i == len(id)-1 {
		return id
	}
	for _, r := range id[i+1:] {
		if !unicode.IsDigit(r) {
			return id
		}
	}
	return id[:i]
}

// Other is the category of a lineage
// outside the main categories.
const Other = "Other"

// Categories are the main categories (domains)
// used to classify a lineage.
var Categories = []string{
	"Bacteria",
	"Archaea",
	"Eukaryota",
	"Viruses",
}

// Category returns the domain of the lineage
// if it is one of the main categories,
// or Other.
func (l Lineage) Category() string {
	d := l.Domain()
	for _, c := range Categories {
		if d == c {
			return c
		}
	}
	return Other
}

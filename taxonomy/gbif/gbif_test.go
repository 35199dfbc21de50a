// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package gbif_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/js-arias/placetree/taxonomy"
	"github.com/js-arias/placetree/taxonomy/gbif"
)

func TestReadOrganisms(t *testing.T) {
	in := `# organisms
Accession	Organism	source
WP_012345678.1	Escherichia   coli	refseq
XP_000000001	Homo sapiens	refseq
MBE0000001		genbank
`
	got, err := gbif.ReadOrganisms(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"WP_012345678": "Escherichia coli",
		"XP_000000001": "Homo sapiens",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("organisms: got %v, want %v", got, want)
	}

	if _, err := gbif.ReadOrganisms(strings.NewReader("accession\tname\n")); err == nil {
		t.Errorf("missing field: expecting error")
	}
}

func TestLookupUnknownAccession(t *testing.T) {
	l := gbif.New(nil, map[string]string{"WP_1.1": "Escherichia coli"})
	if _, err := l.Lookup(context.Background(), "XP_2"); !errors.Is(err, taxonomy.ErrNotFound) {
		t.Errorf("got error %v, want %v", err, taxonomy.ErrNotFound)
	}
}

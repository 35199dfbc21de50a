// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package itol_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/itol"
	"github.com/js-arias/placetree/taxonomy"
)

func readTree(t testing.TB) (*placetree.Tree, map[string]taxonomy.Lineage) {
	t.Helper()
	tree, err := placetree.ReadNewick(strings.NewReader("((Q1:0.1,(B1:0.1,B2:0.1):0.1):0.1,(E1:0.1,E2:0.2):0.1);"), "itol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lineages := map[string]taxonomy.Lineage{
		"B1": {Ranks: []string{"Bacteria"}},
		"B2": {Ranks: []string{"Bacteria", "Bacillota"}},
		"E1": {Ranks: []string{"Eukaryota"}},
		"E2": {Ranks: []string{"Eukaryota", "Fungi"}},
	}
	return tree, lineages
}

func TestCategories(t *testing.T) {
	tree, lineages := readTree(t)
	cats := itol.Categories(tree, lineages)

	// node IDs are assigned in reading order
	want := []string{
		taxonomy.Other, // root
		taxonomy.Other, // (Q1,(B1,B2))
		taxonomy.Other, // Q1
		"Bacteria",     // (B1,B2)
		"Bacteria",     // B1
		"Bacteria",     // B2
		"Eukaryota",    // (E1,E2)
		"Eukaryota",    // E1
		"Eukaryota",    // E2
	}
	if !reflect.DeepEqual(cats, want) {
		t.Errorf("categories: got %v, want %v", cats, want)
	}
}

func TestWrite(t *testing.T) {
	tree, lineages := readTree(t)
	cats := itol.Categories(tree, lineages)

	var w bytes.Buffer
	if err := itol.WriteLabels(&w, tree, cats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "LABELS\nSEPARATOR TAB\nDATA\nQ1\tOther\nB1\tBacteria\nB2\tBacteria\nE1\tEukaryota\nE2\tEukaryota\n"
	if w.String() != want {
		t.Errorf("labels: got\n%s\nwant\n%s", w.String(), want)
	}

	w.Reset()
	if err := itol.WriteColors(&w, tree, cats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = "TREE_COLORS\nSEPARATOR TAB\nDATA\n" +
		"Q1|B2\tbranch\t#808080\tnormal\t1\n" +
		"Q1\tbranch\t#808080\tnormal\t1\n" +
		"B1|B2\tbranch\t#FF0000\tnormal\t1\n" +
		"B1\tbranch\t#FF0000\tnormal\t1\n" +
		"B2\tbranch\t#FF0000\tnormal\t1\n" +
		"E1|E2\tbranch\t#0000FF\tnormal\t1\n" +
		"E1\tbranch\t#0000FF\tnormal\t1\n" +
		"E2\tbranch\t#0000FF\tnormal\t1\n"
	if w.String() != want {
		t.Errorf("colors: got\n%s\nwant\n%s", w.String(), want)
	}

	w.Reset()
	if err := itol.WriteQueries(&w, tree, []string{"Q1", "Q9"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(w.String(), "DATASET_SYMBOL\n") || !strings.HasSuffix(w.String(), "DATA\nQ1\t1\t#FF0000\n") {
		t.Errorf("queries: got\n%s", w.String())
	}
}

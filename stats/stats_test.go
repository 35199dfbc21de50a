// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package stats_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/stats"
	"github.com/js-arias/placetree/taxonomy"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute(t *testing.T) {
	tree, err := placetree.ReadNewick(strings.NewReader("((Q1:0.1,B1:0.1):0.1,((Q2:0.1,B2:0.2):0.1,(E1:0.1,B3:0.4):0.1):0.1);"), "stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bact := taxonomy.Lineage{Ranks: []string{"Bacteria", "Bacillota"}, Status: taxonomy.Resolved}
	lineages := map[string]taxonomy.Lineage{
		"B1": bact,
		"B2": bact,
		"B3": bact,
		"E1": {Ranks: []string{"Eukaryota"}, Status: taxonomy.Resolved},
	}

	qs, err := stats.Compute(tree, []string{"Q1", "Q2"}, lineages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d queries, want 2", len(qs))
	}

	q := qs[0]
	if q.Query != "Q1" || q.Nearest != "Q2" || !closeTo(q.Distance, 0.5) {
		t.Errorf("nearest query: got %s %s %v, want Q1 Q2 0.5", q.Query, q.Nearest, q.Distance)
	}
	if !closeTo(q.Mean, 0.5) || !closeTo(q.Mean3, 0.5) || !closeTo(q.Std3, 0) {
		t.Errorf("query distances: got mean %v mean3 %v std3 %v", q.Mean, q.Mean3, q.Std3)
	}

	// distances from Q1: B1 0.2, B2 0.6, B3 0.8
	b := q.Categories["Bacteria"]
	if b.Nearest != "B1" || !closeTo(b.Distance, 0.2) || b.Lineage.Domain() != "Bacteria" {
		t.Errorf("nearest bacteria: got %s %v", b.Nearest, b.Distance)
	}
	if !closeTo(b.Mean, 16.0/30) {
		t.Errorf("bacteria mean: got %v, want %v", b.Mean, 16.0/30)
	}
	wantStd := math.Sqrt(((0.2-16.0/30)*(0.2-16.0/30) + (0.6-16.0/30)*(0.6-16.0/30) + (0.8-16.0/30)*(0.8-16.0/30)) / 3)
	if !closeTo(b.Std, wantStd) || !closeTo(b.Std3, wantStd) {
		t.Errorf("bacteria std: got %v, %v, want %v", b.Std, b.Std3, wantStd)
	}

	e := q.Categories["Eukaryota"]
	if e.Nearest != "E1" || !closeTo(e.Distance, 0.5) {
		t.Errorf("nearest eukaryote: got %s %v", e.Nearest, e.Distance)
	}
	if !math.IsNaN(e.Mean3) {
		t.Errorf("eukaryote mean of 3 closest: got %v, want NaN", e.Mean3)
	}

	a := q.Categories["Archaea"]
	if a.Nearest != "" || !math.IsNaN(a.Distance) || !math.IsNaN(a.Mean) {
		t.Errorf("archaea: got %+v, want undefined", a)
	}

	var w bytes.Buffer
	if err := stats.WriteTSV(&w, qs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(w.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("tsv: got %d lines, want 3", len(lines))
	}
	head := strings.Split(lines[0], "\t")
	row := strings.Split(lines[1], "\t")
	if len(head) != len(stats.Header()) || len(row) != len(head) {
		t.Errorf("tsv: got %d fields and %d values, want %d", len(head), len(row), len(stats.Header()))
	}
	fields := make(map[string]string)
	for i, h := range head {
		fields[h] = row[i]
	}
	tests := map[string]string{
		"query":                          "Q1",
		"nearest_query_distance":         "0.500000",
		"nearest_Bacteria_distance":      "0.200000",
		"nearest_Bacteria_taxonomy":      "Bacteria; Bacillota",
		"nearest_Archaea_distance":       "na",
		"Eukaryota_mean_distance_3_closest": "na",
	}
	for f, v := range tests {
		if fields[f] != v {
			t.Errorf("tsv: field %q: got %q, want %q", f, fields[f], v)
		}
	}
}

func TestComputeUnknown(t *testing.T) {
	tree, err := placetree.ReadNewick(strings.NewReader("((Q1:0.1,B1:0.1):0.1,B2:0.1);"), "stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stats.Compute(tree, []string{"Q9"}, nil); !errors.Is(err, placetree.ErrUnknownLeaf) {
		t.Errorf("got error %v, want %v", err, placetree.ErrUnknownLeaf)
	}

	qs, err := stats.Compute(tree, []string{"Q1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(qs[0].Distance) || qs[0].Nearest != "" {
		t.Errorf("single query: got nearest %q %v, want undefined", qs[0].Nearest, qs[0].Distance)
	}
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package cli_test

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/js-arias/placetree/internal/cli"
	"github.com/js-arias/placetree/internal/config"
	"github.com/js-arias/placetree/taxonomy"
	"github.com/js-arias/placetree/taxonomy/ncbi"
)

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "table.tab")
	in := "accession\tlineage\nMBE0000001.1\tArchaea; Euryarchaeota\n"
	if err := os.WriteFile(table, []byte(in), 0o644); err != nil {
		t.Fatalf("unable to write table: %v", err)
	}

	tests := map[string]struct {
		source string
		want   any
	}{
		"none":   {source: "none"},
		"prefix": {source: "prefix", want: taxonomy.Prefix{}},
		"ncbi":   {source: "ncbi", want: &ncbi.Client{}},
		"table":  {source: "table", want: taxonomy.Table{}},
		"chain":  {source: "table, prefix", want: taxonomy.Chain{}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var tx cli.Taxonomy
			fs := flag.NewFlagSet(name, flag.ContinueOnError)
			tx.SetFlags(fs, config.Config{}, "none")
			if err := fs.Parse([]string{"--taxonomy", test.source, "--table", table}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			l, err := tx.Lookup(nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if test.want == nil {
				if l != nil {
					t.Errorf("lookup: got %T, want nil", l)
				}
				return
			}
			if reflect.TypeOf(l) != reflect.TypeOf(test.want) {
				t.Errorf("lookup: got %T, want %T", l, test.want)
			}
		})
	}
}

func TestLookupChain(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "table.tab")
	in := "accession\tlineage\nWP_000000001\tArchaea; Euryarchaeota\n"
	if err := os.WriteFile(table, []byte(in), 0o644); err != nil {
		t.Fatalf("unable to write table: %v", err)
	}

	tx := cli.Taxonomy{Source: "table,prefix", Table: table}
	l, err := tx.Lookup(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	ranks, err := l.Lookup(ctx, "WP_000000001.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Archaea", "Euryarchaeota"}; !reflect.DeepEqual(ranks, want) {
		t.Errorf("table lineage: got %q, want %q", ranks, want)
	}
	ranks, err = l.Lookup(ctx, "WP_000000002.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Bacteria"}; !reflect.DeepEqual(ranks, want) {
		t.Errorf("prefix lineage: got %q, want %q", ranks, want)
	}
}

func TestLookupError(t *testing.T) {
	tests := map[string]cli.Taxonomy{
		"unknown":     {Source: "itis"},
		"no table":    {Source: "table"},
		"no gbif":     {Source: "gbif"},
		"bad table":   {Source: "table", Table: filepath.Join(t.TempDir(), "none.tab")},
		"bad chain":   {Source: "prefix,itis"},
		"no organism": {Source: "gbif", GBIF: "taxonomy.tab"},
	}

	for name, tx := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tx.Lookup(nil); err == nil {
				t.Errorf("expecting error")
			}
		})
	}
}

func TestCache(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cache.tab")
	tx := cli.Taxonomy{Source: "prefix", Cache: file}

	// a missing cache file is not an error
	c, err := tx.OpenCache(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := tx.Merger(c, 2)
	if _, err := m.Resolve(context.Background(), []string{"WP_1", "ZZ_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.SaveCache(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx.Source = "none"
	nc, err := tx.OpenCache(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.Len() != 2 {
		t.Errorf("cache size: got %d, want 2", nc.Len())
	}
	lin, _ := nc.Lineage(context.Background(), "WP_1")
	if lin.Status != taxonomy.Resolved {
		t.Errorf("cached lineage: got status %v, want %v", lin.Status, taxonomy.Resolved)
	}
}

func TestQueries(t *testing.T) {
	var q cli.Queries
	if _, err := q.Set(); err == nil {
		t.Errorf("expecting error on empty query set")
	}

	q.Prefixes = "q_, MBE"
	qs, err := q.Set()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"q_", "MBE"}; !reflect.DeepEqual(qs.Prefixes, want) {
		t.Errorf("prefixes: got %q, want %q", qs.Prefixes, want)
	}
}

func TestRate(t *testing.T) {
	env := config.Config{
		NCBI: config.NCBIConfig{Rate: config.DefaultRate},
	}
	envRate := config.Config{
		NCBI: config.NCBIConfig{Rate: 2, RateSet: true},
	}

	tests := map[string]struct {
		cfg  config.Config
		args []string
		want float64
	}{
		"no key":           {cfg: env, want: config.DefaultRate},
		"key flag":         {cfg: env, args: []string{"--api-key", "secret"}, want: config.KeyRate},
		"key and rate":     {cfg: env, args: []string{"--api-key", "secret", "--rate", "5"}, want: 5},
		"key and env":      {cfg: envRate, args: []string{"--api-key", "secret"}, want: 2},
		"rate without key": {cfg: env, args: []string{"--rate", "1"}, want: 1},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var tx cli.Taxonomy
			fs := flag.NewFlagSet(name, flag.ContinueOnError)
			tx.SetFlags(fs, test.cfg, "ncbi")
			if err := fs.Parse(test.args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := tx.Rate(); got != test.want {
				t.Errorf("rate: got %v, want %v", got, test.want)
			}
		})
	}
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package place_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/neighbor"
	"github.com/js-arias/placetree/place"
	"github.com/js-arias/placetree/report"
	"github.com/js-arias/placetree/taxonomy"
)

var trees = map[string]string{
	"OG0001.nwk": "((Hype|g1:0.1,WP_1.1:0.1):0.1,(XP_2.1:0.1,AR_3.1:0.2):0.1);",
	"OG0002.nwk": "((Hype|g2:0.1,WP_1.1:0.2):0.1,(Hype|g3:0.1,AR_3.1:0.2):0.1);",
	"OG0003.nwk": "((Hype|g4:0.1,WP_1.1:0.2):0.1,(Hype|g5:0.1,AR_3.1:0.2);",
	"OG0004.nex": `#NEXUS
begin trees;
	tree og4 = [&R] ((Hype|g6:0.1,XP_2.1:0.1):0.1,WP_1.1:0.3);
end;
`,
}

func writeTrees(t testing.TB) []place.Sample {
	t.Helper()
	dir := t.TempDir()

	var samples []place.Sample
	for _, name := range []string{"OG0001.nwk", "OG0002.nwk", "OG0003.nwk", "OG0004.nex"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(trees[name]), 0644); err != nil {
			t.Fatalf("unable to write %q: %v", p, err)
		}
		samples = append(samples, place.Sample{Path: p})
	}
	return samples
}

func newConfig() place.Config {
	opts := neighbor.DefaultOptions()
	opts.N = 2
	opts.ExcludeQueryGenomes = true
	return place.Config{
		Queries: neighbor.ParseQuerySet("Hype"),
		Options: opts,
		Merger: &taxonomy.Merger{
			Cache: taxonomy.NewCache(taxonomy.Table{
				"WP_1": {"Bacteria"},
				"XP_2": {"Eukaryota"},
				"AR_3": {"Archaea"},
			}, nil),
		},
		Workers: 2,
	}
}

func TestRun(t *testing.T) {
	samples := writeTrees(t)

	cfg := newConfig()
	var mu sync.Mutex
	var emitted []string
	cfg.Emit = func(r *report.Report) error {
		mu.Lock()
		defer mu.Unlock()
		emitted = append(emitted, r.Name)
		return nil
	}

	c, err := place.Run(context.Background(), samples, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, o := range c.Orthogroups {
		names = append(names, o.Name)
	}
	want := []string{"OG0001", "OG0002", "OG0004"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("samples: got %v, want %v", names, want)
	}
	if !reflect.DeepEqual(emitted, want) {
		t.Errorf("emitted: got %v, want %v", emitted, want)
	}

	if len(c.Failed) != 1 || c.Failed[0].Name != "OG0003" {
		t.Errorf("failed: got %v, want OG0003", c.Failed)
	}

	if c.TotalQueries != 4 {
		t.Errorf("total queries: got %d, want 4", c.TotalQueries)
	}
	wantSum := report.Summary{
		Domains: map[string]int{
			"Bacteria":  4,
			"Eukaryota": 2,
			"Archaea":   2,
		},
		Total: 8,
	}
	if !reflect.DeepEqual(c.Overall, wantSum) {
		t.Errorf("summary: got %v, want %v", c.Overall, wantSum)
	}
}

func TestRunCancel(t *testing.T) {
	samples := writeTrees(t)
	cfg := newConfig()
	emitted := false
	cfg.Emit = func(r *report.Report) error {
		emitted = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := place.Run(ctx, samples, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want %v", err, context.Canceled)
	}
	if c != nil {
		t.Errorf("cancelled run: got a combined report")
	}
	if emitted {
		t.Errorf("cancelled run: reports emitted")
	}
}

func TestReadTree(t *testing.T) {
	samples := writeTrees(t)

	if _, err := place.ReadTree(samples[2].Path, "OG0003"); !place.IsParseError(err) {
		t.Errorf("got error %v, want a parse error", err)
	}
	if _, err := place.ReadTree(samples[2].Path, "OG0003"); !errors.Is(err, placetree.ErrUnbalanced) {
		t.Errorf("got error %v, want %v", err, placetree.ErrUnbalanced)
	}

	tree, err := place.ReadTree(samples[3].Path, "OG0004")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tree.Leaf("Hype|g6"); !ok {
		t.Errorf("leaf %q not found", "Hype|g6")
	}

	tab := filepath.Join(t.TempDir(), "OG0005.tab")
	in := `tree	node	parent	length	label
OG0005	0	-1	0	
OG0005	1	0	0.1	q_1
OG0005	2	0	0.2	WP_1
`
	if err := os.WriteFile(tab, []byte(in), 0o644); err != nil {
		t.Fatalf("unable to write tree: %v", err)
	}
	tree, err = place.ReadTree(tab, "OG0005")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d, err := tree.Distance("q_1", "WP_1"); err != nil || math.Abs(d-0.3) > 1e-9 {
		t.Errorf("distance: got %.6f (err %v), want 0.3", d, err)
	}
}

func TestSampleName(t *testing.T) {
	tests := map[string]string{
		"OG0001.nwk":                 "OG0001",
		"/data/trees/OG0002.treefile": "OG0002",
		"tree":                       "tree",
	}
	for in, want := range tests {
		if got := place.SampleName(in); got != want {
			t.Errorf("sample name %q: got %q, want %q", in, got, want)
		}
	}
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package placetree_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/js-arias/placetree"
)

var nexusTest = `#NEXUS

Begin taxa;
	Dimensions ntax=4;
	Taxlabels
		Hype_g1
		WP_000001.1
		XP_000002.1
		'KAF 3'
	;
End;

Begin trees;
	Translate
		1 Hype_g1,
		2 WP_000001.1,
		3 XP_000002.1,
		4 'KAF 3'
		;
	tree * gene1 = [&R] ((1:0.1,2:0.2):0.05,(3:0.1,4:0.1):0.3);
	tree gene2 = [&U] ((1:0.1,3:0.2):0.05,(2:0.1,4:0.1):0.3);
End;
`

func TestNexus(t *testing.T) {
	want := treeTest{
		name: "gene1",
		nodes: []node{
			{id: 0, parent: -1, children: []int{1, 4}},
			{id: 1, parent: 0, children: []int{2, 3}, brLen: 0.05, depth: 1},
			{id: 2, parent: 1, label: "Hype_g1", brLen: 0.1, depth: 2},
			{id: 3, parent: 1, label: "WP_000001.1", brLen: 0.2, depth: 2},
			{id: 4, parent: 0, children: []int{5, 6}, brLen: 0.3, depth: 1},
			{id: 5, parent: 4, label: "XP_000002.1", brLen: 0.1, depth: 2},
			{id: 6, parent: 4, label: "KAF 3", brLen: 0.1, depth: 2},
		},
		labels: []string{"Hype_g1", "WP_000001.1", "XP_000002.1", "KAF 3"},
	}

	c, err := placetree.Nexus(strings.NewReader(nexusTest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("got %d trees, want %d", c.Len(), 2)
	}
	testTree(t, c.Tree("gene1"), want)

	second := c.Tree("gene2")
	if second == nil {
		t.Fatalf("tree %q not found", "gene2")
	}
	d, err := second.Distance("Hype_g1", "XP_000002.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closeTo(d, 0.3) {
		t.Errorf("distance: got %.6f, want %.6f", d, 0.3)
	}
}

func TestNexusError(t *testing.T) {
	tests := map[string]struct {
		in  string
		err error
	}{
		"empty": {
			err: placetree.ErrNotNexus,
		},
		"newick file": {
			in:  "((A:1,B:1),C:2);",
			err: placetree.ErrNotNexus,
		},
		"without trees": {
			in:  "#NEXUS\nbegin taxa;\n\tdimensions ntax=2;\nend;\n",
			err: placetree.ErrNotNewick,
		},
		"empty trees block": {
			in:  "#NEXUS\nbegin trees;\nend;\n",
			err: placetree.ErrNotNewick,
		},
		"incomplete block": {
			in:  "#NEXUS\nbegin taxa;\n\tdimensions ntax=2;\n",
			err: placetree.ErrNexusBlock,
		},
		"unclosed trees block": {
			in:  "#NEXUS\nbegin trees;\n\ttree one = (A:1,B:1);\n",
			err: placetree.ErrNexusBlock,
		},
		"tree without name": {
			in:  "#NEXUS\nbegin trees;\n\ttree (A:1,B:1);\nend;\n",
			err: placetree.ErrNexusBlock,
		},
		"bad translation": {
			in:  "#NEXUS\nbegin trees;\n\ttranslate 1 A, 3 B;\n\ttree one = (1:1,2:1);\nend;\n",
			err: placetree.ErrTranslation,
		},
		"unclosed comment": {
			in:  "#NEXUS\n[a comment\nbegin trees;\n",
			err: placetree.ErrUnbalanced,
		},
		"bad tree": {
			in:  "#NEXUS\nbegin trees;\n\ttree one = (A:1 B:1);\nend;\n",
			err: placetree.ErrMissingComma,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := placetree.Nexus(strings.NewReader(test.in))
			if err == nil {
				t.Fatalf("expecting error %q", test.err)
			}
			if !errors.Is(err, test.err) {
				t.Errorf("got error %q, want %q", err, test.err)
			}
			var pe *placetree.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("got error %T, want *ParseError", err)
			}
		})
	}
}

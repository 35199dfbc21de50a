// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package neighbor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/js-arias/placetree"
	"github.com/shenwei356/bio/seqio/fastx"
)

// A QuerySet defines the query leaves of a tree.
type QuerySet struct {
	// Labels are query identifiers.
	// An identifier matches a leaf
	// if the leaf label is the identifier,
	// its first field,
	// or its part before the first "|".
	Labels []string

	// Every leaf with a label
	// that starts with any prefix is a query.
	Prefixes []string
}

// ParseQuerySet returns a query set
// from a comma separated list of prefixes.
func ParseQuerySet(prefixes string) QuerySet {
	var qs QuerySet
	for _, p := range strings.Split(prefixes, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		qs.Prefixes = append(qs.Prefixes, p)
	}
	return qs
}

// ReadQueryFASTA reads the query identifiers
// from the headers of a FASTA file.
func ReadQueryFASTA(file string) (QuerySet, error) {
	r, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return QuerySet{}, fmt.Errorf("on file %q: %v", file, err)
	}
	defer r.Close()

	var qs QuerySet
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return QuerySet{}, fmt.Errorf("on file %q: %v", file, err)
		}
		id := strings.TrimSpace(string(rec.Name))
		if id == "" {
			continue
		}
		qs.Labels = append(qs.Labels, id)
	}
	return qs, nil
}

// Len returns the number of labels and prefixes
// of the query set.
func (qs QuerySet) Len() int {
	return len(qs.Labels) + len(qs.Prefixes)
}

// Match returns true if a label starts with
// one of the prefixes of the query set.
func (qs QuerySet) Match(label string) bool {
	for _, p := range qs.Prefixes {
		if strings.HasPrefix(label, p) {
			return true
		}
	}
	return false
}

// Resolve returns the labels of the query leaves of a tree,
// in leaf order,
// and the query identifiers not found in the tree.
func (qs QuerySet) Resolve(t *placetree.Tree) (labels, missing []string) {
	queries, missing := qs.resolve(t)
	for _, q := range queries {
		labels = append(labels, t.Label(q))
	}
	return labels, missing
}

// Resolve returns the query leaves of a tree,
// in leaf order,
// with a single leaf per distinct label,
// and the query labels not found in the tree.
func (qs QuerySet) resolve(t *placetree.Tree) (queries []int, missing []string) {
	exact := make(map[string]bool)
	for _, l := range qs.Labels {
		v, ok := variation(t, l)
		if !ok {
			missing = append(missing, l)
			continue
		}
		exact[v] = true
	}

	seen := make(map[string]bool)
	for _, id := range t.Leaves() {
		label := t.Label(id)
		if seen[label] {
			continue
		}
		if !exact[label] && !qs.Match(label) {
			continue
		}
		seen[label] = true

		// a repeated label resolves to its first leaf
		q, _ := t.Leaf(label)
		queries = append(queries, q)
	}
	return queries, missing
}

// Variation returns the form of a query identifier
// found in the tree.
func variation(t *placetree.Tree, id string) (string, bool) {
	id = strings.TrimSpace(id)
	vs := []string{id}
	if f := strings.Fields(id); len(f) > 0 {
		vs = append(vs, f[0])
	}
	if g, _, ok := strings.Cut(id, "|"); ok {
		vs = append(vs, g)
	}
	for _, v := range vs {
		if _, ok := t.Leaf(v); ok {
			return v, true
		}
	}
	return "", false
}

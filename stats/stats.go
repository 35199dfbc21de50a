// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package stats implements distance statistics
// of the query leaves of a gene tree.
package stats

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/js-arias/placetree"
	"github.com/js-arias/placetree/taxonomy"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// closest is the number of closest leaves
// used for the mean of the closest distances.
const closest = 3

// Category are the distance statistics
// between a query and the leaves of a category.
// Undefined values are NaN.
type Category struct {
	// Nearest leaf of the category.
	Nearest  string
	Distance float64
	Lineage  taxonomy.Lineage

	// Mean and standard deviation
	// of the distance to all the leaves
	// of the category.
	Mean float64
	Std  float64

	// Mean and standard deviation
	// of the distance to the three closest leaves
	// of the category.
	Mean3 float64
	Std3  float64
}

// Query are the distance statistics of a query.
// Undefined values are NaN.
type Query struct {
	Query string

	// Nearest other query
	Nearest  string
	Distance float64

	// Mean and standard deviation
	// of the distance to the three closest queries.
	Mean3 float64
	Std3  float64

	// Mean distance to all other queries.
	Mean float64

	// Statistics by category
	Categories map[string]Category
}

// Compute returns the statistics of the queries of a tree.
// Lineages are the lineages of the leaves,
// by label.
// Leaves without a lineage,
// or with a category outside the main categories,
// and the queries,
// are not counted in any category.
func Compute(t *placetree.Tree, queries []string, lineages map[string]taxonomy.Lineage) ([]Query, error) {
	isQuery := make(map[string]bool, len(queries))
	for _, q := range queries {
		if _, ok := t.Leaf(q); !ok {
			return nil, fmt.Errorf("%w: %s", placetree.ErrUnknownLeaf, q)
		}
		isQuery[q] = true
	}

	// labels of each category
	cats := make(map[string][]string)
	for _, l := range uniqueLabels(t) {
		if isQuery[l] {
			continue
		}
		lin, ok := lineages[l]
		if !ok {
			continue
		}
		c := lin.Category()
		if c == taxonomy.Other {
			continue
		}
		cats[c] = append(cats[c], l)
	}

	res := make([]Query, 0, len(queries))
	for _, q := range queries {
		qs := Query{
			Query:      q,
			Categories: make(map[string]Category, len(taxonomy.Categories)),
		}

		var others []string
		for _, o := range queries {
			if o != q {
				others = append(others, o)
			}
		}
		near := nearest(t, q, others)
		qs.Nearest, qs.Distance = "", math.NaN()
		if len(near) > 0 {
			qs.Nearest, qs.Distance = near[0].label, near[0].dist
		}
		qs.Mean3, qs.Std3 = meanStd(near, closest, 1)
		qs.Mean, _ = meanStd(near, len(near), 1)

		for _, c := range taxonomy.Categories {
			near := nearest(t, q, cats[c])
			cs := Category{
				Distance: math.NaN(),
			}
			if len(near) > 0 {
				cs.Nearest = near[0].label
				cs.Distance = near[0].dist
				cs.Lineage = lineages[cs.Nearest]
			}
			cs.Mean, cs.Std = meanStd(near, len(near), 1)
			cs.Mean3, cs.Std3 = meanStd(near, closest, closest)
			qs.Categories[c] = cs
		}
		res = append(res, qs)
	}
	return res, nil
}

type leafDist struct {
	label string
	dist  float64
}

// Nearest returns the leaves ordered by distance to a query.
func nearest(t *placetree.Tree, q string, labels []string) []leafDist {
	ld := make([]leafDist, 0, len(labels))
	for _, l := range labels {
		d, err := t.Distance(q, l)
		if err != nil {
			continue
		}
		ld = append(ld, leafDist{label: l, dist: d})
	}
	slices.SortFunc(ld, func(a, b leafDist) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})
	return ld
}

// MeanStd returns the mean and the population standard deviation
// of the first n distances.
// It returns NaN if there are less than minN distances.
func meanStd(ld []leafDist, n, minN int) (mean, std float64) {
	if n > len(ld) {
		n = len(ld)
	}
	if n < minN || n == 0 {
		return math.NaN(), math.NaN()
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = ld[i].dist
	}
	return stat.PopMeanStdDev(x, nil)
}

func uniqueLabels(t *placetree.Tree) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, l := range t.Labels() {
		if seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}

// Header returns the fields of the statistics table.
func Header() []string {
	h := []string{
		"query",
		"nearest_query",
		"nearest_query_distance",
		"mean_distance_3_closest_queries",
		"std_distance_3_closest_queries",
		"avg_distance_all_queries",
	}
	for _, c := range taxonomy.Categories {
		h = append(h, "nearest_"+c+"_distance")
	}
	for _, c := range taxonomy.Categories {
		h = append(h, "nearest_"+c+"_taxonomy")
	}
	for _, c := range taxonomy.Categories {
		h = append(h, c+"_mean_distance")
	}
	for _, c := range taxonomy.Categories {
		h = append(h, c+"_std_distance")
	}
	for _, c := range taxonomy.Categories {
		h = append(h, c+"_mean_distance_3_closest")
	}
	for _, c := range taxonomy.Categories {
		h = append(h, c+"_std_distance_3_closest")
	}
	return h
}

// WriteTSV writes the statistics
// as a tab-delimited file.
// Undefined values are written as "na".
func WriteTSV(w io.Writer, qs []Query) error {
	bw := bufio.NewWriter(w)
	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = false

	if err := tab.Write(Header()); err != nil {
		return fmt.Errorf("unable to write header: %v", err)
	}
	for _, q := range qs {
		row := []string{
			q.Query,
			q.Nearest,
			formatFloat(q.Distance),
			formatFloat(q.Mean3),
			formatFloat(q.Std3),
			formatFloat(q.Mean),
		}
		for _, c := range taxonomy.Categories {
			row = append(row, formatFloat(q.Categories[c].Distance))
		}
		for _, c := range taxonomy.Categories {
			row = append(row, q.Categories[c].Lineage.String())
		}
		for _, c := range taxonomy.Categories {
			row = append(row, formatFloat(q.Categories[c].Mean))
		}
		for _, c := range taxonomy.Categories {
			row = append(row, formatFloat(q.Categories[c].Std))
		}
		for _, c := range taxonomy.Categories {
			row = append(row, formatFloat(q.Categories[c].Mean3))
		}
		for _, c := range taxonomy.Categories {
			row = append(row, formatFloat(q.Categories[c].Std3))
		}
		if err := tab.Write(row); err != nil {
			return fmt.Errorf("unable to write query %q: %v", q.Query, err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "na"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

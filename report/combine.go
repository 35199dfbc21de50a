// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"
)

// A Failure is a sample that could not be processed.
type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// A Combined is the combined report of several samples.
type Combined struct {
	Orthogroups  []Report  `json:"orthogroups"`
	TotalQueries int       `json:"total_queries"`
	Overall      Summary   `json:"overall_taxonomy_summary"`
	Failed       []Failure `json:"failed,omitempty"`
}

// Combine returns a combined report
// from a list of reports,
// keeping the order of the reports.
// It returns a MalformedReportError
// if any report has a missing field.
func Combine(reports []*Report) (*Combined, error) {
	c := &Combined{
		Orthogroups: make([]Report, 0, len(reports)),
		Overall: Summary{
			Domains: make(map[string]int),
		},
	}
	for i, r := range reports {
		if err := r.Validate(); err != nil {
			// unnamed samples are identified by position
			if e, ok := err.(*MalformedReportError); ok && e.Sample == "" {
				e.Sample = fmt.Sprintf("#%d", i+1)
			}
			return nil, err
		}
		c.Orthogroups = append(c.Orthogroups, r.clone())
		c.TotalQueries += r.QueryCount
		c.Overall.add(r.Summary)
	}
	return c, nil
}

// AddFailure adds a sample that could not be processed.
func (c *Combined) AddFailure(name string, err error) {
	c.Failed = append(c.Failed, Failure{
		Name:  name,
		Error: err.Error(),
	})
}

// Report returns the combined report
// as a single report.
func (c *Combined) Report(name string) *Report {
	r := &Report{
		Name:       name,
		QueryCount: c.TotalQueries,
		Summary: Summary{
			Domains: make(map[string]int),
		},
		Placements: []Placement{},
	}
	r.Summary.add(c.Overall)
	for _, o := range c.Orthogroups {
		r.Placements = append(r.Placements, o.clone().Placements...)
		r.Missing = append(r.Missing, o.Missing...)
	}
	return r
}

// WriteJSON writes the combined report in JSON format.
func (c *Combined) WriteJSON(w io.Writer) error {
	return writeJSON(w, c)
}

func (r *Report) clone() Report {
	nr := Report{
		Name:       r.Name,
		QueryCount: r.QueryCount,
		Summary: Summary{
			Domains: make(map[string]int, len(r.Summary.Domains)),
		},
		Placements: make([]Placement, 0, len(r.Placements)),
	}
	nr.Summary.add(r.Summary)
	if len(r.Missing) > 0 {
		nr.Missing = append([]string{}, r.Missing...)
	}
	for _, p := range r.Placements {
		np := Placement{
			Query:     p.Query,
			Neighbors: make([]Neighbor, 0, len(p.Neighbors)),
		}
		for _, n := range p.Neighbors {
			n.Taxonomy = append([]string{}, n.Taxonomy...)
			np.Neighbors = append(np.Neighbors, n)
		}
		nr.Placements = append(nr.Placements, np)
	}
	return nr
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package report implements the placement reports
// of the query sequences of one or more gene trees.
package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/js-arias/placetree/neighbor"
	"github.com/js-arias/placetree/taxonomy"
)

// A MalformedReportError is returned
// when a report has a missing field.
type MalformedReportError struct {
	Sample string
	Field  string
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("report %q: missing field %q", e.Sample, e.Field)
}

// A Summary is the number of neighbors
// by domain.
type Summary struct {
	Domains map[string]int `json:"domains"`
	Total   int            `json:"total_neighbors"`
}

func newSummary(s taxonomy.Summary) Summary {
	d := make(map[string]int, len(s.Domains))
	for k, v := range s.Domains {
		d[k] = v
	}
	return Summary{Domains: d, Total: s.Total}
}

func (s *Summary) add(o Summary) {
	for k, v := range o.Domains {
		s.Domains[k] += v
	}
	s.Total += o.Total
}

// A Neighbor is a neighbor of a query.
type Neighbor struct {
	Neighbor string          `json:"neighbor"`
	Distance float64         `json:"distance"`
	Rank     int             `json:"rank"`
	Taxonomy []string        `json:"taxonomy"`
	Status   taxonomy.Status `json:"taxonomy_status"`
}

// Domain returns the domain of the neighbor.
func (n Neighbor) Domain() string {
	return taxonomy.Lineage{Ranks: n.Taxonomy}.Domain()
}

// A Placement is the list of neighbors of a query.
type Placement struct {
	Query     string     `json:"query"`
	Neighbors []Neighbor `json:"neighbors"`
}

// A Report is the placement report
// of a sample (i.e., a gene tree).
type Report struct {
	Name       string      `json:"name"`
	QueryCount int         `json:"query_count"`
	Summary    Summary     `json:"taxonomy_summary"`
	Placements []Placement `json:"placements"`

	// Missing are the queries not found in the tree.
	Missing []string `json:"missing,omitempty"`
}

// New returns a new report
// from the neighbors of a sample.
func New(name string, res *neighbor.Result) *Report {
	r := &Report{
		Name:       name,
		QueryCount: len(res.Placements),
		Summary:    newSummary(res.Summary()),
		Placements: make([]Placement, 0, len(res.Placements)),
	}
	if len(res.Missing) > 0 {
		r.Missing = append([]string{}, res.Missing...)
	}
	for _, p := range res.Placements {
		np := Placement{
			Query:     p.Query,
			Neighbors: make([]Neighbor, 0, len(p.Neighbors)),
		}
		for _, rec := range p.Neighbors {
			tax := append([]string{}, rec.Lineage.Ranks...)
			np.Neighbors = append(np.Neighbors, Neighbor{
				Neighbor: rec.Neighbor,
				Distance: rec.Distance,
				Rank:     rec.Rank,
				Taxonomy: tax,
				Status:   rec.Lineage.Status,
			})
		}
		r.Placements = append(r.Placements, np)
	}
	return r
}

// Validate returns a MalformedReportError
// if the report has a missing field.
func (r *Report) Validate() error {
	if r == nil {
		return &MalformedReportError{Field: "report"}
	}
	if r.Name == "" {
		return &MalformedReportError{Field: "name"}
	}
	if r.Summary.Domains == nil {
		return &MalformedReportError{Sample: r.Name, Field: "taxonomy_summary.domains"}
	}
	if r.Placements == nil {
		return &MalformedReportError{Sample: r.Name, Field: "placements"}
	}
	return nil
}

var requiredFields = []string{
	"query_count",
	"taxonomy_summary",
	"placements",
}

var summaryFields = []string{
	"domains",
	"total_neighbors",
}

// ReadJSON reads a report in JSON format.
// If the report does not have a name,
// the sample name is used.
// It returns a MalformedReportError
// if a required field is missing.
func ReadJSON(r io.Reader, sample string) (*Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("report %q: %v", sample, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("report %q: %v", sample, err)
	}
	for _, f := range requiredFields {
		if v, ok := fields[f]; !ok || isNull(v) {
			return nil, &MalformedReportError{Sample: sample, Field: f}
		}
	}
	var sum map[string]json.RawMessage
	if err := json.Unmarshal(fields["taxonomy_summary"], &sum); err != nil {
		return nil, fmt.Errorf("report %q: field %q: %v", sample, "taxonomy_summary", err)
	}
	for _, f := range summaryFields {
		if v, ok := sum[f]; !ok || isNull(v) {
			return nil, &MalformedReportError{Sample: sample, Field: "taxonomy_summary." + f}
		}
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("report %q: %v", sample, err)
	}
	if rep.Name == "" {
		rep.Name = sample
	}
	for i := range rep.Placements {
		if rep.Placements[i].Neighbors == nil {
			rep.Placements[i].Neighbors = []Neighbor{}
		}
	}
	return &rep, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// WriteJSON writes the report in JSON format.
func (r *Report) WriteJSON(w io.Writer) error {
	return writeJSON(w, r)
}

func writeJSON(w io.Writer, v any) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return bw.Flush()
}

var csvHeader = []string{
	"query",
	"neighbor",
	"distance",
	"rank",
	"taxonomy_domain",
	"taxonomy_status",
	"taxonomy",
}

// WriteCSV writes the neighbors of the report
// as a CSV file,
// with a row for each query and neighbor pair.
func (r *Report) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	tab := csv.NewWriter(bw)
	tab.UseCRLF = false

	if err := tab.Write(csvHeader); err != nil {
		return fmt.Errorf("unable to write header: %v", err)
	}
	for _, p := range r.Placements {
		for _, n := range p.Neighbors {
			row := []string{
				p.Query,
				n.Neighbor,
				strconv.FormatFloat(n.Distance, 'f', 6, 64),
				strconv.Itoa(n.Rank),
				n.Domain(),
				n.Status.String(),
				taxonomy.Lineage{Ranks: n.Taxonomy}.String(),
			}
			if err := tab.Write(row); err != nil {
				return fmt.Errorf("unable to write query %q: %v", p.Query, err)
			}
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

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package ncbi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/js-arias/placetree/taxonomy"
)

const gbRecord = `<?xml version="1.0" encoding="UTF-8"  ?>
<!DOCTYPE GBSet PUBLIC "-//NCBI//NCBI GBSeq/EN" "https://www.ncbi.nlm.nih.gov/dtd/NCBI_GBSeq.dtd">
<GBSet>
  <GBSeq>
    <GBSeq_locus>WP_012345678</GBSeq_locus>
    <GBSeq_primary-accession>WP_012345678</GBSeq_primary-accession>
    <GBSeq_organism>Escherichia coli</GBSeq_organism>
    <GBSeq_taxonomy>Bacteria; Pseudomonadota; Gammaproteobacteria; Enterobacterales; Enterobacteriaceae; Escherichia</GBSeq_taxonomy>
  </GBSeq>
</GBSet>
`

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{
		WithURL(url),
		WithRate(0),
		WithBackoff(time.Millisecond),
	}, opts...)
	return New(opts...)
}

func TestLookup(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/efetch.fcgi" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.Query()
		w.Write([]byte(gbRecord))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithEmail("user@example.com"), WithAPIKey("key"), WithRate(0))
	ranks, err := c.Lookup(context.Background(), "WP_012345678.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Bacteria", "Pseudomonadota", "Gammaproteobacteria", "Enterobacterales", "Enterobacteriaceae", "Escherichia", "Escherichia coli"}
	if !reflect.DeepEqual(ranks, want) {
		t.Errorf("lineage: got %q, want %q", ranks, want)
	}

	params := map[string]string{
		"db":      "protein",
		"id":      "WP_012345678",
		"rettype": "gb",
		"retmode": "xml",
		"email":   "user@example.com",
		"api_key": "key",
	}
	for k, v := range params {
		if got := query[k]; len(got) != 1 || got[0] != v {
			t.Errorf("query %q: got %q, want %q", k, got, v)
		}
	}
}

func TestLookupNotFound(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
	}{
		"empty set":   {status: http.StatusOK, body: "<GBSet></GBSet>"},
		"error body":  {status: http.StatusOK, body: "<ERROR>Cannot process ID list</ERROR>"},
		"empty body":  {status: http.StatusOK, body: ""},
		"bad request": {status: http.StatusBadRequest, body: "invalid id"},
	}

	for name, test := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(test.status)
			w.Write([]byte(test.body))
		}))

		c := newTestClient(srv.URL)
		_, err := c.Lookup(context.Background(), "MBE0000001")
		if !errors.Is(err, taxonomy.ErrNotFound) {
			t.Errorf("%s: got error %v, want %v", name, err, taxonomy.ErrNotFound)
		}
		srv.Close()
	}
}

func TestLookupRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if n == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(gbRecord))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ranks, err := c.Lookup(context.Background(), "WP_012345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranks[0] != "Bacteria" {
		t.Errorf("domain: got %q, want %q", ranks[0], "Bacteria")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
}

func TestLookupExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithRetries(2))
	_, err := c.Lookup(context.Background(), "WP_012345678")

	var le *taxonomy.LookupError
	if !errors.As(err, &le) {
		t.Fatalf("got error %v, want %T", err, le)
	}
	if le.Accession != "WP_012345678" {
		t.Errorf("accession: got %q", le.Accession)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got error %v, want HTTP %d", err, http.StatusServiceUnavailable)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
}

func TestLookupCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithBackoff(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Lookup(ctx, "WP_012345678")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got error %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestBackoffDelay(t *testing.T) {
	c := New()
	tests := map[string]struct {
		attempt int
		err     error
		want    time.Duration
	}{
		"first":       {attempt: 1, want: time.Second},
		"second":      {attempt: 2, want: 2 * time.Second},
		"third":       {attempt: 3, want: 4 * time.Second},
		"retry after": {attempt: 1, err: &APIError{StatusCode: 429, retryAfter: "7"}, want: 7 * time.Second},
		"bad header":  {attempt: 2, err: &APIError{StatusCode: 429, retryAfter: "soon"}, want: 2 * time.Second},
	}
	for name, test := range tests {
		if got := c.backoffDelay(test.attempt, test.err); got != test.want {
			t.Errorf("%s: got %v, want %v", name, got, test.want)
		}
	}
}

// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package ncbi implements a taxonomy lookup
// using the NCBI Entrez E-utilities.
//
// Lineages are retrieved from the GenBank record
// of a protein accession,
// using the taxonomy and the organism name
// of the record.
package ncbi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/js-arias/placetree/taxonomy"
	"golang.org/x/time/rate"
)

// DefaultURL is the base URL of the Entrez E-utilities.
const DefaultURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Request rates allowed by NCBI,
// in requests per second.
const (
	DefaultRate = 3
	KeyRate     = 10
)

const defaultRetries = 3

// An APIError is a non-2xx response
// of the Entrez service.
type APIError struct {
	StatusCode int
	Body       string

	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// A Client retrieves lineages from NCBI.
type Client struct {
	baseURL string
	email   string
	apiKey  string
	tool    string
	db      string

	retries int
	backoff time.Duration

	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets the base URL of the service.
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithEmail sets the e-mail
// sent to NCBI with each request.
func WithEmail(email string) Option {
	return func(c *Client) {
		c.email = email
	}
}

// WithAPIKey sets the NCBI API key.
// It also increases the request rate.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
		if key != "" {
			c.limiter = rate.NewLimiter(rate.Limit(KeyRate), 1)
		}
	}
}

// WithRate sets the maximum number of requests per second.
// A zero or negative value removes the limit.
func WithRate(r float64) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), 1)
	}
}

// WithRetries sets the maximum number of retries
// of a failed request.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the wait before the first retry,
// that is doubled on each new retry.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger of the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a new NCBI client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultURL,
		tool:    "placetree",
		db:      "protein",
		retries: defaultRetries,
		backoff: time.Second,
		limiter: rate.NewLimiter(rate.Limit(DefaultRate), 1),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the lineage of a protein accession.
// The lineage is the GenBank taxonomy
// with the organism name as the last rank.
// It returns taxonomy.ErrNotFound
// if NCBI has no record for the accession.
func (c *Client) Lookup(ctx context.Context, accession string) ([]string, error) {
	acc := taxonomy.Accession(accession)
	if acc == "" {
		return nil, taxonomy.ErrNotFound
	}

	q := url.Values{}
	q.Set("db", c.db)
	q.Set("id", acc)
	q.Set("rettype", "gb")
	q.Set("retmode", "xml")
	q.Set("tool", c.tool)
	if c.email != "" {
		q.Set("email", c.email)
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, "/efetch.fcgi", q)
	if err != nil {
		if e, ok := err.(*APIError); ok && (e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusNotFound) {
			return nil, taxonomy.ErrNotFound
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &taxonomy.LookupError{Accession: acc, Err: err}
	}

	ranks, err := parseGBSet(body)
	if err != nil {
		return nil, &taxonomy.LookupError{Accession: acc, Err: err}
	}
	if len(ranks) == 0 {
		return nil, taxonomy.ErrNotFound
	}
	return ranks, nil
}

// Get sends a GET request
// and returns the body of the response.
// It retries on 429 (using Retry-After)
// and 5xx responses (with exponential backoff).
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoffDelay(attempt, lastErr)
			c.logger.Debug("retrying request", "url", path, "attempt", attempt, "wait", wait, "err", lastErr)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}

		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}
		return nil, apiErr
	}

	return nil, lastErr
}

// BackoffDelay returns the wait duration before a retry attempt.
func (c *Client) backoffDelay(attempt int, lastErr error) time.Duration {
	if e, ok := lastErr.(*APIError); ok && e.StatusCode == http.StatusTooManyRequests && e.retryAfter != "" {
		if secs, err := strconv.Atoi(e.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoff * time.Duration(1<<(attempt-1))
}

type gbSet struct {
	XMLName xml.Name `xml:"GBSet"`
	Seqs    []gbSeq  `xml:"GBSeq"`
}

type gbSeq struct {
	Accession string `xml:"GBSeq_primary-accession"`
	Organism  string `xml:"GBSeq_organism"`
	Taxonomy  string `xml:"GBSeq_taxonomy"`
}

func parseGBSet(body []byte) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 || bytes.Contains(body, []byte("<ERROR>")) {
		return nil, nil
	}

	var set gbSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("invalid GenBank XML: %v", err)
	}
	if len(set.Seqs) == 0 {
		return nil, nil
	}

	seq := set.Seqs[0]
	ranks := taxonomy.Ranks(seq.Taxonomy)
	org := strings.Join(strings.Fields(seq.Organism), " ")
	if org != "" && (len(ranks) == 0 || ranks[len(ranks)-1] != org) {
		ranks = append(ranks, org)
	}
	return ranks, nil
}

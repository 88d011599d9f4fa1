// Package upstream contains the typed HTTP clients for the four services the
// gateway composes: users, posts, comments and likes. Each client is a thin
// read wrapper over one independently owned service. Clients surface failures
// as errors; deciding to degrade to empty data is the aggregator's call, not
// the client's.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by single-entity lookups when the upstream service
// answered 404.
var ErrNotFound = errors.New("upstream: not found")

// Error wraps an upstream call failure with enough context to log it.
type Error struct {
	Service string
	Op      string
	Status  int // 0 when the transport failed before a status was received
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Service, e.Op, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// baseClient is shared plumbing for the typed clients: a bounded-timeout HTTP
// client, JSON decoding with body limits, and page query encoding.
type baseClient struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

func newBaseClient(service, baseURL string, timeout time.Duration) baseClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return baseClient{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// getJSON performs a GET and decodes the JSON body into target. A 404 maps to
// ErrNotFound; any other non-2xx status or transport failure maps to *Error.
func (c *baseClient) getJSON(ctx context.Context, op, path string, query url.Values, target interface{}) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return &Error{Service: c.service, Op: op, Status: resp.StatusCode}
	}

	body, err := readAllStrict(resp.Body, 8<<20)
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: err}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &Error{Service: c.service, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the JSON response.
func (c *baseClient) postJSON(ctx context.Context, op, path string, payload, target interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: fmt.Errorf("marshal request body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return &Error{Service: c.service, Op: op, Status: resp.StatusCode}
	}

	body, err := readAllStrict(resp.Body, 8<<20)
	if err != nil {
		return &Error{Service: c.service, Op: op, Err: err}
	}
	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			return &Error{Service: c.service, Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// pageQuery encodes the 1-based pagination contract shared by the upstream
// services.
func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}

// readAllStrict reads the full body, failing if it exceeds limit bytes.
func readAllStrict(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64<<10))
}

package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/resilience"
)

const resultsMediaType = "application/sparql-results+json"

// Client talks to a SPARQL 1.1 protocol endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(endpoint string) *Client {
	return NewWithOptions(endpoint, Options{})
}

func NewWithOptions(endpoint string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Select runs a SELECT (or ASK) query. A positive timeout is forwarded to the
// endpoint as a server-side hint; the caller's context bounds the request.
func (c *Client) Select(ctx context.Context, query string, timeout time.Duration) (*Results, error) {
	call := func(callCtx context.Context) (*Results, error) {
		return c.post(callCtx, query, timeout)
	}
	res, err := resilience.Do(ctx, c.executor, "sparql.select", call, classifySPARQLError)
	if err != nil {
		return nil, resilience.AsTemporary("sparql select", err, classifySPARQLError)
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, query string, timeout time.Duration) (*Results, error) {
	form := url.Values{}
	form.Set("query", query)
	if timeout > 0 {
		form.Set("timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create sparql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{
			Operation:  "select",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var out Results
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sparql response: %w", err)
	}
	return &out, nil
}

// Package exa is a small client for the Exa neural search API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signal-research/internal/resilience"
)

const (
	defaultBaseURL = "https://api.exa.ai"

	maxRetryAttempts = 3
)

// singleAttempt is used for contents requests, whose retries belong to the
// caller.
var singleAttempt = resilience.Policy{Attempts: 1}

// Endpoint names accepted by Proxy.
const (
	EndpointSearch   = "search"
	EndpointContents = "contents"
)

// Client talks to the Exa search and contents endpoints.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// Contents makes a single attempt; callers own content retries.
	Contents(ctx context.Context, req ContentsRequest) (*ContentsResponse, error)
	Proxy(ctx context.Context, endpoint string, body json.RawMessage) (json.RawMessage, error)
}

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	Query          string   `json:"query"`
	NumResults     int      `json:"numResults,omitempty"`
	Type           string   `json:"type,omitempty"`
	UseAutoprompt  bool     `json:"useAutoprompt,omitempty"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
}

// SearchResponse is the response from POST /search.
type SearchResponse struct {
	RequestID string   `json:"requestId"`
	Results   []Result `json:"results"`
}

// Result is one search or contents hit.
type Result struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Score         *float64 `json:"score,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Text          string   `json:"text,omitempty"`
	Snippet       string   `json:"snippet,omitempty"`
}

// ContentsRequest is the request body for POST /contents.
type ContentsRequest struct {
	URLs      []string `json:"urls"`
	Text      bool     `json:"text"`
	Livecrawl string   `json:"livecrawl,omitempty"`
}

// ContentsResponse is the response from POST /contents.
type ContentsResponse struct {
	RequestID string   `json:"requestId"`
	Results   []Result `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithContentsTimeout bounds each /contents request.
func WithContentsTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.contentsTimeout = d
	}
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey          string
	baseURL         string
	http            *http.Client
	contentsTimeout time.Duration
	retry           resilience.Policy
}

// NewClient creates an Exa API client.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultPolicy()
	retry.Attempts = maxRetryAttempts
	retry.OnRetry = resilience.LogRetry("exa", "request")

	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		contentsTimeout: 20 * time.Second,
		retry:           retry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if req.Query == "" {
		return nil, eris.New("exa: search query is empty")
	}

	var out SearchResponse
	if err := c.postJSON(ctx, c.retry, EndpointSearch, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Contents(ctx context.Context, req ContentsRequest) (*ContentsResponse, error) {
	if len(req.URLs) == 0 {
		return nil, eris.New("exa: contents requires at least one url")
	}

	if c.contentsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.contentsTimeout)
		defer cancel()
	}

	var out ContentsResponse
	if err := c.postJSON(ctx, singleAttempt, EndpointContents, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Proxy forwards a raw JSON body to the named endpoint and returns the raw
// response body. Unknown endpoint names are sent to contents.
func (c *httpClient) Proxy(ctx context.Context, endpoint string, body json.RawMessage) (json.RawMessage, error) {
	if endpoint != EndpointSearch {
		endpoint = EndpointContents
	}
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}

	return resilience.Do(ctx, c.retry, func(ctx context.Context) (json.RawMessage, error) {
		raw, err := c.send(ctx, endpoint, body)
		if err != nil {
			return nil, err
		}
		if !json.Valid(raw) {
			return nil, eris.Errorf("exa: %s returned invalid json", endpoint)
		}
		return raw, nil
	})
}

func (c *httpClient) postJSON(ctx context.Context, policy resilience.Policy, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "exa: marshal request")
	}

	return resilience.Run(ctx, policy, func(ctx context.Context) error {
		raw, err := c.send(ctx, endpoint, body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return eris.Wrap(err, "exa: unmarshal response")
		}
		return nil
	})
}

func (c *httpClient) send(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "exa: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(err, "exa: send %s request", endpoint)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "exa: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewStatusError("exa", resp.StatusCode, respBody)
	}
	return respBody, nil
}

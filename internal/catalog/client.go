package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/httputil"
	"github.com/jhango/pricesync/pkg/logger"
)

// ErrRemoteWrite marks a catalog mutation the store rejected. Transient
// failures are retried by the HTTP layer first; this surfaces only after
// the retry ceiling or on user errors in the mutation response.
var ErrRemoteWrite = errors.New("catalog write rejected")

// Client talks to the Shopify Admin API. All catalog reads and writes go
// through this client, throttled to the store's API rate limit.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	token      string
	themeID    int64
	baseURL    string
	graphqlURL string
}

// NewClient creates a new Shopify Admin API client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	base := shopBaseURL(cfg.Shopify.ShopURL, cfg.Shopify.APIVersion)

	return &Client{
		httpClient: httpClient.WithRateLimit(cfg.Shopify.RateLimitRPS, cfg.Shopify.RateBurst),
		logger:     log.WithField("component", "catalog"),
		token:      cfg.Shopify.AccessToken,
		themeID:    cfg.Shopify.ThemeID,
		baseURL:    base,
		graphqlURL: base + "/graphql.json",
	}
}

// shopBaseURL builds the Admin API base URL. A full URL is taken as-is so
// tests can point the client at a local server.
func shopBaseURL(shopURL, apiVersion string) string {
	shopURL = strings.TrimRight(shopURL, "/")
	if !strings.HasPrefix(shopURL, "http://") && !strings.HasPrefix(shopURL, "https://") {
		shopURL = "https://" + shopURL
	}
	return fmt.Sprintf("%s/admin/api/%s", shopURL, apiVersion)
}

// graphqlError is one entry of the GraphQL "errors" array.
type graphqlError struct {
	Message string `json:"message"`
}

// graphql executes a GraphQL query and returns the raw "data" payload.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	payload := map[string]interface{}{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal GraphQL payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create GraphQL request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GraphQL request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read GraphQL response: %w", err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("parse GraphQL response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL errors: %s", envelope.Errors[0].Message)
	}
	return envelope.Data, nil
}

// get performs a REST GET against the Admin API.
func (c *Client) get(ctx context.Context, path string, query string) (*http.Response, error) {
	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	c.setHeaders(req)

	return c.httpClient.Do(req)
}

// putJSON performs a REST PUT with a JSON body against the Admin API.
func (c *Client) putJSON(ctx context.Context, path string, data interface{}) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal PUT payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create PUT request: %w", err)
	}
	c.setHeaders(req)

	return c.httpClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
}

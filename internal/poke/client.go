// Package poke provides a minimal client for the PokeAPI REST service.
package poke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public PokeAPI endpoint used when no base URL is configured.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

const defaultTimeout = 10 * time.Second

// resourcePath is the fixed path segment for Pokemon lookups.
const resourcePath = "pokemon"

// Client is a minimal HTTP client for Pokemon lookups. One Get call issues
// exactly one upstream request; there is no retry or caching layer.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	closeOnce sync.Once
	log       *logrus.Entry
}

// New returns a new client. If httpClient is nil, a default with a 10s timeout is used.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    httpClient,
		log:     logrus.WithField("component", "poke"),
	}
}

// Get fetches the document for a single Pokemon by name or numeric key and
// returns the decoded JSON object. Failures are typed: *TransportError when
// the provider cannot be reached (including timeout), *StatusError on a
// non-2xx response, *DecodeError when the body is not a JSON object.
func (c *Client) Get(ctx context.Context, name string) (map[string]any, error) {
	reqURL := c.BaseURL + "/" + resourcePath + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	c.log.WithField("url", reqURL).Debug("fetching pokemon data")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return doc, nil
}

// Close releases the client's idle connections. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.HTTP.CloseIdleConnections()
		c.log.Debug("provider connections released")
	})
	return nil
}

// Pokemon is a small typed view of the provider document. The full document
// is passed through to callers untouched; this covers the fields tests and
// callers commonly care about.
type Pokemon struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// DecodePokemon extracts the typed view from a raw provider document.
func DecodePokemon(doc map[string]any) (Pokemon, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Pokemon{}, &DecodeError{Err: err}
	}
	var p Pokemon
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pokemon{}, &DecodeError{Err: err}
	}
	return p, nil
}

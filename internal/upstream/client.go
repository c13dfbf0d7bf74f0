// Package upstream fetches and validates the third-party model metadata
// feed: one large JSON object mapping raw model ids to attribute bags.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFeedURL is the upstream feed's well-known address.
const DefaultFeedURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// sentinelKey is a non-model documentation entry the upstream ships
// inside the payload; it is excluded before any processing.
const sentinelKey = "sample_spec"

// providerTagField is the minimal required field per entry.
const providerTagField = "litellm_provider"

// Client fetches the upstream feed with rate limiting and change-token
// capture.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithRateLimit sets requests per second against the upstream.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout overrides the transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates an upstream client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Feed is one fetched upstream payload.
type Feed struct {
	// Raw holds every model entry keyed by raw id, sentinel excluded.
	// This is the fingerprint input.
	Raw map[string]json.RawMessage
	// Entries holds the validated subset: entries that decode to an
	// object carrying the provider tag.
	Entries map[string]map[string]any
	// ETag is the transport change token, empty when the upstream
	// supplies none.
	ETag string
}

// Fetch downloads and validates the full feed. Entries failing the
// permissive per-entry check are dropped silently; a payload that does
// not parse at all is a fetch failure.
func (c *Client) Fetch(ctx context.Context, url string) (*Feed, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed body: %w", err)
	}

	feed, err := Parse(body)
	if err != nil {
		return nil, err
	}
	feed.ETag = resp.Header.Get("ETag")
	return feed, nil
}

// Probe performs a metadata-only request and returns the upstream change
// token. An empty token with nil error means the upstream does not
// supply one and the caller should proceed to a full fetch.
func (c *Client) Probe(ctx context.Context, url string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating probe request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HEAD %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HEAD %s: status %d", url, resp.StatusCode)
	}
	return resp.Header.Get("ETag"), nil
}

// Parse decodes a feed payload, excludes the sentinel entry, and applies
// the permissive per-entry validation.
func Parse(body []byte) (*Feed, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing feed payload: %w", err)
	}
	delete(raw, sentinelKey)

	entries := make(map[string]map[string]any, len(raw))
	for id, msg := range raw {
		var entry map[string]any
		if err := json.Unmarshal(msg, &entry); err != nil {
			slog.Debug("dropping malformed feed entry", "id", id, "error", err)
			continue
		}
		tag, ok := entry[providerTagField].(string)
		if !ok || tag == "" {
			slog.Debug("dropping feed entry without provider tag", "id", id)
			continue
		}
		entries[id] = entry
	}

	return &Feed{Raw: raw, Entries: entries}, nil
}

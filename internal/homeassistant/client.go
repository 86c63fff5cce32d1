// Package homeassistant is a minimal client for the Home Assistant REST API.
// It only sets entity states; it never reads or subscribes.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUserAgent = "teams-presence-sensor/1.0"
	defaultTimeout   = 10 * time.Second
)

// StateSetter sets the state of one entity. Implemented by *Client.
type StateSetter interface {
	SetState(ctx context.Context, entityID, state string, attributes map[string]any) error
}

// Ensure Client implements StateSetter at compile time.
var _ StateSetter = (*Client)(nil)

// StatusError is returned when Home Assistant answers with a non-2xx code.
type StatusError struct {
	EntityID string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("set %s: status %d: %s", e.EntityID, e.Code, e.Body)
	}
	return fmt.Sprintf("set %s: status %d", e.EntityID, e.Code)
}

// Client talks to the Home Assistant REST API with a long-lived access token.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	userAgent string
}

// NewClient builds a Client for the given base URL (e.g. http://homeassistant.local:8123).
// A zero timeout selects the default.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("access token is empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   base,
		token:     token,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}, nil
}

type statePayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SetState creates or replaces the state of entityID. Repeating the call with
// the same arguments leaves Home Assistant unchanged.
func (c *Client) SetState(ctx context.Context, entityID, state string, attributes map[string]any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if entityID == "" {
		return fmt.Errorf("entity id is empty")
	}

	body, err := json.Marshal(statePayload{State: state, Attributes: attributes})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	rel := &url.URL{Path: "api/states/" + entityID}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &StatusError{
			EntityID: entityID,
			Code:     resp.StatusCode,
			Body:     strings.TrimSpace(string(snippet)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// parseBaseURL normalizes the base URL so api paths resolve beneath it,
// keeping any sub-path used by a reverse proxy.
func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

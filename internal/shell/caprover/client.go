// Package caprover provides a client for the CapRover platform API.
// The API is session-based: Login exchanges the shared password for a
// short-lived token, and every other operation requires it. That
// ordering is encoded in the types — app operations hang off Session,
// which only Login can produce.
package caprover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// authHeader carries the session token on every authenticated call.
const authHeader = "x-captain-auth"

// =============================================================================
// Client
// =============================================================================

// Client is an unauthenticated handle on a CapRover server. It holds
// the credential but no token; call Login to obtain a Session.
type Client struct {
	baseURL    string
	password   string
	namespace  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds CapRover client configuration.
type Config struct {
	BaseURL   string // CapRover server URL, e.g. "https://captain.example.com"
	Password  string // Shared admin password exchanged for a session token
	Namespace string // Optional captain namespace
	Timeout   time.Duration
}

// NewClient creates a new CapRover client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		password:  cfg.Password,
		namespace: cfg.Namespace,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseDomain derives the shared apps domain from the server URL by
// stripping a leading "captain." label. Falls back to "localhost" when
// the URL does not parse to a host.
func (c *Client) BaseDomain() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return strings.TrimPrefix(u.Hostname(), "captain.")
}

// =============================================================================
// Response Envelope
// =============================================================================

// envelope is the wrapper CapRover puts around every response body.
type envelope struct {
	Status      int             `json:"status"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
}

// =============================================================================
// Login
// =============================================================================

// ErrLoginRejected is wrapped in the error returned when the server
// answers the login call with a non-success status.
var ErrLoginRejected = fmt.Errorf("login rejected")

type loginRequest struct {
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

// Login exchanges the configured password for a session token.
// A non-2xx response wraps ErrLoginRejected; transport failures are
// returned as-is so callers can distinguish "rejected" from "unreachable".
func (c *Client) Login(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(loginRequest{Password: c.password})
	if err != nil {
		return nil, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrLoginRejected, resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode login data: %w", err)
	}
	if data.Token == "" {
		return nil, fmt.Errorf("%w: empty token in response", ErrLoginRejected)
	}

	c.logger.Debug("caprover login succeeded", "server", c.baseURL)

	return &Session{client: c, token: data.Token}, nil
}

// Probe checks whether the server is reachable without needing valid
// credentials: an auth rejection still proves the server answered.
func (c *Client) Probe(ctx context.Context) bool {
	body, _ := json.Marshal(loginRequest{Password: "probe"})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/login", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusUnauthorized || (resp.StatusCode >= 200 && resp.StatusCode <= 299)
}

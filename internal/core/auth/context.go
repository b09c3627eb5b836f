// Package auth provides the caller identity context and authorization
// checks. Session issuance lives outside this service; identity arrives
// pre-verified via headers injected by the dashboard's auth layer, with
// a bearer-payload fallback.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const identityContextKey contextKey = "identity"

// =============================================================================
// Types
// =============================================================================

// Identity is the verified caller identity supplied to every
// orchestration entry point.
type Identity struct {
	// UserID is the caller's user identifier.
	UserID string

	// Role is "user" or "admin". Admin gates administrative operations
	// (remote app deletion, cross-project visibility, settings).
	Role string

	// Authenticated indicates whether the request carried an identity.
	Authenticated bool
}

// IsAdmin reports whether the caller holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Authenticated && id.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderUserID carries the authenticated user's ID.
	HeaderUserID = "X-User-ID"

	// HeaderUserRole carries the authenticated user's role.
	HeaderUserRole = "X-User-Role"
)

// =============================================================================
// Extraction
// =============================================================================

// ExtractFromRequest extracts the caller identity from request headers.
// Returns an unauthenticated identity when no user header or bearer
// token is present.
func ExtractFromRequest(r *http.Request) Identity {
	return ExtractFromHeaders(headerGetter{r: r})
}

// HeaderGetter abstracts header access so extraction is testable
// without an http.Request.
type HeaderGetter interface {
	Get(key string) string
}

type headerGetter struct {
	r *http.Request
}

func (h headerGetter) Get(key string) string {
	return h.r.Header.Get(key)
}

// MapHeaderGetter wraps a map for tests.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}

// ExtractFromHeaders extracts the identity from headers. Sources, in
// order: X-User-ID/X-User-Role headers, then the bearer token payload.
// No signature verification happens here — the session layer upstream
// has already validated the token.
func ExtractFromHeaders(headers HeaderGetter) Identity {
	userID := headers.Get(HeaderUserID)
	if userID == "" {
		claims := parseBearer(headers.Get("Authorization"))
		if claims == nil || claims.Sub == "" {
			return Identity{}
		}
		return Identity{
			UserID:        claims.Sub,
			Role:          normalizeRole(claims.Role),
			Authenticated: true,
		}
	}

	return Identity{
		UserID:        userID,
		Role:          normalizeRole(headers.Get(HeaderUserRole)),
		Authenticated: true,
	}
}

func normalizeRole(role string) string {
	if role == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// tokenClaims holds the fields extracted from a bearer token payload.
type tokenClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
}

// parseBearer base64-decodes the payload segment of a bearer token.
func parseBearer(authHeader string) *tokenClaims {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil
	}
	parts := strings.Split(authHeader[7:], ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the identity in the request context.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext retrieves the identity, unauthenticated when absent.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityContextKey).(Identity); ok {
		return id
	}
	return Identity{}
}

package auth

import "errors"

// =============================================================================
// Authorization Errors
// =============================================================================

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("caller is not allowed to access this resource")
)

// =============================================================================
// Authorization Checks
// =============================================================================

// CanAccessProject reports whether the caller may read or act on a
// project owned by ownerID. Admins see every project.
func CanAccessProject(id Identity, ownerID string) error {
	if !id.Authenticated {
		return ErrUnauthenticated
	}
	if id.IsAdmin() || id.UserID == ownerID {
		return nil
	}
	return ErrForbidden
}

// RequireAdmin rejects non-admin callers.
func RequireAdmin(id Identity) error {
	if !id.Authenticated {
		return ErrUnauthenticated
	}
	if !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

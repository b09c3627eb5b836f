// Package orchestrator coordinates deployment attempts: it loads the
// project, renders build artifacts, talks to the remote platform and
// persists every status transition as it happens.
package orchestrator

import (
	"errors"
	"fmt"
)

// =============================================================================
// Failure Kinds
// =============================================================================

// A failed attempt is classified by what went wrong, so callers can
// tell a misconfigured project from a broken platform connection.
const (
	KindConfig   = "config"   // Bad project configuration, nothing was sent remotely
	KindAuth     = "auth"     // Platform rejected the credentials
	KindRemote   = "remote"   // Platform unreachable or a remote call failed
	KindCanceled = "canceled" // The attempt's context was canceled mid-flight
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrDeploymentInProgress is returned when a project already has a
	// pending or building attempt.
	ErrDeploymentInProgress = errors.New("a deployment is already in progress for this project")

	// ErrPlatformNotConfigured is returned when no server URL or
	// password has been set for the remote platform.
	ErrPlatformNotConfigured = errors.New("deployment platform is not configured")
)

// AttemptError describes why a deployment attempt failed. Detail is the
// human-readable text that also lands in the record's build logs.
type AttemptError struct {
	Kind    string
	Message string
	Detail  string
}

func (e *AttemptError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

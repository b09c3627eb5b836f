package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Deployment Errors
// =============================================================================

var (
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// Deployment Status
// =============================================================================

type DeploymentStatus string

const (
	StatusPending  DeploymentStatus = "pending"
	StatusBuilding DeploymentStatus = "building"
	StatusSuccess  DeploymentStatus = "success"
	StatusFailed   DeploymentStatus = "failed"
)

// validTransitions defines the allowed status transitions.
// Success and failed are terminal; pending may fail directly when the
// attempt never reaches the remote platform (configuration errors).
var validTransitions = map[DeploymentStatus][]DeploymentStatus{
	StatusPending:  {StatusBuilding, StatusFailed},
	StatusBuilding: {StatusSuccess, StatusFailed},
	StatusSuccess:  {},
	StatusFailed:   {},
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to DeploymentStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// IsTerminal reports whether the status admits no further transitions.
func (s DeploymentStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// IsActive reports whether an attempt with this status is still in flight.
func (s DeploymentStatus) IsActive() bool {
	return s == StatusPending || s == StatusBuilding
}

// =============================================================================
// Deployment Record
// =============================================================================

// Deployment is the durable record of one deployment attempt.
type Deployment struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"project_id"`
	Status      DeploymentStatus `json:"status"`
	BuildLogs   string           `json:"build_logs,omitempty"`
	DeployURL   string           `json:"deploy_url,omitempty"`
	CommitHash  string           `json:"commit_hash,omitempty"`
	ErrorKind   string           `json:"error_kind,omitempty"`
	ErrorDetail string           `json:"error_detail,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewDeployment creates a pending deployment record for a project.
func NewDeployment(projectID, commitHash string) *Deployment {
	now := time.Now().UTC()
	return &Deployment{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		Status:     StatusPending,
		CommitHash: commitHash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Transition attempts to move the record to a new status.
func (d *Deployment) Transition(to DeploymentStatus) error {
	if err := ValidateTransition(d.Status, to); err != nil {
		return err
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Succeed marks the record successful with the deploy URL and build logs.
func (d *Deployment) Succeed(deployURL, buildLogs string) error {
	if err := d.Transition(StatusSuccess); err != nil {
		return err
	}
	d.DeployURL = deployURL
	if buildLogs != "" {
		d.AppendLogs(buildLogs)
	}
	return nil
}

// Fail marks the record failed with a classified error.
// Allowed from pending and building only.
func (d *Deployment) Fail(kind, detail string) error {
	if err := d.Transition(StatusFailed); err != nil {
		return err
	}
	d.ErrorKind = kind
	d.ErrorDetail = detail
	return nil
}

// AppendLogs appends diagnostic text to the build logs.
func (d *Deployment) AppendLogs(text string) {
	if text == "" {
		return
	}
	if d.BuildLogs != "" {
		d.BuildLogs += "\n"
	}
	d.BuildLogs += text
	d.UpdatedAt = time.Now().UTC()
}

// Package domain contains the core DeployHub entities and their invariants.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Project Errors
// =============================================================================

var (
	ErrEmptyProjectName = errors.New("project name must not be empty")
	ErrInvalidAppName   = errors.New("project name yields no valid app name")
)

// =============================================================================
// Project
// =============================================================================

// Project is a registered application that can be deployed.
// Build-related fields override the framework profile defaults when set.
type Project struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	RepositoryURL  string    `json:"repository_url,omitempty"`
	Branch         string    `json:"branch"`
	Framework      string    `json:"framework"`
	BuildCommand   string    `json:"build_command,omitempty"`
	InstallCommand string    `json:"install_command,omitempty"`
	OutputDir      string    `json:"output_directory,omitempty"`
	Port           int       `json:"port,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewProject creates a project owned by the given user.
func NewProject(userID, name, framework string) (*Project, error) {
	if name == "" {
		return nil, ErrEmptyProjectName
	}
	if Slugify(name) == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAppName, name)
	}
	now := time.Now().UTC()
	return &Project{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Branch:    "main",
		Framework: framework,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AppName derives the remote platform app name from the project name.
func (p *Project) AppName() string {
	return Slugify(p.Name)
}

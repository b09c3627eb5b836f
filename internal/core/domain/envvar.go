package domain

import "time"

// =============================================================================
// Environment Variables
// =============================================================================

// EnvVariable is a project-scoped key/value pair.
// Keys are unique per project; the store upserts on conflict.
type EnvVariable struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsSecret  bool      `json:"is_secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Redacted returns a copy safe for display: secret values are masked.
func (e EnvVariable) Redacted() EnvVariable {
	if e.IsSecret {
		e.Value = "********"
	}
	return e
}

package domain

import "time"

// =============================================================================
// Admin Settings
// =============================================================================

// Setting keys for the remote platform connection.
const (
	SettingPlatformURL      = "caprover_server_url"
	SettingPlatformPassword = "caprover_password"
)

// Setting is an admin-managed key/value configuration entry.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeployment(t *testing.T) {
	d := NewDeployment("project-1", "abc123")

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "project-1", d.ProjectID)
	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, "abc123", d.CommitHash)
	assert.False(t, d.CreatedAt.IsZero())
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    DeploymentStatus
		to      DeploymentStatus
		wantErr bool
	}{
		{"pending to building", StatusPending, StatusBuilding, false},
		{"pending to failed", StatusPending, StatusFailed, false},
		{"building to success", StatusBuilding, StatusSuccess, false},
		{"building to failed", StatusBuilding, StatusFailed, false},
		{"pending to success skips building", StatusPending, StatusSuccess, true},
		{"success is terminal", StatusSuccess, StatusBuilding, true},
		{"failed is terminal", StatusFailed, StatusPending, true},
		{"failed cannot regress to building", StatusFailed, StatusBuilding, true},
		{"unknown status", DeploymentStatus("bogus"), StatusBuilding, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeployment_Succeed(t *testing.T) {
	d := NewDeployment("project-1", "")
	require.NoError(t, d.Transition(StatusBuilding))

	err := d.Succeed("https://my-app.example.com", "build ok")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, d.Status)
	assert.Equal(t, "https://my-app.example.com", d.DeployURL)
	assert.Equal(t, "build ok", d.BuildLogs)
}

func TestDeployment_Fail(t *testing.T) {
	d := NewDeployment("project-1", "")

	err := d.Fail("config", "unknown framework \"unknownfw\"")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, "config", d.ErrorKind)

	// Terminal: a second failure is rejected.
	assert.ErrorIs(t, d.Fail("remote", "too late"), ErrInvalidTransition)
}

func TestDeployment_AppendLogs(t *testing.T) {
	d := NewDeployment("project-1", "")

	d.AppendLogs("line one")
	d.AppendLogs("")
	d.AppendLogs("line two")

	assert.Equal(t, "line one\nline two", d.BuildLogs)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusBuilding.IsActive())
	assert.False(t, StatusSuccess.IsActive())
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusBuilding.IsTerminal())
}

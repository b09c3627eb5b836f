package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployhub/deployhub/internal/core/domain"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func createTestUser(t *testing.T, store Store) *domain.User {
	t.Helper()
	user, err := domain.NewUser("dev@example.com", "Dev", "hunter2hunter2", domain.RoleUser)
	require.NoError(t, err)

	err = store.CreateUser(context.Background(), user)
	require.NoError(t, err)
	return user
}

func createTestProject(t *testing.T, store Store, user *domain.User) *domain.Project {
	t.Helper()
	project, err := domain.NewProject(user.ID, "My Blog", "nextjs")
	require.NoError(t, err)

	err = store.CreateProject(context.Background(), project)
	require.NoError(t, err)
	return project
}

func createTestDeployment(t *testing.T, store Store, project *domain.Project) *domain.Deployment {
	t.Helper()
	deployment := domain.NewDeployment(project.ID, "abc123")
	err := store.CreateDeployment(context.Background(), deployment)
	require.NoError(t, err)
	return deployment
}

// =============================================================================
// User Tests
// =============================================================================

func TestCreateUser_Success(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)

	retrieved, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.Equal(t, user.Email, retrieved.Email)
	assert.Equal(t, user.Role, retrieved.Role)
	assert.True(t, retrieved.CheckPassword("hunter2hunter2"))
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, store)

	other, err := domain.NewUser("dev@example.com", "Other Dev", "password123", domain.RoleUser)
	require.NoError(t, err)

	err = store.CreateUser(ctx, other)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetUserByEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)

	retrieved, err := store.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Project Tests
// =============================================================================

func TestCreateProject_Success(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project, err := domain.NewProject(user.ID, "My Blog", "nextjs")
	require.NoError(t, err)
	project.BuildCommand = "yarn build"
	project.Port = 8080

	err = store.CreateProject(ctx, project)
	require.NoError(t, err)

	retrieved, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, retrieved.Name)
	assert.Equal(t, "main", retrieved.Branch)
	assert.Equal(t, "yarn build", retrieved.BuildCommand)
	assert.Equal(t, 8080, retrieved.Port)
}

func TestCreateProject_UnknownOwner(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project, err := domain.NewProject("no-such-user", "Orphan", "static")
	require.NoError(t, err)

	err = store.CreateProject(ctx, project)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForeignKey)
}

func TestUpdateProject(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)

	project.Framework = "react"
	project.OutputDir = "dist"
	require.NoError(t, store.UpdateProject(ctx, project))

	retrieved, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "react", retrieved.Framework)
	assert.Equal(t, "dist", retrieved.OutputDir)
}

func TestUpdateProject_NotFound(t *testing.T) {
	store := setupTestStore(t)

	project, err := domain.NewProject("u1", "Ghost", "static")
	require.NoError(t, err)

	err = store.UpdateProject(context.Background(), project)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProjectsByUser_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)

	older, err := domain.NewProject(user.ID, "Older", "static")
	require.NoError(t, err)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.CreateProject(ctx, older))

	newer := createTestProject(t, store, user)

	projects, err := store.ListProjectsByUser(ctx, user.ID, DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, newer.ID, projects[0].ID)
	assert.Equal(t, older.ID, projects[1].ID)
}

func TestDeleteProject_CascadesToChildren(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)
	deployment := createTestDeployment(t, store, project)

	require.NoError(t, store.UpsertEnvVariable(ctx, newEnvVariable(project.ID, "API_KEY", "v", true)))

	require.NoError(t, store.DeleteProject(ctx, project.ID))

	_, err := store.GetDeployment(ctx, deployment.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	vars, err := store.ListEnvVariables(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, vars)
}

// =============================================================================
// Environment Variable Tests
// =============================================================================

func newEnvVariable(projectID, key, value string, secret bool) *domain.EnvVariable {
	now := time.Now().UTC()
	return &domain.EnvVariable{
		ID:        key + "-" + projectID,
		ProjectID: projectID,
		Key:       key,
		Value:     value,
		IsSecret:  secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUpsertEnvVariable_InsertAndUpdate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)

	require.NoError(t, store.UpsertEnvVariable(ctx, newEnvVariable(project.ID, "NODE_ENV", "staging", false)))

	// Same key again replaces the value instead of adding a row.
	require.NoError(t, store.UpsertEnvVariable(ctx, newEnvVariable(project.ID, "NODE_ENV", "production", false)))

	vars, err := store.ListEnvVariables(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "production", vars[0].Value)
}

func TestListEnvVariables_SortedByKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)

	require.NoError(t, store.UpsertEnvVariable(ctx, newEnvVariable(project.ID, "ZEBRA", "1", false)))
	require.NoError(t, store.UpsertEnvVariable(ctx, newEnvVariable(project.ID, "ALPHA", "2", true)))

	vars, err := store.ListEnvVariables(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "ALPHA", vars[0].Key)
	assert.True(t, vars[0].IsSecret)
	assert.Equal(t, "ZEBRA", vars[1].Key)
}

func TestDeleteEnvVariable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)

	require.NoError(t, store.UpsertEnvVariable(ctx, newEnvVariable(project.ID, "API_KEY", "v", true)))
	require.NoError(t, store.DeleteEnvVariable(ctx, project.ID, "API_KEY"))

	err := store.DeleteEnvVariable(ctx, project.ID, "API_KEY")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Deployment Tests
// =============================================================================

func TestCreateDeployment_Success(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)
	deployment := createTestDeployment(t, store, project)

	retrieved, err := store.GetDeployment(ctx, deployment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, retrieved.Status)
	assert.Equal(t, "abc123", retrieved.CommitHash)
}

func TestUpdateDeployment_WriteThrough(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)
	deployment := createTestDeployment(t, store, project)

	require.NoError(t, deployment.Transition(domain.StatusBuilding))
	require.NoError(t, store.UpdateDeployment(ctx, deployment))

	require.NoError(t, deployment.Succeed("https://my-blog.example.com", "build ok"))
	require.NoError(t, store.UpdateDeployment(ctx, deployment))

	retrieved, err := store.GetDeployment(ctx, deployment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, retrieved.Status)
	assert.Equal(t, "https://my-blog.example.com", retrieved.DeployURL)
	assert.Equal(t, "build ok", retrieved.BuildLogs)
}

func TestListDeploymentsByStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)

	pending := createTestDeployment(t, store, project)

	building := domain.NewDeployment(project.ID, "")
	require.NoError(t, building.Transition(domain.StatusBuilding))
	require.NoError(t, store.CreateDeployment(ctx, building))

	got, err := store.ListDeploymentsByStatus(ctx, domain.StatusBuilding, DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, building.ID, got[0].ID)

	got, err = store.ListDeploymentsByStatus(ctx, domain.StatusPending, DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

func TestActiveDeploymentExists(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)
	project := createTestProject(t, store, user)

	exists, err := store.ActiveDeploymentExists(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	deployment := createTestDeployment(t, store, project)

	exists, err = store.ActiveDeploymentExists(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, deployment.Fail("remote", "build crashed"))
	require.NoError(t, store.UpdateDeployment(ctx, deployment))

	exists, err = store.ActiveDeploymentExists(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

// =============================================================================
// Settings Tests
// =============================================================================

func TestSetSetting_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	setting := &domain.Setting{
		Key:       domain.SettingPlatformURL,
		Value:     "https://captain.example.com",
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SetSetting(ctx, setting))

	setting.Value = "https://captain.other.com"
	require.NoError(t, store.SetSetting(ctx, setting))

	retrieved, err := store.GetSetting(ctx, domain.SettingPlatformURL)
	require.NoError(t, err)
	assert.Equal(t, "https://captain.other.com", retrieved.Value)

	settings, err := store.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, settings, 1)
}

func TestGetSetting_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetSetting(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Transaction Tests
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)

	failure := assert.AnError
	err := store.WithTx(ctx, func(tx Store) error {
		project, err := domain.NewProject(user.ID, "Doomed", "static")
		if err != nil {
			return err
		}
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	projects, err := store.ListProjectsByUser(ctx, user.ID, DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestWithTx_Commits(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store)

	var projectID string
	err := store.WithTx(ctx, func(tx Store) error {
		project, err := domain.NewProject(user.ID, "Kept", "static")
		if err != nil {
			return err
		}
		projectID = project.ID
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		deployment := domain.NewDeployment(project.ID, "")
		return tx.CreateDeployment(ctx, deployment)
	})
	require.NoError(t, err)

	_, err = store.GetProject(ctx, projectID)
	assert.NoError(t, err)
}

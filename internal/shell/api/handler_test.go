package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployhub/deployhub/internal/core/auth"
	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/shell/caprover"
	"github.com/deployhub/deployhub/internal/shell/orchestrator"
	"github.com/deployhub/deployhub/internal/shell/store"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeSession struct {
	deployCalls int
	deleteCalls int
	baseDomain  string
	deployedTar []byte
}

func (s *fakeSession) RegisterApp(ctx context.Context, appName string, hasPersistentData bool) error {
	return nil
}

func (s *fakeSession) SetEnvVars(ctx context.Context, appName string, vars []caprover.EnvVar) error {
	return nil
}

func (s *fakeSession) Deploy(ctx context.Context, req caprover.DeployRequest) (caprover.DeployResult, error) {
	s.deployCalls++
	s.deployedTar = req.TarFile
	gitHash := req.GitHash
	if gitHash == "" {
		gitHash = "1700000000000"
	}
	return caprover.DeployResult{
		DeployURL: fmt.Sprintf("https://%s.%s", req.AppName, s.baseDomain),
		GitHash:   gitHash,
	}, nil
}

func (s *fakeSession) BuildLogs(ctx context.Context, appName string) string {
	return "build finished"
}

func (s *fakeSession) Status(ctx context.Context, appName string) caprover.AppStatus {
	return caprover.AppStatusDeployed
}

func (s *fakeSession) EnableSSL(ctx context.Context, appName, customDomain string) error {
	return nil
}

func (s *fakeSession) DeleteApp(ctx context.Context, appName string) error {
	s.deleteCalls++
	return nil
}

func (s *fakeSession) ListApps(ctx context.Context) ([]caprover.AppInfo, error) {
	return []caprover.AppInfo{{AppName: "my-blog", IsAppBuilding: true}}, nil
}

type fakePlatform struct {
	session *fakeSession
}

func (p *fakePlatform) Login(ctx context.Context) (orchestrator.Session, error) {
	return p.session, nil
}

func (p *fakePlatform) Probe(ctx context.Context) bool { return true }

func (p *fakePlatform) BaseDomain() string { return p.session.baseDomain }

type fakeFactory struct {
	platform orchestrator.Platform
}

func (f *fakeFactory) Platform(ctx context.Context) (orchestrator.Platform, error) {
	return f.platform, nil
}

// =============================================================================
// Test Helpers
// =============================================================================

type apiFixture struct {
	handler http.Handler
	store   store.Store
	session *fakeSession
	user    *domain.User
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	session := &fakeSession{baseDomain: "apps.test"}
	factory := &fakeFactory{platform: &fakePlatform{session: session}}
	coordinator := orchestrator.NewCoordinator(st, factory, nil)

	user, err := domain.NewUser("dev@example.com", "Dev", "hunter2hunter2", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), user))

	return &apiFixture{
		handler: NewHandler(st, coordinator, nil).Routes(),
		store:   st,
		session: session,
		user:    user,
	}
}

// do executes a request as the fixture user.
func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return f.doAs(t, method, path, body, f.user.ID, auth.RoleUser)
}

func (f *apiFixture) doAs(t *testing.T, method, path string, body any, userID, role string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
		req.Header.Set(auth.HeaderUserRole, role)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (f *apiFixture) createProject(t *testing.T, name, fw string) ProjectResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: name, Framework: fw})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ProjectResponse](t, rec)
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHandleHealth(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodGet, "/health", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
}

func TestHandleReady(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodGet, "/ready", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[ReadyResponse](t, rec).Status)
}

// =============================================================================
// Framework Tests
// =============================================================================

func TestHandleListFrameworks(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodGet, "/api/v1/frameworks", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	frameworks := decode[[]FrameworkResponse](t, rec)
	require.NotEmpty(t, frameworks)

	ids := make([]string, 0, len(frameworks))
	for _, fw := range frameworks {
		ids = append(ids, fw.ID)
	}
	assert.Contains(t, ids, "nextjs")
	assert.Contains(t, ids, "static")
}

func TestHandleDetectFramework(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodPost, "/api/v1/frameworks/detect", DetectFrameworkRequest{
		Dependencies: map[string]string{"next": "14.0.0", "react": "18.0.0"},
	}, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nextjs", decode[DetectFrameworkResponse](t, rec).Framework)

	rec = f.doAs(t, http.MethodPost, "/api/v1/frameworks/detect", DetectFrameworkRequest{}, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "static", decode[DetectFrameworkResponse](t, rec).Framework)
}

func TestHandlePreviewArtifacts(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodPost, "/api/v1/frameworks/preview", PreviewArtifactsRequest{
		Framework:   "static",
		ProjectName: "My Site",
	}, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	artifacts := decode[ArtifactsResponse](t, rec)
	assert.Contains(t, artifacts.Dockerfile, "FROM node:18-alpine")
	assert.NotContains(t, artifacts.Dockerfile, "RUN npm run build")
	assert.Contains(t, artifacts.CaptainDefinition, `"schemaVersion": 2`)
}

func TestHandlePreviewArtifacts_UnknownFramework(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodPost, "/api/v1/frameworks/preview", PreviewArtifactsRequest{
		Framework:   "rails",
		ProjectName: "My Site",
	}, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_framework", decode[ErrorResponse](t, rec).Code)
}

// =============================================================================
// Project Tests
// =============================================================================

func TestHandleCreateProject(t *testing.T) {
	f := setupAPI(t)

	project := f.createProject(t, "My Blog", "nextjs")
	assert.Equal(t, "My Blog", project.Name)
	assert.Equal(t, "my-blog", project.AppName)
	assert.Equal(t, "main", project.Branch)
	assert.Equal(t, f.user.ID, project.UserID)
}

func TestHandleCreateProject_Unauthenticated(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: "X", Framework: "static"}, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCreateProject_UnknownFramework(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: "X", Framework: "rails"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_framework", decode[ErrorResponse](t, rec).Code)
}

func TestHandleGetProject_Isolation(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	rec := f.do(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.doAs(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil, "someone-else", auth.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.doAs(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil, "root", auth.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleUpdateProject(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	rec := f.do(t, http.MethodPut, "/api/v1/projects/"+project.ID, UpdateProjectRequest{
		BuildCommand: "yarn build",
		Port:         8080,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[ProjectResponse](t, rec)
	assert.Equal(t, "yarn build", updated.BuildCommand)
	assert.Equal(t, 8080, updated.Port)
	assert.Equal(t, "nextjs", updated.Framework)
}

func TestHandleDeleteProject(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	rec := f.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Environment Variable Tests
// =============================================================================

func TestHandleEnvVariables_SecretsMasked(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	rec := f.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/env", UpsertEnvVariableRequest{
		Key: "API_KEY", Value: "s3cret", IsSecret: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "********", decode[EnvVariableResponse](t, rec).Value)

	rec = f.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/env", UpsertEnvVariableRequest{
		Key: "NODE_ENV", Value: "production",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/env", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	vars := decode[[]EnvVariableResponse](t, rec)
	require.Len(t, vars, 2)
	assert.Equal(t, "API_KEY", vars[0].Key)
	assert.Equal(t, "********", vars[0].Value)
	assert.Equal(t, "NODE_ENV", vars[1].Key)
	assert.Equal(t, "production", vars[1].Value)
}

func TestHandleDeleteEnvVariable(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	rec := f.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/env", UpsertEnvVariableRequest{
		Key: "API_KEY", Value: "v",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID+"/env/API_KEY", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID+"/env/API_KEY", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Deployment Tests
// =============================================================================

func TestHandleStartDeployment(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	rec := f.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/deployments", StartDeploymentRequest{CommitHash: "abc123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	record := decode[DeploymentResponse](t, rec)
	assert.Equal(t, "success", record.Status)
	assert.Equal(t, "https://my-blog.apps.test", record.DeployURL)
	assert.Equal(t, 1, f.session.deployCalls)
}

func TestHandleStartDeployment_TarFile(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")
	tar := []byte("fake tarball bytes")

	// []byte round-trips as base64 in the JSON body.
	rec := f.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/deployments", StartDeploymentRequest{
		CommitHash: "abc123",
		TarFile:    tar,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "success", decode[DeploymentResponse](t, rec).Status)
	assert.Equal(t, tar, f.session.deployedTar)
}

func TestHandleStartDeployment_Conflict(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	inflight := domain.NewDeployment(project.ID, "")
	require.NoError(t, f.store.CreateDeployment(context.Background(), inflight))

	rec := f.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/deployments", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "deployment_in_progress", decode[ErrorResponse](t, rec).Code)
}

func TestHandleGetDeployment(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	record := domain.NewDeployment(project.ID, "")
	require.NoError(t, f.store.CreateDeployment(context.Background(), record))

	rec := f.do(t, http.MethodGet, "/api/v1/deployments/"+record.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", decode[DeploymentResponse](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/api/v1/deployments/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListDeployments(t *testing.T) {
	f := setupAPI(t)
	project := f.createProject(t, "My Blog", "nextjs")

	require.NoError(t, f.store.CreateDeployment(context.Background(), domain.NewDeployment(project.ID, "")))

	rec := f.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/deployments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[ListDeploymentsResponse](t, rec).Total)
}

// =============================================================================
// Admin Tests
// =============================================================================

func TestHandleAdminSettings(t *testing.T) {
	f := setupAPI(t)

	// Regular users are rejected.
	rec := f.do(t, http.MethodPut, "/api/v1/admin/settings", SetSettingRequest{Key: "caprover_server_url", Value: "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.doAs(t, http.MethodPut, "/api/v1/admin/settings", SetSettingRequest{
		Key:   "caprover_server_url",
		Value: "https://captain.example.com",
	}, "root", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.doAs(t, http.MethodGet, "/api/v1/admin/settings", nil, "root", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	settings := decode[[]SettingResponse](t, rec)
	require.Len(t, settings, 1)
	assert.Equal(t, "https://captain.example.com", settings[0].Value)
}

func TestHandleAdminApps(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodGet, "/api/v1/admin/apps", nil, "root", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	apps := decode[[]AppResponse](t, rec)
	require.Len(t, apps, 1)
	assert.Equal(t, "my-blog", apps[0].AppName)
	assert.True(t, apps[0].IsBuilding)

	rec = f.doAs(t, http.MethodDelete, "/api/v1/admin/apps/my-blog", nil, "root", auth.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.session.deleteCalls)

	// Non-admin deletion is refused.
	rec = f.do(t, http.MethodDelete, "/api/v1/admin/apps/my-blog", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleProbePlatform(t *testing.T) {
	f := setupAPI(t)

	rec := f.doAs(t, http.MethodGet, "/api/v1/admin/platform/probe", nil, "root", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[ProbeResponse](t, rec).Reachable)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/platform/probe", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

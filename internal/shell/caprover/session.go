package caprover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// =============================================================================
// Session
// =============================================================================

// Session is an authenticated CapRover session. The token is private to
// the session value and is never persisted; create a fresh session per
// deployment attempt via Client.Login.
type Session struct {
	client *Client
	token  string
}

// RemoteError is returned when the platform answers an authenticated
// call with a non-success status. Body carries the raw response for
// diagnosis.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// do sends an authenticated request and decodes the response envelope.
// Non-2xx statuses become a *RemoteError with the raw body attached.
func (s *Session) do(ctx context.Context, op, method, path string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeader, s.token)
	if s.client.namespace != "" {
		req.Header.Set("x-namespace", s.client.namespace)
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return &env, nil
}

// =============================================================================
// App Registration
// =============================================================================

type registerAppRequest struct {
	AppName           string `json:"appName"`
	HasPersistentData bool   `json:"hasPersistentData"`
}

// RegisterApp registers an app definition. Registering a name that
// already exists fails on the platform side; callers treat that as
// non-fatal since it usually means the app is already there.
func (s *Session) RegisterApp(ctx context.Context, appName string, hasPersistentData bool) error {
	_, err := s.do(ctx, "RegisterApp", http.MethodPost,
		"/api/v2/user/apps/appDefinitions/register",
		registerAppRequest{AppName: appName, HasPersistentData: hasPersistentData})
	return err
}

// =============================================================================
// Deploy
// =============================================================================

// DeployRequest describes one build upload.
type DeployRequest struct {
	AppName           string
	CaptainDefinition string
	GitHash           string // Empty means "generate a time-based tag"
	TarFile           []byte // Optional source archive
}

// DeployResult is the outcome of a successful deploy call.
type DeployResult struct {
	DeployURL string
	GitHash   string
}

type deployAppRequest struct {
	CaptainDefinitionContent string `json:"captainDefinitionContent"`
	GitHash                  string `json:"gitHash"`
	TarFile                  string `json:"tarFile,omitempty"`
}

// Deploy uploads the captain definition (and optional source archive)
// and kicks off a remote build. Every call carries a version tag so
// repeated deploys are distinguishable; when the caller supplies none,
// a millisecond timestamp is used.
func (s *Session) Deploy(ctx context.Context, dr DeployRequest) (DeployResult, error) {
	gitHash := dr.GitHash
	if gitHash == "" {
		gitHash = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	req := deployAppRequest{
		CaptainDefinitionContent: dr.CaptainDefinition,
		GitHash:                  gitHash,
	}
	if len(dr.TarFile) > 0 {
		req.TarFile = base64.StdEncoding.EncodeToString(dr.TarFile)
	}

	_, err := s.do(ctx, "Deploy", http.MethodPost,
		"/api/v2/user/apps/appData/"+dr.AppName, req)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		DeployURL: fmt.Sprintf("https://%s.%s", dr.AppName, s.client.BaseDomain()),
		GitHash:   gitHash,
	}, nil
}

// =============================================================================
// Build Logs
// =============================================================================

type logsData struct {
	Logs string `json:"logs"`
}

// BuildLogs fetches the app's build logs. Logs are diagnostic, not
// load-bearing: any failure degrades to an empty string.
func (s *Session) BuildLogs(ctx context.Context, appName string) string {
	env, err := s.do(ctx, "BuildLogs", http.MethodGet,
		"/api/v2/user/apps/appData/"+appName+"/logs", nil)
	if err != nil {
		s.client.logger.Debug("build logs unavailable", "app", appName, "error", err)
		return ""
	}
	var data logsData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ""
	}
	return data.Logs
}

// =============================================================================
// App Info and Status
// =============================================================================

// PushWebhook is the app's push-to-deploy webhook state.
type PushWebhook struct {
	IsEnabled bool `json:"isEnabled"`
}

// AppInfo is the subset of the app definition the orchestrator reads.
type AppInfo struct {
	AppName        string       `json:"appName"`
	IsAppBuilding  bool         `json:"isAppBuilding"`
	AppPushWebhook *PushWebhook `json:"appPushWebhook,omitempty"`
	HasDefaultSSL  bool         `json:"hasDefaultSubDomainSsl"`
	InstanceCount  int          `json:"instanceCount"`
}

// AppInfo fetches the app definition, nil when the remote call fails or
// the app does not exist.
func (s *Session) AppInfo(ctx context.Context, appName string) (*AppInfo, error) {
	env, err := s.do(ctx, "AppInfo", http.MethodGet,
		"/api/v2/user/apps/appDefinitions/"+appName, nil)
	if err != nil {
		return nil, err
	}
	var info AppInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, fmt.Errorf("AppInfo: decode app info: %w", err)
	}
	return &info, nil
}

// AppStatus is the derived deployment state of a remote app.
type AppStatus string

const (
	AppStatusBuilding AppStatus = "building"
	AppStatusDeployed AppStatus = "deployed"
	AppStatusStopped  AppStatus = "stopped"
	AppStatusUnknown  AppStatus = "unknown"
)

// Status derives the app's deployment state from its definition flags.
// A build in progress takes priority over the webhook state; absence of
// app info yields unknown.
func (s *Session) Status(ctx context.Context, appName string) AppStatus {
	info, err := s.AppInfo(ctx, appName)
	if err != nil || info == nil {
		return AppStatusUnknown
	}
	return DeriveStatus(info)
}

// DeriveStatus maps app-definition flags to an AppStatus.
func DeriveStatus(info *AppInfo) AppStatus {
	if info == nil {
		return AppStatusUnknown
	}
	if info.IsAppBuilding {
		return AppStatusBuilding
	}
	if info.AppPushWebhook != nil && info.AppPushWebhook.IsEnabled {
		return AppStatusDeployed
	}
	return AppStatusStopped
}

// =============================================================================
// Environment Variables
// =============================================================================

// EnvVar is one key/value pair pushed to the app definition.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type updateAppRequest struct {
	AppName string   `json:"appName"`
	EnvVars []EnvVar `json:"envVars"`
}

// SetEnvVars replaces the app's environment variables. Order of the
// slice is preserved on the wire.
func (s *Session) SetEnvVars(ctx context.Context, appName string, vars []EnvVar) error {
	_, err := s.do(ctx, "SetEnvVars", http.MethodPost,
		"/api/v2/user/apps/appDefinitions/update",
		updateAppRequest{AppName: appName, EnvVars: vars})
	return err
}

// =============================================================================
// SSL
// =============================================================================

type enableSSLRequest struct {
	AppName      string `json:"appName"`
	CustomDomain string `json:"customDomain,omitempty"`
}

// EnableSSL enables TLS for the app's default subdomain, or for a
// custom domain when one is given.
func (s *Session) EnableSSL(ctx context.Context, appName, customDomain string) error {
	_, err := s.do(ctx, "EnableSSL", http.MethodPost,
		"/api/v2/user/apps/appDefinitions/enablessl",
		enableSSLRequest{AppName: appName, CustomDomain: customDomain})
	return err
}

// =============================================================================
// App Management
// =============================================================================

// DeleteApp removes the app definition from the platform.
func (s *Session) DeleteApp(ctx context.Context, appName string) error {
	_, err := s.do(ctx, "DeleteApp", http.MethodDelete,
		"/api/v2/user/apps/appDefinitions/"+appName, nil)
	return err
}

type appListData struct {
	AppDefinitions []AppInfo `json:"appDefinitions"`
}

// ListApps returns every app definition registered on the platform.
func (s *Session) ListApps(ctx context.Context) ([]AppInfo, error) {
	env, err := s.do(ctx, "ListApps", http.MethodGet,
		"/api/v2/user/apps/appDefinitions", nil)
	if err != nil {
		return nil, err
	}
	var data appListData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("ListApps: decode app list: %w", err)
	}
	return data.AppDefinitions, nil
}

package api

import "time"

// =============================================================================
// Request Types
// =============================================================================

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name           string `json:"name"`
	Framework      string `json:"framework"`
	RepositoryURL  string `json:"repository_url,omitempty"`
	Branch         string `json:"branch,omitempty"`
	BuildCommand   string `json:"build_command,omitempty"`
	InstallCommand string `json:"install_command,omitempty"`
	OutputDir      string `json:"output_directory,omitempty"`
	Port           int    `json:"port,omitempty"`
}

// UpdateProjectRequest is the request body for updating a project.
// Empty fields keep their current value.
type UpdateProjectRequest struct {
	Name           string `json:"name,omitempty"`
	Framework      string `json:"framework,omitempty"`
	RepositoryURL  string `json:"repository_url,omitempty"`
	Branch         string `json:"branch,omitempty"`
	BuildCommand   string `json:"build_command,omitempty"`
	InstallCommand string `json:"install_command,omitempty"`
	OutputDir      string `json:"output_directory,omitempty"`
	Port           int    `json:"port,omitempty"`
}

// UpsertEnvVariableRequest is the request body for setting a project
// environment variable.
type UpsertEnvVariableRequest struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret,omitempty"`
}

// StartDeploymentRequest is the request body for starting a deployment.
// TarFile is a base64-encoded source archive; when absent the platform
// builds from the captain definition alone.
type StartDeploymentRequest struct {
	CommitHash string `json:"commit_hash,omitempty"`
	TarFile    []byte `json:"tar_file,omitempty"`
}

// DetectFrameworkRequest carries a package manifest's dependency maps.
type DetectFrameworkRequest struct {
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"dev_dependencies,omitempty"`
}

// PreviewArtifactsRequest is the request body for rendering artifacts
// without deploying.
type PreviewArtifactsRequest struct {
	Framework      string  `json:"framework"`
	ProjectName    string  `json:"project_name"`
	BuildCommand   *string `json:"build_command,omitempty"`
	StartCommand   string  `json:"start_command,omitempty"`
	InstallCommand string  `json:"install_command,omitempty"`
	OutputDir      string  `json:"output_directory,omitempty"`
	Port           int     `json:"port,omitempty"`
}

// SetSettingRequest is the request body for writing an admin setting.
type SetSettingRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// EnableSSLRequest is the request body for enabling TLS on an app.
type EnableSSLRequest struct {
	CustomDomain string `json:"custom_domain,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// ProjectResponse is the response for project operations.
type ProjectResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	AppName        string    `json:"app_name"`
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

// DeploymentResponse is the response for deployment operations.
type DeploymentResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Status      string    `json:"status"`
	BuildLogs   string    `json:"build_logs,omitempty"`
	DeployURL   string    `json:"deploy_url,omitempty"`
	CommitHash  string    `json:"commit_hash,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EnvVariableResponse is the response for environment variables. Secret
// values arrive masked.
type EnvVariableResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsSecret  bool      `json:"is_secret"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FrameworkResponse describes one supported framework.
type FrameworkResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Port  int    `json:"port"`
}

// DetectFrameworkResponse carries the detected framework ID.
type DetectFrameworkResponse struct {
	Framework string `json:"framework"`
}

// ArtifactsResponse carries rendered deployment artifacts.
type ArtifactsResponse struct {
	Dockerfile        string `json:"dockerfile"`
	CaptainDefinition string `json:"captain_definition"`
	DockerCompose     string `json:"docker_compose"`
}

// SettingResponse is the response for admin settings.
type SettingResponse struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppResponse describes an app registered on the remote platform.
type AppResponse struct {
	AppName       string `json:"app_name"`
	IsBuilding    bool   `json:"is_building"`
	HasDefaultSSL bool   `json:"has_default_ssl"`
	InstanceCount int    `json:"instance_count"`
}

// ProbeResponse is the platform reachability response.
type ProbeResponse struct {
	Reachable bool `json:"reachable"`
}

// ListProjectsResponse is the response for listing projects.
type ListProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ListDeploymentsResponse is the response for listing deployments.
type ListDeploymentsResponse struct {
	Deployments []DeploymentResponse `json:"deployments"`
	Total       int                  `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Package api provides HTTP handlers for the DeployHub API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deployhub/deployhub/internal/core/artifact"
	"github.com/deployhub/deployhub/internal/core/auth"
	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/core/framework"
	"github.com/deployhub/deployhub/internal/shell/orchestrator"
	"github.com/deployhub/deployhub/internal/shell/store"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store       store.Store
	coordinator *orchestrator.Coordinator
	logger      *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, c *orchestrator.Coordinator, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		store:       s,
		coordinator: c,
		logger:      l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)
	r.Use(h.callerIdentity)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Framework routes (no identity required)
		r.Route("/frameworks", func(r chi.Router) {
			r.Get("/", h.handleListFrameworks)
			r.Post("/detect", h.handleDetectFramework)
			r.Post("/preview", h.handlePreviewArtifacts)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.handleCreateProject)
			r.Get("/", h.handleListProjects)
			r.Get("/{id}", h.handleGetProject)
			r.Put("/{id}", h.handleUpdateProject)
			r.Delete("/{id}", h.handleDeleteProject)

			r.Get("/{id}/env", h.handleListEnvVariables)
			r.Post("/{id}/env", h.handleUpsertEnvVariable)
			r.Delete("/{id}/env/{key}", h.handleDeleteEnvVariable)

			r.Post("/{id}/deployments", h.handleStartDeployment)
			r.Get("/{id}/deployments", h.handleListDeployments)
		})

		// Deployment routes
		r.Get("/deployments/{id}", h.handleGetDeployment)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/settings", h.handleListSettings)
			r.Put("/settings", h.handleSetSetting)
			r.Get("/apps", h.handleListApps)
			r.Delete("/apps/{name}", h.handleDeleteApp)
			r.Post("/apps/{name}/ssl", h.handleEnableSSL)
			r.Get("/platform/probe", h.handleProbePlatform)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// callerIdentity extracts the caller identity from request headers and
// stores it in the context. Authorization decisions happen per handler.
func (h *Handler) callerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.ExtractFromRequest(r)
		next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), id)))
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}

	if _, err := h.store.ListSettings(r.Context()); err != nil {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Framework Handlers
// =============================================================================

func (h *Handler) handleListFrameworks(w http.ResponseWriter, r *http.Request) {
	ids := framework.List()
	resp := make([]FrameworkResponse, 0, len(ids))
	for _, id := range ids {
		profile, err := framework.Resolve(id)
		if err != nil {
			continue
		}
		resp = append(resp, FrameworkResponse{
			ID:    profile.ID,
			Label: profile.Label,
			Port:  profile.Port,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDetectFramework(w http.ResponseWriter, r *http.Request) {
	var req DetectFrameworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	deps := make(map[string]string, len(req.Dependencies)+len(req.DevDependencies))
	for k, v := range req.Dependencies {
		deps[k] = v
	}
	for k, v := range req.DevDependencies {
		deps[k] = v
	}

	h.writeJSON(w, http.StatusOK, DetectFrameworkResponse{Framework: framework.Detect(deps)})
}

func (h *Handler) handlePreviewArtifacts(w http.ResponseWriter, r *http.Request) {
	var req PreviewArtifactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if req.ProjectName == "" {
		h.writeError(w, http.StatusBadRequest, "project_name is required", "validation_error")
		return
	}

	artifacts, err := h.coordinator.PreviewArtifacts(req.Framework, domain.Slugify(req.ProjectName), artifact.Overrides{
		BuildCommand:   req.BuildCommand,
		StartCommand:   req.StartCommand,
		InstallCommand: req.InstallCommand,
		OutputDir:      req.OutputDir,
		Port:           req.Port,
	})
	if err != nil {
		if errors.Is(err, framework.ErrUnknownFramework) {
			h.writeError(w, http.StatusBadRequest, err.Error(), "unknown_framework")
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	h.writeJSON(w, http.StatusOK, ArtifactsResponse{
		Dockerfile:        artifacts.Dockerfile,
		CaptainDefinition: artifacts.CaptainDefinition,
		DockerCompose:     artifacts.DockerCompose,
	})
}

// =============================================================================
// Helpers
// =============================================================================

// identity returns the caller identity, writing a 401 when absent.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id := auth.FromContext(r.Context())
	if !id.Authenticated {
		h.writeError(w, http.StatusUnauthorized, "authentication required", "unauthenticated")
		return id, false
	}
	return id, true
}

// listOptions parses limit/offset query parameters.
func listOptions(r *http.Request) store.ListOptions {
	opts := store.DefaultListOptions()
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	return opts
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeOperationError maps domain and store errors to HTTP statuses.
func (h *Handler) writeOperationError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case isNotFound(err):
		h.writeError(w, http.StatusNotFound, "not found", "not_found")
	case errors.Is(err, auth.ErrUnauthenticated):
		h.writeError(w, http.StatusUnauthorized, "authentication required", "unauthenticated")
	case errors.Is(err, auth.ErrForbidden):
		h.writeError(w, http.StatusForbidden, "access denied", "forbidden")
	case errors.Is(err, orchestrator.ErrDeploymentInProgress):
		h.writeError(w, http.StatusConflict, err.Error(), "deployment_in_progress")
	case errors.Is(err, orchestrator.ErrPlatformNotConfigured):
		h.writeError(w, http.StatusConflict, err.Error(), "platform_not_configured")
	default:
		h.logger.Error(fallback, "error", err)
		h.writeError(w, http.StatusInternalServerError, fallback, "internal_error")
	}
}

// isNotFound checks if an error is a not found error.
func isNotFound(err error) bool {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return errors.Is(storeErr.Unwrap(), store.ErrNotFound)
	}
	return errors.Is(err, store.ErrNotFound)
}

// =============================================================================
// Response Conversion
// =============================================================================

func projectToResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Name:           p.Name,
		AppName:        p.AppName(),
		RepositoryURL:  p.RepositoryURL,
		Branch:         p.Branch,
		Framework:      p.Framework,
		BuildCommand:   p.BuildCommand,
		InstallCommand: p.InstallCommand,
		OutputDir:      p.OutputDir,
		Port:           p.Port,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func deploymentToResponse(d *domain.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		Status:      string(d.Status),
		BuildLogs:   d.BuildLogs,
		DeployURL:   d.DeployURL,
		CommitHash:  d.CommitHash,
		ErrorKind:   d.ErrorKind,
		ErrorDetail: d.ErrorDetail,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func envVariableToResponse(v domain.EnvVariable) EnvVariableResponse {
	redacted := v.Redacted()
	return EnvVariableResponse{
		Key:       redacted.Key,
		Value:     redacted.Value,
		IsSecret:  redacted.IsSecret,
		UpdatedAt: redacted.UpdatedAt,
	}
}

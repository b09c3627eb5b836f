package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deployhub/deployhub/internal/core/auth"
	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/core/framework"
)

// =============================================================================
// Project Handlers
// =============================================================================

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	fw := req.Framework
	if fw == "" {
		fw = framework.DefaultFramework
	}
	if _, err := framework.Resolve(fw); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "unknown_framework")
		return
	}

	project, err := domain.NewProject(id.UserID, req.Name, fw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}
	if req.Branch != "" {
		project.Branch = req.Branch
	}
	project.RepositoryURL = req.RepositoryURL
	project.BuildCommand = req.BuildCommand
	project.InstallCommand = req.InstallCommand
	project.OutputDir = req.OutputDir
	project.Port = req.Port

	if err := h.store.CreateProject(r.Context(), project); err != nil {
		h.writeOperationError(w, err, "failed to create project")
		return
	}

	h.writeJSON(w, http.StatusCreated, projectToResponse(project))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	opts := listOptions(r)

	projects, err := h.store.ListProjectsByUser(r.Context(), id.UserID, opts)
	if err != nil {
		h.writeOperationError(w, err, "failed to list projects")
		return
	}

	resp := ListProjectsResponse{
		Projects: make([]ProjectResponse, 0, len(projects)),
		Total:    len(projects),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	for i := range projects {
		resp.Projects = append(resp.Projects, projectToResponse(&projects[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// loadProject fetches a project and enforces the caller's access to it.
func (h *Handler) loadProject(w http.ResponseWriter, r *http.Request, id auth.Identity) (*domain.Project, bool) {
	project, err := h.store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeOperationError(w, err, "failed to get project")
		return nil, false
	}
	if err := auth.CanAccessProject(id, project.UserID); err != nil {
		h.writeOperationError(w, err, "access check failed")
		return nil, false
	}
	return project, true
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	project, ok := h.loadProject(w, r, id)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, projectToResponse(project))
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	project, ok := h.loadProject(w, r, id)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if req.Name != "" {
		if domain.Slugify(req.Name) == "" {
			h.writeError(w, http.StatusBadRequest, "name yields no valid app name", "validation_error")
			return
		}
		project.Name = req.Name
	}
	if req.Framework != "" {
		if _, err := framework.Resolve(req.Framework); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error(), "unknown_framework")
			return
		}
		project.Framework = req.Framework
	}
	if req.RepositoryURL != "" {
		project.RepositoryURL = req.RepositoryURL
	}
	if req.Branch != "" {
		project.Branch = req.Branch
	}
	if req.BuildCommand != "" {
		project.BuildCommand = req.BuildCommand
	}
	if req.InstallCommand != "" {
		project.InstallCommand = req.InstallCommand
	}
	if req.OutputDir != "" {
		project.OutputDir = req.OutputDir
	}
	if req.Port != 0 {
		project.Port = req.Port
	}
	project.UpdatedAt = time.Now().UTC()

	if err := h.store.UpdateProject(r.Context(), project); err != nil {
		h.writeOperationError(w, err, "failed to update project")
		return
	}

	h.writeJSON(w, http.StatusOK, projectToResponse(project))
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	project, ok := h.loadProject(w, r, id)
	if !ok {
		return
	}

	if err := h.store.DeleteProject(r.Context(), project.ID); err != nil {
		h.writeOperationError(w, err, "failed to delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Environment Variable Handlers
// =============================================================================

func (h *Handler) handleListEnvVariables(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	project, ok := h.loadProject(w, r, id)
	if !ok {
		return
	}

	vars, err := h.store.ListEnvVariables(r.Context(), project.ID)
	if err != nil {
		h.writeOperationError(w, err, "failed to list env variables")
		return
	}

	resp := make([]EnvVariableResponse, 0, len(vars))
	for _, v := range vars {
		resp = append(resp, envVariableToResponse(v))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpsertEnvVariable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	project, ok := h.loadProject(w, r, id)
	if !ok {
		return
	}

	var req UpsertEnvVariableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if req.Key == "" {
		h.writeError(w, http.StatusBadRequest, "key is required", "validation_error")
		return
	}

	now := time.Now().UTC()
	v := &domain.EnvVariable{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Key:       req.Key,
		Value:     req.Value,
		IsSecret:  req.IsSecret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.UpsertEnvVariable(r.Context(), v); err != nil {
		h.writeOperationError(w, err, "failed to set env variable")
		return
	}

	h.writeJSON(w, http.StatusOK, envVariableToResponse(*v))
}

func (h *Handler) handleDeleteEnvVariable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	project, ok := h.loadProject(w, r, id)
	if !ok {
		return
	}

	if err := h.store.DeleteEnvVariable(r.Context(), project.ID, chi.URLParam(r, "key")); err != nil {
		h.writeOperationError(w, err, "failed to delete env variable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deployhub/deployhub/internal/shell/orchestrator"
)

// =============================================================================
// Deployment Handlers
// =============================================================================

func (h *Handler) handleStartDeployment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req StartDeploymentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
			return
		}
	}

	record, err := h.coordinator.StartDeployment(r.Context(), orchestrator.StartRequest{
		ProjectID:  chi.URLParam(r, "id"),
		CommitHash: req.CommitHash,
		TarFile:    req.TarFile,
	}, id)
	if err != nil {
		h.writeOperationError(w, err, "failed to start deployment")
		return
	}

	h.writeJSON(w, http.StatusCreated, deploymentToResponse(record))
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	opts := listOptions(r)

	deployments, err := h.coordinator.ListDeployments(r.Context(), chi.URLParam(r, "id"), id, opts)
	if err != nil {
		h.writeOperationError(w, err, "failed to list deployments")
		return
	}

	resp := ListDeploymentsResponse{
		Deployments: make([]DeploymentResponse, 0, len(deployments)),
		Total:       len(deployments),
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}
	for i := range deployments {
		resp.Deployments = append(resp.Deployments, deploymentToResponse(&deployments[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	record, err := h.coordinator.GetDeployment(r.Context(), chi.URLParam(r, "id"), id)
	if err != nil {
		h.writeOperationError(w, err, "failed to get deployment")
		return
	}

	h.writeJSON(w, http.StatusOK, deploymentToResponse(record))
}

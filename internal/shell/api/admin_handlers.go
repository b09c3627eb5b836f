package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deployhub/deployhub/internal/core/auth"
	"github.com/deployhub/deployhub/internal/core/domain"
)

// =============================================================================
// Admin Settings Handlers
// =============================================================================

// requireAdmin enforces the admin role, writing the error response when
// the caller does not hold it.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id := auth.FromContext(r.Context())
	if err := auth.RequireAdmin(id); err != nil {
		h.writeOperationError(w, err, "admin check failed")
		return id, false
	}
	return id, true
}

func (h *Handler) handleListSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		h.writeOperationError(w, err, "failed to list settings")
		return
	}

	resp := make([]SettingResponse, 0, len(settings))
	for _, s := range settings {
		resp = append(resp, SettingResponse{
			Key:         s.Key,
			Value:       s.Value,
			Description: s.Description,
			UpdatedAt:   s.UpdatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req SetSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if req.Key == "" {
		h.writeError(w, http.StatusBadRequest, "key is required", "validation_error")
		return
	}

	setting := &domain.Setting{
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := h.store.SetSetting(r.Context(), setting); err != nil {
		h.writeOperationError(w, err, "failed to save setting")
		return
	}

	h.writeJSON(w, http.StatusOK, SettingResponse{
		Key:         setting.Key,
		Value:       setting.Value,
		Description: setting.Description,
		UpdatedAt:   setting.UpdatedAt,
	})
}

// =============================================================================
// Admin App Handlers
// =============================================================================

func (h *Handler) handleListApps(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	apps, err := h.coordinator.ListApps(r.Context(), id)
	if err != nil {
		h.writeOperationError(w, err, "failed to list apps")
		return
	}

	resp := make([]AppResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, AppResponse{
			AppName:       app.AppName,
			IsBuilding:    app.IsAppBuilding,
			HasDefaultSSL: app.HasDefaultSSL,
			InstanceCount: app.InstanceCount,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	if err := h.coordinator.DeleteApp(r.Context(), chi.URLParam(r, "name"), id); err != nil {
		h.writeOperationError(w, err, "failed to delete app")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEnableSSL(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	var req EnableSSLRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
			return
		}
	}

	if err := h.coordinator.EnableSSL(r.Context(), chi.URLParam(r, "name"), req.CustomDomain, id); err != nil {
		h.writeOperationError(w, err, "failed to enable ssl")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProbePlatform(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	reachable, err := h.coordinator.ProbePlatform(r.Context(), id)
	if err != nil {
		h.writeOperationError(w, err, "failed to probe platform")
		return
	}

	h.writeJSON(w, http.StatusOK, ProbeResponse{Reachable: reachable})
}

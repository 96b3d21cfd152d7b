package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/amptracker/amp-tracker/internal/api/respond"
	"github.com/amptracker/amp-tracker/internal/api/validate"
	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/services"
)

// TemplateHandler serves the role-scoped template catalog. Mutations are
// admin-only; the router enforces that before these handlers run.
type TemplateHandler struct {
	svc *services.TemplateService
}

func NewTemplateHandler(svc *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// GetTemplate GET /api/templates/{role}
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]
	if err := validate.Role(role); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	ts, err := h.svc.GetTemplate(r.Context(), role)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ts)
}

// ListVersions GET /api/templates/{role}/versions
func (h *TemplateHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]
	if err := validate.Role(role); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	versions, err := h.svc.ListVersions(r.Context(), role)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"count":    len(versions),
	})
}

// PutTemplate POST /api/templates
func (h *TemplateHandler) PutTemplate(w http.ResponseWriter, r *http.Request) {
	var in model.TemplateSet
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Role(in.Role); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.PutTemplate(r.Context(), &in)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// Activate POST /api/templates/{role}/versions/{version}/activate
func (h *TemplateHandler) Activate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := validate.Role(vars["role"]); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	version, err := strconv.Atoi(vars["version"])
	if err != nil || version < 1 {
		respond.WriteBadRequest(w, "version must be a positive integer")
		return
	}
	if err := h.svc.Activate(r.Context(), vars["role"], version); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

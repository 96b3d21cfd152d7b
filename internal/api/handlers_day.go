package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/amptracker/amp-tracker/internal/api/respond"
	"github.com/amptracker/amp-tracker/internal/api/validate"
	"github.com/amptracker/amp-tracker/internal/services"
)

// DayHandler is the HTTP transport over DayService: the hydrated read and
// every completion-recorder write.
type DayHandler struct {
	svc *services.DayService
}

func NewDayHandler(svc *services.DayService) *DayHandler { return &DayHandler{svc: svc} }

// HydrateDay GET /api/users/{userId}/days/{date}
func (h *DayHandler) HydrateDay(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := validate.Date(vars["date"]); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	view, err := h.svc.HydrateDay(r.Context(), vars["userId"], vars["date"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, view)
}

// CompleteChecklistItem POST /api/users/{userId}/days/{date}/checklists/{checklistId}/items/{itemId}/complete
func (h *DayHandler) CompleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		ItemText string `json:"itemText,omitempty"`
	}
	// Body is optional; itemText is a display-only denormalization.
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respond.WriteBadRequest(w, "Invalid JSON")
			return
		}
	}
	err := h.svc.CompleteChecklistItem(r.Context(), vars["userId"], vars["checklistId"], vars["itemId"], in.ItemText, vars["date"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UncompleteChecklistItem DELETE /api/users/{userId}/days/{date}/checklists/{checklistId}/items/{itemId}/complete
func (h *DayHandler) UncompleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.svc.UncompleteChecklistItem(r.Context(), vars["userId"], vars["checklistId"], vars["itemId"], vars["date"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetChecklistNotes PUT /api/users/{userId}/days/{date}/checklists/{checklistId}/notes
func (h *DayHandler) SetChecklistNotes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	err := h.svc.AddChecklistNotes(r.Context(), vars["userId"], vars["checklistId"], in.Notes, vars["date"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTimeBlock POST /api/users/{userId}/days/{date}/blocks/{blockId}/toggle
func (h *DayHandler) ToggleTimeBlock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.ToggleTimeBlock(r.Context(), vars["userId"], vars["date"], vars["blockId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddBlockNote POST /api/users/{userId}/days/{date}/blocks/{blockId}/notes
func (h *DayHandler) AddBlockNote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.AddBlockNote(r.Context(), vars["userId"], vars["date"], vars["blockId"], in.Note); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTodoItem POST /api/users/{userId}/days/{date}/todos
func (h *DayHandler) AddTodoItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	item, err := h.svc.AddTodoItem(r.Context(), vars["userId"], vars["date"], in.Text)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, item)
}

// SetTodoCompleted PUT /api/users/{userId}/days/{date}/todos/{itemId}
func (h *DayHandler) SetTodoCompleted(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	err := h.svc.SetTodoCompleted(r.Context(), vars["userId"], vars["date"], vars["itemId"], in.Completed)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetWakeTime PUT /api/users/{userId}/days/{date}/wake-time
func (h *DayHandler) SetWakeTime(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		WakeTime string `json:"wakeTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.SetWakeTime(r.Context(), vars["userId"], vars["date"], in.WakeTime); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

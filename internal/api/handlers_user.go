package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/amptracker/amp-tracker/internal/api/respond"
	"github.com/amptracker/amp-tracker/internal/api/validate"
	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/services"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler { return &UserHandler{svc: svc} }

// CreateUser POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID      string  `json:"userId"`
		Email       string  `json:"email"`
		DisplayName *string `json:"displayName,omitempty"`
		TimeZone    string  `json:"timeZone"`
		Role        string  `json:"role,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateUser(in.UserID, in.Email, in.TimeZone, in.DisplayName); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	u := &model.User{
		UserID:      in.UserID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		TimeZone:    in.TimeZone,
		Role:        in.Role,
	}
	out, err := h.svc.CreateUser(r.Context(), u)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetUser GET /api/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		respond.WriteBadRequest(w, "userId required")
		return
	}
	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// DeleteUser DELETE /api/users/{userId}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := h.svc.DeleteUser(r.Context(), userID); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

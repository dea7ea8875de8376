package mockapi

import (
	"net/http"
	"strings"

	"storefront-state/internal/directory"
	"storefront-state/internal/domain"
	"storefront-state/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// UserHandler serves the admin user management endpoints
type UserHandler struct {
	users directory.Provider
}

func NewUserHandler(users directory.Provider) *UserHandler {
	return &UserHandler{users: users}
}

// List accepts role, status (active or inactive) and q filters
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := directory.Filter{
		Role:   domain.Role(query.Get("role")),
		Search: query.Get("q"),
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		writeError(w, http.StatusBadRequest, "Unknown role")
		return
	}
	switch status := query.Get("status"); status {
	case "":
	case "active", "inactive":
		active := status == "active"
		filter.Active = &active
	default:
		writeError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	users, err := h.users.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateRequest
	if !decode(w, r, &req) {
		return
	}

	created, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u domain.User
	if !decode(w, r, &u) {
		return
	}
	u.ID = chi.URLParam(r, "id")

	updated, err := h.users.Update(r.Context(), u)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes an account. Admins cannot delete their own.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allowedOnOther(w, r, id, "You cannot delete your own account") {
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleStatus activates or deactivates an account. Admins cannot
// deactivate their own.
func (h *UserHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allowedOnOther(w, r, id, "You cannot change the status of your own account") {
		return
	}
	user, err := h.users.ToggleActive(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// allowedOnOther writes an error and returns false when id is missing or
// belongs to the caller. Token identities are matched by email.
func (h *UserHandler) allowedOnOther(w http.ResponseWriter, r *http.Request, id, selfMessage string) bool {
	target, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return false
	}
	if caller, ok := middleware.GetIdentity(r.Context()); ok &&
		(caller.ID == target.ID || strings.EqualFold(caller.Email, target.Email)) {
		writeError(w, http.StatusBadRequest, selfMessage)
		return false
	}
	return true
}

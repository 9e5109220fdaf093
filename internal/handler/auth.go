package handler

import (
	"net/http"

	"github.com/Dan9191/smartbank/internal/middleware"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/service"
)

type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Currency  string `json:"currency"`
	Language  string `json:"language"`
	Theme     string `json:"theme"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Currency:  u.Currency,
		Language:  u.Language,
		Theme:     u.Theme,
	}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.Auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Usuario registrado exitosamente",
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name(),
		},
	})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		h.writeError(w, r, models.Invalid("credentials", "email and password are required"))
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": res.Token,
		"user":  newUserResponse(res.User),
	})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user": newUserResponse(middleware.UserFromContext(r.Context())),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if err := h.svc.Auth.Logout(r.Context(), session.UserID, session.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Dashboard.UserData(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if err := decode(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	settings, err := h.svc.Catalog.UpdateSettings(r.Context(), userID(r), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Dashboard.Summary(r.Context(), userID(r), r.URL.Query().Get("period"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

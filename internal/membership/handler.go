// internal/membership/handler.go
package membership

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libradesk/internal/apperr"
	"libradesk/internal/auth"
	"libradesk/internal/web"
)

type Handler struct {
	service Service
	issuer  *auth.TokenIssuer
}

func NewHandler(service Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{service: service, issuer: issuer}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, users)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateUserInput
	if err := web.Decode(r, &in); err != nil {
		web.RespondError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, user)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, apperr.Validation("invalid user ID"))
		return
	}

	var in UpdateUserInput
	if err := web.Decode(r, &in); err != nil {
		web.RespondError(w, err)
		return
	}

	user, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, user)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, apperr.Validation("invalid user ID"))
		return
	}

	user, err := h.service.Delete(r.Context(), id)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, user)
}

// Login verifies credentials and returns a signed session token for the
// presentation layer.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			web.Respond(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrTooManyAttempts):
			web.Respond(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		default:
			web.RespondError(w, err)
		}
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		web.RespondError(w, err)
		return
	}

	web.Respond(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

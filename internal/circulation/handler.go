// internal/circulation/handler.go
package circulation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libradesk/internal/apperr"
	"libradesk/internal/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type createLoanRequest struct {
	UserID  uuid.UUID `json:"userId"`
	BookID  uuid.UUID `json:"bookId"`
	DueDate string    `json:"dueDate"`
}

type updateLoanRequest struct {
	UserID  *uuid.UUID `json:"userId"`
	BookID  *uuid.UUID `json:"bookId"`
	DueDate *string    `json:"dueDate"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListLoansFilter{Status: Status(r.URL.Query().Get("status"))}

	loans, err := h.service.List(r.Context(), filter)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, loans)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, err)
		return
	}

	in := CreateLoanInput{UserID: req.UserID, BookID: req.BookID}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			web.RespondError(w, err)
			return
		}
		in.DueDate = due
	}

	loan, err := h.service.Create(r.Context(), in)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, loan)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, apperr.Validation("invalid loan ID"))
		return
	}

	var req updateLoanRequest
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, err)
		return
	}

	in := UpdateLoanInput{UserID: req.UserID, BookID: req.BookID}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			web.RespondError(w, err)
			return
		}
		in.DueDate = &due
	}

	loan, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, loan)
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, apperr.Validation("invalid loan ID"))
		return
	}

	loan, err := h.service.Return(r.Context(), id)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, loan)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, apperr.Validation("invalid loan ID"))
		return
	}

	loan, err := h.service.Delete(r.Context(), id)
	if err != nil {
		web.RespondError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, loan)
}

// parseDate accepts either RFC 3339 timestamps or bare dates, which is what
// the date inputs in the UI submit.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("invalid due date")
}

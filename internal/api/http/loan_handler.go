package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/service"
)

// LoanHandler serves the loan lifecycle endpoints
type LoanHandler struct {
	circulation service.CirculationService
}

func (h *LoanHandler) IssueDirectly(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MemberID     int32  `json:"member_id"`
		BookID       int32  `json:"book_id"`
		LibrarianID  int32  `json:"librarian_id"`
		DurationDays int32  `json:"duration_days"`
		Notes        string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	loan, err := h.circulation.IssueDirectly(r.Context(), payload.MemberID, payload.BookID, payload.LibrarianID, payload.DurationDays, payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	loan, err := h.circulation.GetLoan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		ReturnedTo     int32  `json:"returned_to"`
		Condition      string `json:"condition"`
		DamageFeeCents int32  `json:"damage_fee_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	loan, err := h.circulation.ReturnLoan(r.Context(), id, payload.ReturnedTo, payload.Condition, payload.DamageFeeCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		ExtraDays int32 `json:"extra_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	loan, err := h.circulation.RenewLoan(r.Context(), id, payload.ExtraDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// ListOverdue reports loans past due as of the optional as_of date
// (YYYY-MM-DD, default today). Read-only; the nightly job owns the
// status flip.
func (h *LoanHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid as_of %q", domain.ErrInvalidArgument, raw))
			return
		}
		asOf = parsed
	}
	loans, err := h.circulation.ListOverdue(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"library-backend/internal/domain"
	"library-backend/internal/service"
)

// RequestHandler serves the borrow-request lifecycle endpoints
type RequestHandler struct {
	circulation service.CirculationService
}

func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MemberID int32 `json:"member_id"`
		BookID   int32 `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	req, err := h.circulation.SubmitRequest(r.Context(), payload.MemberID, payload.BookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.circulation.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *RequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.circulation.ListPendingRequests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		LibrarianID  int32  `json:"librarian_id"`
		DurationDays int32  `json:"duration_days"`
		Notes        string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	loan, err := h.circulation.ApproveRequest(r.Context(), id, payload.LibrarianID, payload.DurationDays, payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		LibrarianID int32  `json:"librarian_id"`
		Reason      string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	req, err := h.circulation.RejectRequest(r.Context(), id, payload.LibrarianID, payload.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		MemberID int32 `json:"member_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	req, err := h.circulation.CancelRequest(r.Context(), id, payload.MemberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"library-backend/internal/domain"
	"library-backend/internal/service"
)

// MemberHandler serves per-member views and membership actions
type MemberHandler struct {
	circulation service.CirculationService
	directory   service.DirectoryService
}

func (h *MemberHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	reqs, err := h.circulation.ListRequestsByMember(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *MemberHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	loans, err := h.circulation.ListLoansByMember(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *MemberHandler) ListActiveLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	loans, err := h.circulation.ListActiveLoansByMember(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *MemberHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		ActorID int32 `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	if err := h.directory.DeactivateMember(r.Context(), id, payload.ActorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"library-backend/internal/domain"
	"library-backend/internal/service"
)

// BookHandler serves the catalog endpoints
type BookHandler struct {
	catalog service.CatalogService
}

type bookPayload struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	TotalCopies   int32  `json:"total_copies"`
	PriceCents    int32  `json:"price_cents"`
	ShelfLocation string `json:"shelf_location"`
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}

	book := &domain.Book{
		ISBN:          payload.ISBN,
		Title:         payload.Title,
		Author:        payload.Author,
		Category:      payload.Category,
		Description:   payload.Description,
		TotalCopies:   payload.TotalCopies,
		PriceCents:    payload.PriceCents,
		ShelfLocation: payload.ShelfLocation,
	}
	if err := h.catalog.AddBook(r.Context(), book); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	book := &domain.Book{
		ID:            id,
		ISBN:          payload.ISBN,
		Title:         payload.Title,
		Author:        payload.Author,
		Category:      payload.Category,
		Description:   payload.Description,
		PriceCents:    payload.PriceCents,
		ShelfLocation: payload.ShelfLocation,
	}
	if err := h.catalog.UpdateBook(r.Context(), book); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.catalog.DeleteBook(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *BookHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		TotalCopies int32 `json:"total_copies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}
	book, err := h.catalog.SetStock(r.Context(), id, payload.TotalCopies)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		books []domain.Book
		err   error
	)
	if r.URL.Query().Get("available") == "true" {
		books, err = h.catalog.ListAvailableBooks(r.Context())
	} else {
		books, err = h.catalog.ListBooks(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: missing query parameter q", domain.ErrInvalidArgument))
		return
	}
	books, err := h.catalog.SearchBooks(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListLowStock(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) InventorySummary(w http.ResponseWriter, r *http.Request) {
	available, borrowed, err := h.catalog.InventorySummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int32{
		"available_copies": available,
		"borrowed_copies":  borrowed,
	})
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidArgument, name, raw)
	}
	return int32(id), nil
}

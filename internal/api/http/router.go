package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"library-backend/internal/service"
)

// NewRouter wires all circulation, catalog and directory endpoints onto
// a gorilla/mux router.
func NewRouter(circulation service.CirculationService, catalog service.CatalogService, directory service.DirectoryService) *mux.Router {
	books := &BookHandler{catalog: catalog}
	requests := &RequestHandler{circulation: circulation}
	loans := &LoanHandler{circulation: circulation}
	members := &MemberHandler{circulation: circulation, directory: directory}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/books", books.List).Methods(http.MethodGet)
	api.HandleFunc("/books", books.Create).Methods(http.MethodPost)
	api.HandleFunc("/books/search", books.Search).Methods(http.MethodGet)
	api.HandleFunc("/books/low-stock", books.ListLowStock).Methods(http.MethodGet)
	api.HandleFunc("/books/summary", books.InventorySummary).Methods(http.MethodGet)
	api.HandleFunc("/books/{id:[0-9]+}", books.Get).Methods(http.MethodGet)
	api.HandleFunc("/books/{id:[0-9]+}", books.Update).Methods(http.MethodPut)
	api.HandleFunc("/books/{id:[0-9]+}", books.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/books/{id:[0-9]+}/stock", books.SetStock).Methods(http.MethodPut)

	api.HandleFunc("/requests", requests.Submit).Methods(http.MethodPost)
	api.HandleFunc("/requests/pending", requests.ListPending).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id:[0-9]+}", requests.Get).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id:[0-9]+}/approve", requests.Approve).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id:[0-9]+}/reject", requests.Reject).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id:[0-9]+}/cancel", requests.Cancel).Methods(http.MethodPost)

	api.HandleFunc("/loans", loans.IssueDirectly).Methods(http.MethodPost)
	api.HandleFunc("/loans/overdue", loans.ListOverdue).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}", loans.Get).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}/return", loans.Return).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id:[0-9]+}/renew", loans.Renew).Methods(http.MethodPost)

	api.HandleFunc("/members/{id:[0-9]+}/requests", members.ListRequests).Methods(http.MethodGet)
	api.HandleFunc("/members/{id:[0-9]+}/loans", members.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/members/{id:[0-9]+}/loans/active", members.ListActiveLoans).Methods(http.MethodGet)
	api.HandleFunc("/members/{id:[0-9]+}/deactivate", members.Deactivate).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

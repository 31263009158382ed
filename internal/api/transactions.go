package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/ledger"
	"github.com/erazemk/trznica/internal/model"
)

// TransactionsHandler serves the sale endpoints.
type TransactionsHandler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

// Create handles POST /api/items/{itemID}/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.CreateTransaction(r.Context(), chi.URLParam(r, "itemID"), GetUser(r.Context()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]any{"transaction": t})
}

// Get handles GET /api/transactions/{transactionID} and its item-scoped form.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transactionID")
	user := GetUser(r.Context())

	var t *model.Transaction
	var err error
	if itemID := chi.URLParam(r, "itemID"); itemID != "" {
		t, err = h.Ledger.GetItemTransaction(r.Context(), itemID, id, user)
	} else {
		t, err = h.Ledger.GetTransaction(r.Context(), id, user)
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"transaction": t})
}

// List handles GET /api/transactions?type=sales|purchases and its
// item-scoped form.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Ledger.GetTransactions(r.Context(), GetUser(r.Context()),
		r.URL.Query().Get("type"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"transactions": ts})
}

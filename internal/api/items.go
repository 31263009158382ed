package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/catalog"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
)

// ItemsHandler serves the catalog endpoints.
type ItemsHandler struct {
	Catalog *catalog.Service
	Log     *zap.Logger
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Catalog.GetItems(r.Context(), itemQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Create handles POST /api/items. The body is JSON, or multipart with the
// pictures under "images".
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.ItemInput
	var uploads []images.Upload
	if isMultipart(r) {
		var err error
		if uploads, err = parseMultipart(w, r, "images"); err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		in = itemInputFromForm(r.MultipartForm.Value)
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	item, err := h.Catalog.CreateItem(r.Context(), in, GetUser(r.Context()), uploads)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]any{"item": item})
}

// Get handles GET /api/items/{itemID}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Catalog.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"item": item})
}

// Update handles PATCH /api/items/{itemID}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u model.ItemUpdate
	var uploads []images.Upload
	if isMultipart(r) {
		var err error
		if uploads, err = parseMultipart(w, r, "images"); err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		u = itemUpdateFromForm(r.MultipartForm.Value)
	} else if err := decodeJSON(r, &u); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	item, err := h.Catalog.UpdateItem(r.Context(), chi.URLParam(r, "itemID"), u, GetUser(r.Context()), uploads)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"item": item})
}

// Delete handles DELETE /api/items/{itemID}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteItem(r.Context(), chi.URLParam(r, "itemID"), GetUser(r.Context())); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"msg": "Item got deleted."})
}

// ListBySeller handles GET /api/users/{userID}/items.
func (h *ItemsHandler) ListBySeller(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.ListSellerItems(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"items": items})
}

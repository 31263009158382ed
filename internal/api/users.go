package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/account"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
)

// UsersHandler serves user lookup and the caller's own profile.
type UsersHandler struct {
	Accounts *account.Service
	Log      *zap.Logger
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Accounts.ListUsers(r.Context(), q.Get("q"), q.Get("page"), q.Get("limit"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Get handles GET /api/users/{userID}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Accounts.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"user": user})
}

// GetProfile handles GET /api/profile.
func (h *UsersHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"user": GetUser(r.Context())})
}

// UpdateProfile handles PATCH /api/profile.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var u model.ProfileUpdate
	var avatar *images.Upload
	if isMultipart(r) {
		uploads, err := parseMultipart(w, r, "image")
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		if len(uploads) > 0 {
			avatar = &uploads[0]
		}
		v := r.MultipartForm.Value
		u = model.ProfileUpdate{
			Name:            first(v["name"]),
			Email:           first(v["email"]),
			Password:        first(v["password"]),
			ConfirmPassword: first(v["confirmPassword"]),
		}
	} else if err := decodeJSON(r, &u); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	user, err := h.Accounts.UpdateProfile(r.Context(), GetUser(r.Context()), u, avatar)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"user": user})
}

// DeleteProfile handles DELETE /api/profile.
func (h *UsersHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.DeleteProfile(r.Context(), GetUser(r.Context())); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"msg": account.MsgProfileDeleted})
}

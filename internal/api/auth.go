package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/account"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
)

// AuthHandler serves signup, login and logout.
type AuthHandler struct {
	Accounts *account.Service
	Log      *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Signup handles POST /api/auth/signup. The body is JSON, or multipart with
// an optional avatar under "image".
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in model.SignupInput
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
		in = model.SignupInput{
			Name:            first(v["name"]),
			Email:           first(v["email"]),
			Password:        first(v["password"]),
			ConfirmPassword: first(v["confirmPassword"]),
		}
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	token, _, err := h.Accounts.Signup(r.Context(), in, avatar)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tokenResponse{Token: token})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	token, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Log.Warn("login failed", zap.String("email", req.Email), zap.String("remote", r.RemoteAddr))
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, tokenResponse{Token: token})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.Logout(r.Context(), GetClaims(r.Context())); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"msg": "Logged out."})
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

package api

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/noteservice"
)

// AuthHandler holds the account route handlers.
type AuthHandler struct {
	accounts *noteservice.Accounts
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *noteservice.Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Signup handles POST /auth/signup.
//
//	@Summary		Register an account
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SignupRequest	true	"Email and password"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !readJSON(w, r, &req) {
		return
	}
	tok, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(verrs.Error()))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusBadRequest, errorBody("Email already registered"))
		default:
			slog.Error("signup failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// Login handles POST /auth/login with form fields "username" and "password".
//
//	@Summary		Exchange credentials for an access token
//	@Tags			auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Account email"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	TokenResponse
//	@Failure		401			{object}	errResponse
//	@Failure		429			{object}	errResponse
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("username")
	password := r.FormValue("password")

	tok, err := h.accounts.Login(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, errorBody("Too many login attempts"))
		case errors.Is(err, apperr.ErrInvalidCredentials):
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, http.StatusUnauthorized, errorBody("Incorrect email or password"))
		default:
			slog.Error("login failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// Me handles GET /auth/me.
//
//	@Summary		Describe the authenticated account
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	AccountResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, AccountResponse{ID: u.ID, Email: u.Email})
}

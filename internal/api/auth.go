package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mculink/mculink-core/internal/auth"
)

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// registerResponse is the response body for POST /auth/register.
type registerResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// handleRegister creates a new account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeValidationError(w, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("creating user", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	s.logger.Info("account registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, registerResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}

// handleLogin authenticates an account and returns an access token. The
// token's subject is the account id, which doubles as the relay ownerId.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Indistinguishable from a wrong password on purpose.
		writeUnauthorized(w, "invalid email or password")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid email or password")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl == 0 {
		ttl = 60
	}

	signed, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, time.Duration(ttl)*time.Minute)
	if err != nil {
		s.logger.Error("generating token", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.logger.Info("account logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60,
		UserID:      user.ID,
	})
}

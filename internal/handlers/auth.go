package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/keepsite/apiserver/internal/auth"
	"github.com/keepsite/apiserver/internal/services"
	"github.com/keepsite/apiserver/internal/store"
	"github.com/rs/zerolog"
)

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenService
	logger      zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.TokenService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		logger:      logger,
	}
}

// AuthRouter registers the auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, tokens *auth.TokenService, logger zerolog.Logger) {
	handler := NewAuthHandler(userService, tokens, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
}

// RequireToken gates a route group behind bearer-token verification.
// A request with no token at all is rejected 403; a request with a
// token that fails verification is rejected 401. On success the
// verified identity is attached to the request context.
func RequireToken(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeError(w, http.StatusForbidden, "no token provided")
				return
			}

			identity, err := tokens.Verify(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the second whitespace-separated field of the
// Authorization header. The scheme word is discarded unchecked; a
// missing header or a header with no second field both read as "no
// token".
func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Register creates a new admin account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		h.logger.Error().Err(err).Msg("register user")
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{ID: user.ID, Username: user.Username})
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error().Err(err).Msg("authenticate user")
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.Error().Err(err).Msg("issue token")
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

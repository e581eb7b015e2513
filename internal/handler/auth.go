package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/comanda-app/api/internal/auth"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListUsersWithPinByBranch(ctx context.Context, branchID uuid.UUID) ([]database.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store      AuthStore
	authorizer service.Authorizer
	jwtSecret  string
	log        *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, authorizer service.Authorizer, jwtSecret string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, authorizer: authorizer, jwtSecret: jwtSecret, log: log}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/pin-login", h.PinLogin)
	r.Post("/auth/refresh", h.Refresh)
}

// RegisterBranchRoutes registers the PIN check used by the register
// screens before an operation above the authorization threshold.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}
func (h *AuthHandler) RegisterBranchRoutes(r chi.Router) {
	r.Post("/supervisor/verify-pin", h.VerifyPin)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type pinLoginRequest struct {
	BranchID string `json:"branch_id" validate:"required,uuid"`
	Pin      string `json:"pin" validate:"required,numeric"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type verifyPinRequest struct {
	Pin string `json:"pin" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		h.log.Error("get user by email", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, user)
}

// PinLogin handles branch_id + PIN authentication for register and kitchen
// staff. PINs are bcrypt hashed, so every PIN holder of the branch is
// compared in turn.
func (h *AuthHandler) PinLogin(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	branchID := uuid.MustParse(req.BranchID)

	users, err := h.store.ListUsersWithPinByBranch(r.Context(), branchID)
	if err != nil {
		h.log.Error("list users with pin", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	for _, u := range users {
		if !u.PinHash.Valid {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PinHash.String), []byte(req.Pin)) == nil {
			h.respondWithTokens(w, u)
			return
		}
	}
	h.log.Info("pin login rejected", zap.String("branch_id", branchID.String()))
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not found"})
			return
		}
		h.log.Error("get user by id", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithTokens(w, user)
}

// VerifyPin handles POST /branches/{bid}/supervisor/verify-pin. It answers
// with the supervisor's id so the client can show who authorized.
func (h *AuthHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	var req verifyPinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	supervisorID, err := h.authorizer.VerifySupervisorPIN(r.Context(), bid, req.Pin)
	if err != nil {
		writeError(w, h.log, "verify supervisor pin", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"supervisor_id": supervisorID.String()})
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, user database.User) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, user.ID, user.BranchID, string(user.Role))
	if err != nil {
		h.log.Error("generate access token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		h.log.Error("generate refresh token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	})
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByBranch(ctx context.Context, branchID uuid.UUID) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUserPin(ctx context.Context, arg database.UpdateUserPinParams) (database.User, error)
	DeactivateUser(ctx context.Context, arg database.DeactivateUserParams) (uuid.UUID, error)
}

// UserHandler handles branch staff endpoints.
type UserHandler struct {
	store UserStore
	log   *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore, log *zap.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

// RegisterRoutes registers staff endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/users
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}/pin", h.SetPin)
	r.Delete("/{id}", h.Delete)
}

// --- Request types ---

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=ADMIN ENCARGADO CAJERO COCINA REPARTIDOR"`
	Pin      string `json:"pin" validate:"omitempty,numeric,min=4,max=6"`
}

type setPinRequest struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

// --- Handlers ---

// List returns the active staff of the branch.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}

	users, err := h.store.ListUsersByBranch(r.Context(), bid)
	if err != nil {
		h.log.Error("list users", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff member to the branch. Only an ADMIN may create
// another ADMIN.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == enum.UserRoleAdmin && claims.Role != enum.UserRoleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only an ADMIN can create ADMIN users"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	pin := pgtype.Text{}
	if req.Pin != "" {
		pin, err = hashPin(req.Pin)
		if err != nil {
			h.log.Error("hash pin", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		BranchID:       bid,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           database.UserRole(req.Role),
		PinHash:        pin,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already exists"})
			return
		}
		h.log.Error("create user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// SetPin replaces a staff member's PIN.
func (h *UserHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	userID, ok := urlUUID(w, r, "id", "user")
	if !ok {
		return
	}

	var req setPinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pin, err := hashPin(req.Pin)
	if err != nil {
		h.log.Error("hash pin", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.UpdateUserPin(r.Context(), database.UpdateUserPinParams{
		ID:       userID,
		BranchID: bid,
		PinHash:  pin,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		h.log.Error("update user pin", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Delete deactivates a staff member.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	userID, ok := urlUUID(w, r, "id", "user")
	if !ok {
		return
	}

	if _, err := h.store.DeactivateUser(r.Context(), database.DeactivateUserParams{ID: userID, BranchID: bid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		h.log.Error("deactivate user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func hashPin(pin string) (pgtype.Text, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return pgtype.Text{}, err
	}
	return pgtype.Text{String: string(h), Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/comanda-app/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItemsByBranch(ctx context.Context, branchID uuid.UUID) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItemAvailability(ctx context.Context, arg database.UpdateMenuItemAvailabilityParams) (database.MenuItem, error)
}

// MenuHandler handles the branch menu. Order prices are always read from it.
type MenuHandler struct {
	store MenuStore
	log   *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, log *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, log: log}
}

// RegisterRoutes registers the read endpoint for every branch role.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.List)
}

// RegisterManagerRoutes registers the write endpoints, meant for supervisors.
func (h *MenuHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/menu", h.Create)
	r.Patch("/menu/{id}/availability", h.SetAvailability)
}

type createMenuItemRequest struct {
	Category string          `json:"category" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

// List handles GET /branches/{bid}/menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListMenuItemsByBranch(r.Context(), bid)
	if err != nil {
		h.log.Error("list menu items", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]menuItemResponse, len(items))
	for i, it := range items {
		resp[i] = toMenuItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /branches/{bid}/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}

	var req createMenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Price.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be > 0"})
		return
	}

	var price pgtype.Numeric
	if err := price.Scan(req.Price.StringFixed(2)); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		BranchID: bid,
		Category: req.Category,
		Name:     req.Name,
		Price:    price,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item already exists"})
			return
		}
		h.log.Error("create menu item", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// SetAvailability handles PATCH /branches/{bid}/menu/{id}/availability.
func (h *MenuHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	var req availabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.store.UpdateMenuItemAvailability(r.Context(), database.UpdateMenuItemAvailabilityParams{
		ID:          itemID,
		BranchID:    bid,
		IsAvailable: *req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		h.log.Error("update menu item availability", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

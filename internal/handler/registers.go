package handler

import (
	"context"
	"net/http"

	"github.com/comanda-app/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterStore defines the database methods needed by cash register handlers.
type RegisterStore interface {
	ListRegistersByBranch(ctx context.Context, branchID uuid.UUID) ([]database.CashRegister, error)
	CreateRegister(ctx context.Context, arg database.CreateRegisterParams) (database.CashRegister, error)
}

// RegisterHandler lists and creates the cash registers of a branch.
type RegisterHandler struct {
	store RegisterStore
	log   *zap.Logger
}

func NewRegisterHandler(store RegisterStore, log *zap.Logger) *RegisterHandler {
	return &RegisterHandler{store: store, log: log}
}

// RegisterRoutes mounts on /branches/{bid}.
func (h *RegisterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/registers", h.List)
}

// RegisterManagerRoutes registers creation, meant for supervisors.
func (h *RegisterHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/registers", h.Create)
}

type createRegisterRequest struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=ventas alivio fuerte"`
}

func (h *RegisterHandler) List(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	registers, err := h.store.ListRegistersByBranch(r.Context(), bid)
	if err != nil {
		h.log.Error("list registers", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]registerResponse, len(registers))
	for i, reg := range registers {
		resp[i] = toRegisterResponse(reg)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RegisterHandler) Create(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	var req createRegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reg, err := h.store.CreateRegister(r.Context(), database.CreateRegisterParams{
		BranchID: bid,
		Name:     req.Name,
		Kind:     database.RegisterKind(req.Kind),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "register name already exists"})
			return
		}
		h.log.Error("create register", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toRegisterResponse(reg))
}

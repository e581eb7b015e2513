package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/ledger"
	"github.com/comanda-app/api/internal/middleware"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShiftServicer defines the service methods needed by shift handlers.
// Satisfied by *service.ShiftService; narrow interface for testability.
type ShiftServicer interface {
	OpenShift(ctx context.Context, req service.OpenShiftRequest) (database.CashShift, error)
	GetShift(ctx context.Context, branchID, shiftID uuid.UUID) (database.CashShift, error)
	GetOpenShift(ctx context.Context, branchID, registerID uuid.UUID) (database.CashShift, error)
	AddMovement(ctx context.Context, req service.AddMovementRequest) (database.CashMovement, error)
	ListMovements(ctx context.Context, branchID, shiftID uuid.UUID) ([]database.CashMovement, error)
	CloseShift(ctx context.Context, req service.CloseShiftRequest) (*service.CloseResult, error)
	ShiftSummary(ctx context.Context, branchID, shiftID uuid.UUID) (*service.ShiftSummary, error)
	Transfer(ctx context.Context, req service.TransferRequest) (*service.TransferResult, error)
}

// ShiftHandler handles the shift ledger endpoints.
type ShiftHandler struct {
	svc ShiftServicer
	log *zap.Logger
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(svc ShiftServicer, log *zap.Logger) *ShiftHandler {
	return &ShiftHandler{svc: svc, log: log}
}

// RegisterRoutes registers shift endpoints.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/shifts", h.Open)
	r.Get("/shifts/{id}", h.Get)
	r.Get("/shifts/{id}/summary", h.Summary)
	r.Get("/shifts/{id}/movements", h.ListMovements)
	r.Post("/shifts/{id}/movements", h.AddMovement)
	r.Post("/shifts/{id}/close", h.Close)
	r.Get("/registers/{rid}/open-shift", h.OpenForRegister)
	r.Post("/transfers", h.Transfer)
}

// --- Request / Response types ---

type openShiftRequest struct {
	RegisterID    string          `json:"register_id" validate:"required,uuid"`
	OpeningAmount decimal.Decimal `json:"opening_amount"`
}

type addMovementRequest struct {
	Type          string          `json:"type" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Concept       string          `json:"concept" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	SupervisorPIN string          `json:"supervisor_pin"`
}

type closeShiftRequest struct {
	CountedAmount decimal.Decimal `json:"counted_amount"`
	Notes         string          `json:"notes"`
}

type transferRequest struct {
	SourceShiftID string          `json:"source_shift_id" validate:"required,uuid"`
	DestShiftID   string          `json:"dest_shift_id" validate:"required,uuid"`
	Kind          string          `json:"kind" validate:"required,oneof=alivio retiro"`
	Amount        decimal.Decimal `json:"amount"`
	Concept       string          `json:"concept"`
	SupervisorPIN string          `json:"supervisor_pin"`
}

type closeShiftResponse struct {
	Shift          shiftResponse `json:"shift"`
	Expected       string        `json:"expected"`
	Counted        string        `json:"counted"`
	Discrepancy    string        `json:"discrepancy"`
	Classification string        `json:"classification"`
}

type shiftSummaryResponse struct {
	Shift          shiftResponse         `json:"shift"`
	Opening        string                `json:"opening"`
	Expected       string                `json:"expected"`
	Counted        *string               `json:"counted"`
	Discrepancy    *string               `json:"discrepancy"`
	Classification string                `json:"classification,omitempty"`
	ByMethod       []ledger.MethodTotals `json:"by_method"`
	MovementCount  int                   `json:"movement_count"`
}

type transferResponse struct {
	ID            uuid.UUID        `json:"id"`
	Kind          string           `json:"kind"`
	SourceShiftID uuid.UUID        `json:"source_shift_id"`
	DestShiftID   uuid.UUID        `json:"dest_shift_id"`
	Amount        string           `json:"amount"`
	AuthorizedBy  *uuid.UUID       `json:"authorized_by"`
	CreatedAt     time.Time        `json:"created_at"`
	Withdrawal    movementResponse `json:"withdrawal"`
	Deposit       movementResponse `json:"deposit"`
}

// --- Handlers ---

// Open handles POST /branches/{bid}/shifts.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req openShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shift, err := h.svc.OpenShift(r.Context(), service.OpenShiftRequest{
		BranchID:      bid,
		RegisterID:    uuid.MustParse(req.RegisterID),
		OpeningAmount: req.OpeningAmount,
		Actor:         actorOf(claims),
	})
	if err != nil {
		writeError(w, h.log, "open shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftResponse(shift))
}

// Get handles GET /branches/{bid}/shifts/{id}.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	shiftID, ok := urlUUID(w, r, "id", "shift")
	if !ok {
		return
	}

	shift, err := h.svc.GetShift(r.Context(), bid, shiftID)
	if err != nil {
		writeError(w, h.log, "get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// OpenForRegister handles GET /branches/{bid}/registers/{rid}/open-shift.
func (h *ShiftHandler) OpenForRegister(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	registerID, ok := urlUUID(w, r, "rid", "register")
	if !ok {
		return
	}

	shift, err := h.svc.GetOpenShift(r.Context(), bid, registerID)
	if err != nil {
		writeError(w, h.log, "get open shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// AddMovement handles POST /branches/{bid}/shifts/{id}/movements.
func (h *ShiftHandler) AddMovement(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	shiftID, ok := urlUUID(w, r, "id", "shift")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	movement, err := h.svc.AddMovement(r.Context(), service.AddMovementRequest{
		BranchID:      bid,
		ShiftID:       shiftID,
		Type:          req.Type,
		Amount:        req.Amount,
		Concept:       req.Concept,
		PaymentMethod: req.PaymentMethod,
		SupervisorPIN: req.SupervisorPIN,
		Actor:         actorOf(claims),
	})
	if err != nil {
		writeError(w, h.log, "add movement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementResponse(movement))
}

// ListMovements handles GET /branches/{bid}/shifts/{id}/movements.
func (h *ShiftHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	shiftID, ok := urlUUID(w, r, "id", "shift")
	if !ok {
		return
	}

	movements, err := h.svc.ListMovements(r.Context(), bid, shiftID)
	if err != nil {
		writeError(w, h.log, "list movements", err)
		return
	}
	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Close handles POST /branches/{bid}/shifts/{id}/close.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	shiftID, ok := urlUUID(w, r, "id", "shift")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req closeShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.CloseShift(r.Context(), service.CloseShiftRequest{
		BranchID:      bid,
		ShiftID:       shiftID,
		CountedAmount: req.CountedAmount,
		Notes:         req.Notes,
		Actor:         actorOf(claims),
	})
	if err != nil {
		writeError(w, h.log, "close shift", err)
		return
	}
	writeJSON(w, http.StatusOK, closeShiftResponse{
		Shift:          toShiftResponse(res.Shift),
		Expected:       res.Expected.StringFixed(2),
		Counted:        res.Counted.StringFixed(2),
		Discrepancy:    res.Discrepancy.StringFixed(2),
		Classification: res.Classification,
	})
}

// Summary handles GET /branches/{bid}/shifts/{id}/summary.
func (h *ShiftHandler) Summary(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	shiftID, ok := urlUUID(w, r, "id", "shift")
	if !ok {
		return
	}

	sum, err := h.svc.ShiftSummary(r.Context(), bid, shiftID)
	if err != nil {
		writeError(w, h.log, "shift summary", err)
		return
	}
	resp := shiftSummaryResponse{
		Shift:          toShiftResponse(sum.Shift),
		Opening:        sum.Opening.StringFixed(2),
		Expected:       sum.Expected.StringFixed(2),
		Classification: sum.Classification,
		ByMethod:       sum.ByMethod,
		MovementCount:  sum.MovementCount,
	}
	if sum.Counted != nil {
		s := sum.Counted.StringFixed(2)
		resp.Counted = &s
	}
	if sum.Discrepancy != nil {
		s := sum.Discrepancy.StringFixed(2)
		resp.Discrepancy = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transfer handles POST /branches/{bid}/transfers.
func (h *ShiftHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Transfer(r.Context(), service.TransferRequest{
		BranchID:      bid,
		SourceShiftID: uuid.MustParse(req.SourceShiftID),
		DestShiftID:   uuid.MustParse(req.DestShiftID),
		Kind:          req.Kind,
		Amount:        req.Amount,
		Concept:       req.Concept,
		SupervisorPIN: req.SupervisorPIN,
		Actor:         actorOf(claims),
	})
	if err != nil {
		writeError(w, h.log, "transfer", err)
		return
	}
	t := res.Transfer
	writeJSON(w, http.StatusCreated, transferResponse{
		ID:            t.ID,
		Kind:          string(t.Kind),
		SourceShiftID: t.SourceShiftID,
		DestShiftID:   t.DestShiftID,
		Amount:        numericToString(t.Amount),
		AuthorizedBy:  uuidPtr(t.AuthorizedBy),
		CreatedAt:     t.CreatedAt,
		Withdrawal:    toMovementResponse(res.Withdrawal),
		Deposit:       toMovementResponse(res.Deposit),
	})
}

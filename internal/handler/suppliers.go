package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/comanda-app/api/internal/allocator"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/middleware"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupplierServicer defines the service methods needed by supplier handlers.
// Satisfied by *service.SupplierService; narrow interface for testability.
type SupplierServicer interface {
	CreateSupplier(ctx context.Context, req service.CreateSupplierRequest) (database.Supplier, error)
	ListSuppliers(ctx context.Context, branchID uuid.UUID) ([]database.Supplier, error)
	Account(ctx context.Context, branchID, supplierID uuid.UUID) (*service.SupplierAccount, error)
	ListInvoices(ctx context.Context, branchID, supplierID uuid.UUID, onlyOpen bool) ([]database.SupplierInvoice, error)
	CreateInvoice(ctx context.Context, req service.CreateInvoiceRequest) (*service.InvoiceDetail, error)
	GetInvoice(ctx context.Context, branchID, invoiceID uuid.UUID) (*service.InvoiceDetail, error)
	RegisterPayment(ctx context.Context, req service.RegisterPaymentRequest) (*service.PaymentResult, error)
	ListPayments(ctx context.Context, branchID, invoiceID uuid.UUID) ([]service.PaymentDetail, error)
}

// SupplierHandler handles supplier accounts, invoices and payments.
type SupplierHandler struct {
	svc SupplierServicer
	loc *time.Location
	log *zap.Logger
}

// NewSupplierHandler creates a new SupplierHandler. Invoice dates are read
// as calendar days in loc.
func NewSupplierHandler(svc SupplierServicer, loc *time.Location, log *zap.Logger) *SupplierHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SupplierHandler{svc: svc, loc: loc, log: log}
}

// RegisterRoutes registers supplier endpoints.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}
func (h *SupplierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/suppliers", h.List)
	r.Post("/suppliers", h.Create)
	r.Get("/suppliers/{id}", h.Account)
	r.Get("/suppliers/{id}/invoices", h.ListInvoices)
	r.Post("/suppliers/{id}/invoices", h.CreateInvoice)
	r.Get("/invoices/{id}", h.GetInvoice)
	r.Get("/invoices/{id}/payments", h.ListPayments)
	r.Post("/invoices/{id}/payments", h.RegisterPayment)
}

// --- Request / Response types ---

type createSupplierRequest struct {
	Name           string `json:"name" validate:"required"`
	Cuit           string `json:"cuit"`
	IsRoyaltyBrand bool   `json:"is_royalty_brand"`
}

type canonRequest struct {
	VentaTotal decimal.Decimal `json:"venta_total"`
	Efectivo   decimal.Decimal `json:"efectivo"`
}

type createInvoiceRequest struct {
	InvoiceNumber string          `json:"invoice_number" validate:"required"`
	IssuedAt      string          `json:"issued_at" validate:"required"`
	DueAt         string          `json:"due_at"`
	Total         decimal.Decimal `json:"total"`
	Description   string          `json:"description"`
	Canon         *canonRequest   `json:"canon"`
}

type paymentLineRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,oneof=efectivo transferencia cheque"`
}

type registerPaymentRequest struct {
	Lines     []paymentLineRequest `json:"lines" validate:"dive"`
	UseCredit bool                 `json:"use_credit"`
	Notes     string               `json:"notes"`
}

type supplierAccountResponse struct {
	Supplier     supplierResponse  `json:"supplier"`
	Credit       string            `json:"credit"`
	Owed         string            `json:"owed"`
	OpenInvoices []invoiceResponse `json:"open_invoices"`
}

type invoiceDetailResponse struct {
	invoiceResponse
	Canon *allocator.CanonBreakdown `json:"canon,omitempty"`
}

type paymentResultResponse struct {
	Payment  paymentResponse  `json:"payment"`
	Invoice  invoiceResponse  `json:"invoice"`
	Supplier supplierResponse `json:"supplier"`
}

// --- Handlers ---

// List handles GET /branches/{bid}/suppliers.
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	suppliers, err := h.svc.ListSuppliers(r.Context(), bid)
	if err != nil {
		writeError(w, h.log, "list suppliers", err)
		return
	}
	resp := make([]supplierResponse, len(suppliers))
	for i, s := range suppliers {
		resp[i] = toSupplierResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /branches/{bid}/suppliers.
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	var req createSupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sup, err := h.svc.CreateSupplier(r.Context(), service.CreateSupplierRequest{
		BranchID:       bid,
		Name:           req.Name,
		Cuit:           req.Cuit,
		IsRoyaltyBrand: req.IsRoyaltyBrand,
	})
	if err != nil {
		writeError(w, h.log, "create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierResponse(sup))
}

// Account handles GET /branches/{bid}/suppliers/{id}.
func (h *SupplierHandler) Account(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	supplierID, ok := urlUUID(w, r, "id", "supplier")
	if !ok {
		return
	}

	acc, err := h.svc.Account(r.Context(), bid, supplierID)
	if err != nil {
		writeError(w, h.log, "supplier account", err)
		return
	}
	resp := supplierAccountResponse{
		Supplier:     toSupplierResponse(acc.Supplier),
		Credit:       acc.Credit.StringFixed(2),
		Owed:         acc.Owed.StringFixed(2),
		OpenInvoices: make([]invoiceResponse, len(acc.OpenInvoices)),
	}
	for i, inv := range acc.OpenInvoices {
		resp.OpenInvoices[i] = toInvoiceResponse(inv)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListInvoices handles GET /branches/{bid}/suppliers/{id}/invoices?open=true.
func (h *SupplierHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	supplierID, ok := urlUUID(w, r, "id", "supplier")
	if !ok {
		return
	}

	onlyOpen := r.URL.Query().Get("open") == "true"
	invoices, err := h.svc.ListInvoices(r.Context(), bid, supplierID, onlyOpen)
	if err != nil {
		writeError(w, h.log, "list invoices", err)
		return
	}
	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toInvoiceResponse(inv)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateInvoice handles POST /branches/{bid}/suppliers/{id}/invoices.
func (h *SupplierHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	supplierID, ok := urlUUID(w, r, "id", "supplier")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issuedAt, err := time.ParseInLocation(dateLayout, req.IssuedAt, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid issued_at format, use YYYY-MM-DD"})
		return
	}
	var dueAt time.Time
	if req.DueAt != "" {
		dueAt, err = time.ParseInLocation(dateLayout, req.DueAt, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid due_at format, use YYYY-MM-DD"})
			return
		}
	}

	svcReq := service.CreateInvoiceRequest{
		BranchID:      bid,
		SupplierID:    supplierID,
		InvoiceNumber: req.InvoiceNumber,
		IssuedAt:      issuedAt,
		DueAt:         dueAt,
		Total:         req.Total,
		Description:   req.Description,
		CreatedBy:     claims.UserID,
	}
	if req.Canon != nil {
		svcReq.Canon = &service.CanonInput{VentaTotal: req.Canon.VentaTotal, Efectivo: req.Canon.Efectivo}
	}

	detail, err := h.svc.CreateInvoice(r.Context(), svcReq)
	if err != nil {
		writeError(w, h.log, "create invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, invoiceDetailResponse{
		invoiceResponse: toInvoiceResponse(detail.Invoice),
		Canon:           detail.Canon,
	})
}

// GetInvoice handles GET /branches/{bid}/invoices/{id}.
func (h *SupplierHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	invoiceID, ok := urlUUID(w, r, "id", "invoice")
	if !ok {
		return
	}

	detail, err := h.svc.GetInvoice(r.Context(), bid, invoiceID)
	if err != nil {
		writeError(w, h.log, "get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceDetailResponse{
		invoiceResponse: toInvoiceResponse(detail.Invoice),
		Canon:           detail.Canon,
	})
}

// RegisterPayment handles POST /branches/{bid}/invoices/{id}/payments.
func (h *SupplierHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	invoiceID, ok := urlUUID(w, r, "id", "invoice")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req registerPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lines := make([]service.PaymentLineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = service.PaymentLineRequest{Amount: l.Amount, Method: l.Method}
	}

	res, err := h.svc.RegisterPayment(r.Context(), service.RegisterPaymentRequest{
		BranchID:  bid,
		InvoiceID: invoiceID,
		Lines:     lines,
		UseCredit: req.UseCredit,
		Notes:     req.Notes,
		PaidBy:    claims.UserID,
	})
	if err != nil {
		writeError(w, h.log, "register supplier payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResultResponse{
		Payment:  toPaymentResponse(res.Payment, res.Lines),
		Invoice:  toInvoiceResponse(res.Invoice),
		Supplier: toSupplierResponse(res.Supplier),
	})
}

// ListPayments handles GET /branches/{bid}/invoices/{id}/payments.
func (h *SupplierHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	invoiceID, ok := urlUUID(w, r, "id", "invoice")
	if !ok {
		return
	}

	payments, err := h.svc.ListPayments(r.Context(), bid, invoiceID)
	if err != nil {
		writeError(w, h.log, "list supplier payments", err)
		return
	}
	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p.Payment, p.Lines)
	}
	writeJSON(w, http.StatusOK, resp)
}

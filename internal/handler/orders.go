package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/comanda-app/api/internal/cache"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/middleware"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, branchID uuid.UUID, f service.ListOrdersFilter) ([]database.Order, error)
	GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*service.OrderDetail, error)
	Advance(ctx context.Context, branchID, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error)
	SetStatus(ctx context.Context, branchID, orderID uuid.UUID, target string, actor service.Actor) (*service.StatusChange, error)
	Cancel(ctx context.Context, branchID, orderID uuid.UUID, reason string, actor service.Actor) (*service.StatusChange, error)
	ListStatusHistory(ctx context.Context, branchID, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
	UpdatePosition(ctx context.Context, branchID, orderID uuid.UUID, lat, lng float64) (*cache.Position, error)
	Tracking(ctx context.Context, orderID uuid.UUID) (*service.TrackingView, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	loc *time.Location
	log *zap.Logger
}

// NewOrderHandler creates a new OrderHandler. loc is used to read the
// start_date and end_date filters.
func NewOrderHandler(svc OrderServicer, loc *time.Location, log *zap.Logger) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, loc: loc, log: log}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/history", h.History)
	r.Post("/{id}/advance", h.Advance)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
}

// RegisterCourierRoutes registers the endpoints reserved for couriers and
// supervisors, on the same /branches/{bid}/orders subrouter.
func (h *OrderHandler) RegisterCourierRoutes(r chi.Router) {
	r.Post("/{id}/position", h.UpdatePosition)
}

// RegisterPublicRoutes registers the customer facing tracking page data.
// It needs no authentication: order IDs are unguessable.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tracking/{orderID}", h.Track)
}

// --- Request / Response types ---

type createOrderRequest struct {
	ServiceType     string                   `json:"service_type" validate:"required,oneof=dine_in takeaway delivery"`
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	DeliveryAddress string                   `json:"delivery_address"`
	DeliveryFee     decimal.Decimal          `json:"delivery_fee"`
	Notes           string                   `json:"notes"`
	Items           []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required,uuid"`
	Quantity   int32  `json:"quantity" validate:"gt=0"`
	Notes      string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type positionRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

type statusChangeResponse struct {
	Order orderResponse `json:"order"`
	From  string        `json:"from"`
	To    string        `json:"to"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: uuid.MustParse(it.MenuItemID),
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}

	detail, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:        bid,
		CreatedBy:       claims.UserID,
		ServiceType:     req.ServiceType,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryFee:     req.DeliveryFee,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		writeError(w, h.log, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(detail.Order, detail.Items))
}

// List handles GET /branches/{bid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := service.DefaultOrderListLimit
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > service.MaxOrderListLimit {
		limit = service.MaxOrderListLimit
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	f := service.ListOrdersFilter{
		Status:      q.Get("status"),
		ServiceType: q.Get("service_type"),
		Limit:       int32(limit),
		Offset:      int32(offset),
	}
	if s := q.Get("start_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		f.From = t
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		// end_date is inclusive
		f.To = t.AddDate(0, 0, 1)
	}

	orders, err := h.svc.ListOrders(r.Context(), bid, f)
	if err != nil {
		writeError(w, h.log, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	detail, err := h.svc.GetOrder(r.Context(), bid, orderID)
	if err != nil {
		writeError(w, h.log, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(detail.Order, detail.Items))
}

// History handles GET /branches/{bid}/orders/{id}/history.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	history, err := h.svc.ListStatusHistory(r.Context(), bid, orderID)
	if err != nil {
		writeError(w, h.log, "list status history", err)
		return
	}
	resp := make([]statusHistoryResponse, len(history))
	for i, e := range history {
		resp[i] = toStatusHistoryResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Advance handles POST /branches/{bid}/orders/{id}/advance, moving the
// order to the next status of its service type.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, "advance order", func(ctx context.Context, bid, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error) {
		return h.svc.Advance(ctx, bid, orderID, actor)
	})
}

// UpdateStatus handles PATCH /branches/{bid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.changeStatus(w, r, "update order status", func(ctx context.Context, bid, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error) {
		return h.svc.SetStatus(ctx, bid, orderID, req.Status, actor)
	})
}

// Cancel handles POST /branches/{bid}/orders/{id}/cancel. The body is optional.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	h.changeStatus(w, r, "cancel order", func(ctx context.Context, bid, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error) {
		return h.svc.Cancel(ctx, bid, orderID, req.Reason, actor)
	})
}

func (h *OrderHandler) changeStatus(w http.ResponseWriter, r *http.Request, op string,
	do func(ctx context.Context, bid, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error)) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	change, err := do(r.Context(), bid, orderID, actorOf(claims))
	if err != nil {
		writeError(w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusChangeResponse{
		Order: toOrderResponse(change.Order, nil),
		From:  change.From,
		To:    change.To,
	})
}

// UpdatePosition handles POST /branches/{bid}/orders/{id}/position, sent
// periodically by the courier app.
func (h *OrderHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req positionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pos, err := h.svc.UpdatePosition(r.Context(), bid, orderID, *req.Lat, *req.Lng)
	if err != nil {
		writeError(w, h.log, "update position", err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// Track handles GET /tracking/{orderID}.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID", "order")
	if !ok {
		return
	}

	view, err := h.svc.Tracking(r.Context(), orderID)
	if err != nil {
		writeError(w, h.log, "order tracking", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

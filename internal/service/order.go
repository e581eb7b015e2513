package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comanda-app/api/internal/cache"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/notify"
	"github.com/comanda-app/api/internal/orderflow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Page sizes for ListOrders.
const (
	DefaultOrderListLimit = 20
	MaxOrderListLimit     = 100
)

const (
	maxOrderNumberRetries = 3
	orderNumberConstraint = "orders_branch_id_order_number_key"
	maxCancelReasonLength = 500
	maxPositionLatitude   = 90
	maxPositionLongitude  = 180
)

// Errors returned by the order service.
var (
	ErrEmptyItems              = errors.New("items are required")
	ErrInvalidServiceType      = errors.New("invalid service_type")
	ErrInvalidQuantity         = errors.New("quantity must be > 0")
	ErrMenuItemNotFound        = errors.New("menu item not found or unavailable in branch")
	ErrDeliveryAddressRequired = errors.New("delivery_address is required for delivery orders")
	ErrInvalidDeliveryFee      = errors.New("delivery_fee must be >= 0")
	ErrOrderNotFound           = errors.New("order not found")
	ErrStatusChanged           = errors.New("order status changed concurrently, reload and retry")
	ErrCancelReasonTooLong     = errors.New("cancel reason is too long")
	ErrInvalidPosition         = errors.New("invalid position")
	ErrOrderNotDispatched      = errors.New("order is not on its way")
	ErrTrackingUnavailable     = errors.New("tracking is unavailable")
)

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderStatusHistory(ctx context.Context, arg database.CreateOrderStatusHistoryParams) (database.OrderStatusHistory, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// TrackingCache is the read-model cache behind the public tracking page.
// Satisfied by *cache.TrackingCache.
type TrackingCache interface {
	Get(ctx context.Context, orderID uuid.UUID, dst any) (bool, error)
	Set(ctx context.Context, orderID uuid.UUID, v any) error
	Invalidate(ctx context.Context, orderID uuid.UUID) error
	SetPosition(ctx context.Context, orderID uuid.UUID, pos cache.Position) error
	Position(ctx context.Context, orderID uuid.UUID) (*cache.Position, error)
}

// OrderService handles order business logic.
type OrderService struct {
	db       DB
	newStore NewOrderStore
	notifier notify.Notifier
	tracking TrackingCache
	log      *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService. tracking may be nil, in which
// case tracking reads go to the database and courier positions are rejected.
func NewOrderService(db DB, newStore NewOrderStore, notifier notify.Notifier, tracking TrackingCache, log *zap.Logger) *OrderService {
	return &OrderService{
		db:       db,
		newStore: newStore,
		notifier: notifier,
		tracking: tracking,
		log:      log,
		now:      time.Now,
	}
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	BranchID        uuid.UUID
	CreatedBy       uuid.UUID
	ServiceType     string
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryFee     decimal.Decimal
	Notes           string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	MenuItemID uuid.UUID
	Quantity   int32
	Notes      string
}

// OrderDetail is an order with its items.
type OrderDetail struct {
	Order database.Order       `json:"order"`
	Items []database.OrderItem `json:"items"`
}

// CreateOrder validates, prices from the menu, and creates an order
// atomically. Retries up to maxOrderNumberRetries times on order_number
// unique constraint violations (concurrent transactions reading the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if !orderflow.IsValidServiceType(req.ServiceType) {
		return nil, ErrInvalidServiceType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.ServiceType == orderflow.ServiceDelivery {
		if req.DeliveryAddress == "" {
			return nil, ErrDeliveryAddressRequired
		}
		if err := checkMoney(req.DeliveryFee); err != nil {
			return nil, err
		}
		if req.DeliveryFee.IsNegative() {
			return nil, ErrInvalidDeliveryFee
		}
	} else {
		// Only delivery orders carry a fee or an address.
		req.DeliveryFee = decimal.Zero
		req.DeliveryAddress = ""
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			publish(ctx, s.notifier, s.log, req.BranchID, enum.EventOrderCreated, result)
			return result, nil
		}
		if isUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			s.log.Debug("order number conflict, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	next, err := store.GetNextOrderNumber(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	// --- Price items from the menu ---
	items := make([]database.CreateOrderItemParams, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, it := range req.Items {
		menuItem, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:       it.MenuItemID,
			BranchID: req.BranchID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, it.MenuItemID)
			}
			return nil, fmt.Errorf("get menu item: %w", err)
		}
		unitPrice := numericToDecimal(menuItem.Price)
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(it.Quantity))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, database.CreateOrderItemParams{
			MenuItemID: menuItem.ID,
			ItemName:   menuItem.Name,
			Quantity:   it.Quantity,
			UnitPrice:  decimalToNumeric(unitPrice),
			Subtotal:   decimalToNumeric(lineTotal),
			Notes:      pgText(it.Notes),
		})
	}

	createdBy := pgtype.UUID{}
	if req.CreatedBy != uuid.Nil {
		createdBy = pgUUID(req.CreatedBy)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BranchID:        req.BranchID,
		OrderNumber:     fmt.Sprintf("#%04d", next),
		ServiceType:     database.ServiceType(req.ServiceType),
		CustomerName:    pgText(req.CustomerName),
		CustomerPhone:   pgText(req.CustomerPhone),
		DeliveryAddress: pgText(req.DeliveryAddress),
		Notes:           pgText(req.Notes),
		Subtotal:        decimalToNumeric(subtotal),
		DeliveryFee:     decimalToNumeric(req.DeliveryFee),
		Total:           decimalToNumeric(subtotal.Add(req.DeliveryFee)),
		CreatedBy:       createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	created := make([]database.OrderItem, 0, len(items))
	for _, p := range items {
		p.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	if _, err := store.CreateOrderStatusHistory(ctx, database.CreateOrderStatusHistoryParams{
		OrderID:   order.ID,
		ToStatus:  order.Status,
		ChangedBy: createdBy,
	}); err != nil {
		return nil, fmt.Errorf("create status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{Order: order, Items: created}, nil
}

// StatusChange is the result of a status transition.
type StatusChange struct {
	Order database.Order `json:"order"`
	From  string         `json:"from"`
	To    string         `json:"to"`
}

// Advance moves the order one step forward along its service type sequence.
func (s *OrderService) Advance(ctx context.Context, branchID, orderID uuid.UUID, actor Actor) (*StatusChange, error) {
	return s.transition(ctx, branchID, orderID, actor, "", func(o database.Order) (string, error) {
		return orderflow.Next(string(o.Status), string(o.ServiceType))
	})
}

// SetStatus moves the order to target, which must be the next status or
// cancelado.
func (s *OrderService) SetStatus(ctx context.Context, branchID, orderID uuid.UUID, target string, actor Actor) (*StatusChange, error) {
	return s.transition(ctx, branchID, orderID, actor, "", func(o database.Order) (string, error) {
		if err := orderflow.ValidateTransition(string(o.Status), target, string(o.ServiceType)); err != nil {
			return "", err
		}
		return target, nil
	})
}

// Cancel cancels a non-terminal order.
func (s *OrderService) Cancel(ctx context.Context, branchID, orderID uuid.UUID, reason string, actor Actor) (*StatusChange, error) {
	if len(reason) > maxCancelReasonLength {
		return nil, ErrCancelReasonTooLong
	}
	return s.transition(ctx, branchID, orderID, actor, reason, func(o database.Order) (string, error) {
		if err := orderflow.ValidateTransition(string(o.Status), orderflow.StatusCancelado, string(o.ServiceType)); err != nil {
			return "", err
		}
		return orderflow.StatusCancelado, nil
	})
}

// transition applies the status chosen by decide with a conditional update
// and records it in the history, in one transaction. Side effects run after
// commit.
func (s *OrderService) transition(ctx context.Context, branchID, orderID uuid.UUID, actor Actor, reason string, decide func(database.Order) (string, error)) (*StatusChange, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	target, err := decide(current)
	if err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:            orderID,
		BranchID:      branchID,
		Status:        database.OrderStatus(target),
		CurrentStatus: current.Status,
		CancelReason:  pgText(reason),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if _, err := store.CreateOrderStatusHistory(ctx, database.CreateOrderStatusHistoryParams{
		OrderID:    orderID,
		FromStatus: database.NullOrderStatus{OrderStatus: current.Status, Valid: true},
		ToStatus:   updated.Status,
		ChangedBy:  pgUUID(actor.UserID),
	}); err != nil {
		return nil, fmt.Errorf("create status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	change := &StatusChange{Order: updated, From: string(current.Status), To: target}
	s.afterTransition(ctx, change)
	return change, nil
}

func (s *OrderService) afterTransition(ctx context.Context, change *StatusChange) {
	o := change.Order
	publish(ctx, s.notifier, s.log, o.BranchID, enum.EventOrderStatusChanged, change)

	if o.ServiceType == database.ServiceTypeDelivery && change.To == orderflow.StatusListo {
		ticket := notify.DeliveryTicket{
			OrderID:         o.ID,
			BranchID:        o.BranchID,
			OrderNumber:     o.OrderNumber,
			CustomerName:    o.CustomerName.String,
			CustomerPhone:   o.CustomerPhone.String,
			DeliveryAddress: o.DeliveryAddress.String,
			Total:           numericToDecimal(o.Total),
			ReadyAt:         s.now().UTC(),
		}
		if o.ReadyAt.Valid {
			ticket.ReadyAt = o.ReadyAt.Time
		}
		if err := s.notifier.DeliveryReady(ctx, ticket); err != nil {
			s.log.Error("delivery ready notification",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
		}
	}

	if s.tracking != nil {
		if err := s.tracking.Invalidate(ctx, o.ID); err != nil {
			s.log.Warn("invalidate tracking", zap.String("order_id", o.ID.String()), zap.Error(err))
		}
	}
}

// GetOrder returns an order of the branch with its items.
func (s *OrderService) GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*OrderDetail, error) {
	store := s.newStore(s.db)
	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// ListOrdersFilter narrows an order listing. Zero values mean no filter.
type ListOrdersFilter struct {
	Status      string
	ServiceType string
	From        time.Time
	To          time.Time
	Limit       int32
	Offset      int32
}

// ListOrders returns the branch's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, branchID uuid.UUID, f ListOrdersFilter) ([]database.Order, error) {
	params := database.ListOrdersParams{
		BranchID: branchID,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	if params.Limit <= 0 {
		params.Limit = DefaultOrderListLimit
	}
	if params.Limit > MaxOrderListLimit {
		params.Limit = MaxOrderListLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	if f.Status != "" {
		if !orderflow.IsValidStatus(f.Status) {
			return nil, orderflow.ErrUnknownStatus
		}
		params.Status = database.NullOrderStatus{OrderStatus: database.OrderStatus(f.Status), Valid: true}
	}
	if f.ServiceType != "" {
		if !orderflow.IsValidServiceType(f.ServiceType) {
			return nil, ErrInvalidServiceType
		}
		params.ServiceType = database.NullServiceType{ServiceType: database.ServiceType(f.ServiceType), Valid: true}
	}
	if !f.From.IsZero() {
		params.StartDate = pgtype.Timestamptz{Time: f.From, Valid: true}
	}
	if !f.To.IsZero() {
		params.EndDate = pgtype.Timestamptz{Time: f.To, Valid: true}
	}

	orders, err := s.newStore(s.db).ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListStatusHistory returns the transitions of an order of the branch.
func (s *OrderService) ListStatusHistory(ctx context.Context, branchID, orderID uuid.UUID) ([]database.OrderStatusHistory, error) {
	store := s.newStore(s.db)
	if _, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	history, err := store.ListOrderStatusHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return history, nil
}

// TrackingView is the public, customer-facing state of an order. It carries
// no customer data.
type TrackingView struct {
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	ServiceType  string          `json:"service_type"`
	Status       string          `json:"status"`
	Step         int             `json:"step"`
	Steps        []string        `json:"steps"`
	CreatedAt    time.Time       `json:"created_at"`
	ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
	PreparingAt  *time.Time      `json:"preparing_at,omitempty"`
	ReadyAt      *time.Time      `json:"ready_at,omitempty"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	Position     *cache.Position `json:"position,omitempty"`
}

// Tracking returns the public view of an order, from the cache when fresh.
// The courier position is always read live.
func (s *OrderService) Tracking(ctx context.Context, orderID uuid.UUID) (*TrackingView, error) {
	var view TrackingView
	hit := false
	if s.tracking != nil {
		var err error
		hit, err = s.tracking.Get(ctx, orderID, &view)
		if err != nil {
			s.log.Warn("tracking cache read", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}

	if !hit {
		order, err := s.newStore(s.db).GetOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("get order: %w", err)
		}
		view = buildTrackingView(order)
		if s.tracking != nil {
			if err := s.tracking.Set(ctx, orderID, view); err != nil {
				s.log.Warn("tracking cache write", zap.String("order_id", orderID.String()), zap.Error(err))
			}
		}
	}

	if s.tracking != nil && view.ServiceType == orderflow.ServiceDelivery {
		pos, err := s.tracking.Position(ctx, orderID)
		if err != nil {
			s.log.Warn("courier position read", zap.String("order_id", orderID.String()), zap.Error(err))
		}
		view.Position = pos
	}
	return &view, nil
}

func buildTrackingView(o database.Order) TrackingView {
	steps, _ := orderflow.Sequence(string(o.ServiceType))
	return TrackingView{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		ServiceType:  string(o.ServiceType),
		Status:       string(o.Status),
		Step:         orderflow.StepIndex(string(o.Status), string(o.ServiceType)),
		Steps:        steps,
		CreatedAt:    o.CreatedAt,
		ConfirmedAt:  timePtr(o.ConfirmedAt),
		PreparingAt:  timePtr(o.PreparingAt),
		ReadyAt:      timePtr(o.ReadyAt),
		DispatchedAt: timePtr(o.DispatchedAt),
		DeliveredAt:  timePtr(o.DeliveredAt),
		CancelledAt:  timePtr(o.CancelledAt),
	}
}

// UpdatePosition stores a courier position for an order on its way and
// broadcasts it to the branch.
func (s *OrderService) UpdatePosition(ctx context.Context, branchID, orderID uuid.UUID, lat, lng float64) (*cache.Position, error) {
	if lat < -maxPositionLatitude || lat > maxPositionLatitude || lng < -maxPositionLongitude || lng > maxPositionLongitude {
		return nil, ErrInvalidPosition
	}
	if s.tracking == nil {
		return nil, ErrTrackingUnavailable
	}

	order, err := s.newStore(s.db).GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != database.OrderStatusEnCamino {
		return nil, ErrOrderNotDispatched
	}

	pos := cache.Position{Lat: lat, Lng: lng, RecordedAt: s.now().UTC()}
	if err := s.tracking.SetPosition(ctx, orderID, pos); err != nil {
		return nil, fmt.Errorf("store position: %w", err)
	}

	publish(ctx, s.notifier, s.log, branchID, enum.EventOrderPosition, map[string]any{
		"order_id":    orderID,
		"lat":         pos.Lat,
		"lng":         pos.Lng,
		"recorded_at": pos.RecordedAt,
	})
	return &pos, nil
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/comanda-app/api/internal/cache"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/orderflow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// mockOrderStore implements OrderStore over an in-memory set of orders.
// Function fields, when set, override the default behavior.
type mockOrderStore struct {
	branchID  uuid.UUID
	menu      map[uuid.UUID]database.MenuItem
	orders    map[uuid.UUID]database.Order
	history   []database.CreateOrderStatusHistoryParams
	nextCalls int
	getByID   int
	lastList  database.ListOrdersParams

	getNextOrderNumberFn func(ctx context.Context, branchID uuid.UUID) (int32, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	updateOrderStatusFn  func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

func newMockOrderStore(branchID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		branchID: branchID,
		menu:     map[uuid.UUID]database.MenuItem{},
		orders:   map[uuid.UUID]database.Order{},
	}
}

func (m *mockOrderStore) addMenuItem(name, price string) uuid.UUID {
	id := uuid.New()
	m.menu[id] = database.MenuItem{ID: id, BranchID: m.branchID, Name: name, Price: makeNumeric(price), IsAvailable: true}
	return id
}

func (m *mockOrderStore) addOrder(serviceType database.ServiceType, status database.OrderStatus) uuid.UUID {
	id := uuid.New()
	m.orders[id] = database.Order{
		ID:              id,
		BranchID:        m.branchID,
		OrderNumber:     "#0001",
		ServiceType:     serviceType,
		Status:          status,
		CustomerName:    pgtype.Text{String: "Lucía", Valid: true},
		DeliveryAddress: pgtype.Text{String: "Av. Corrientes 1234", Valid: true},
		Total:           makeNumeric("6300"),
		CreatedAt:       time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC),
	}
	return id
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	m.nextCalls++
	if m.getNextOrderNumberFn != nil {
		return m.getNextOrderNumberFn(ctx, branchID)
	}
	return 1, nil
}

func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error) {
	item, ok := m.menu[arg.ID]
	if !ok || item.BranchID != arg.BranchID || !item.IsAvailable {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, arg)
	}
	o := database.Order{
		ID:              uuid.New(),
		BranchID:        arg.BranchID,
		OrderNumber:     arg.OrderNumber,
		ServiceType:     arg.ServiceType,
		Status:          database.OrderStatusPendiente,
		CustomerName:    arg.CustomerName,
		DeliveryAddress: arg.DeliveryAddress,
		Subtotal:        arg.Subtotal,
		DeliveryFee:     arg.DeliveryFee,
		Total:           arg.Total,
		CreatedBy:       arg.CreatedBy,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return database.OrderItem{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		MenuItemID: arg.MenuItemID,
		ItemName:   arg.ItemName,
		Quantity:   arg.Quantity,
		UnitPrice:  arg.UnitPrice,
		Subtotal:   arg.Subtotal,
	}, nil
}

func (m *mockOrderStore) CreateOrderStatusHistory(ctx context.Context, arg database.CreateOrderStatusHistoryParams) (database.OrderStatusHistory, error) {
	m.history = append(m.history, arg)
	return database.OrderStatusHistory{ID: uuid.New(), OrderID: arg.OrderID, FromStatus: arg.FromStatus, ToStatus: arg.ToStatus}, nil
}

func (m *mockOrderStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.BranchID != arg.BranchID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) GetOrderByID(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.getByID++
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	m.lastList = arg
	var out []database.Order
	for _, o := range m.orders {
		if arg.Status.Valid && o.Status != arg.Status.OrderStatus {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return nil, nil
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.CurrentStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.CancelReason.Valid {
		o.CancelReason = arg.CancelReason
	}
	if arg.Status == database.OrderStatusListo {
		o.ReadyAt = pgtype.Timestamptz{Time: time.Date(2026, 10, 17, 20, 30, 0, 0, time.UTC), Valid: true}
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockOrderStore) ListOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error) {
	var out []database.OrderStatusHistory
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, database.OrderStatusHistory{OrderID: h.OrderID, FromStatus: h.FromStatus, ToStatus: h.ToStatus})
		}
	}
	return out, nil
}

// mockTracking implements TrackingCache in memory.
type mockTracking struct {
	views       map[uuid.UUID]TrackingView
	positions   map[uuid.UUID]cache.Position
	invalidated []uuid.UUID
}

func newMockTracking() *mockTracking {
	return &mockTracking{views: map[uuid.UUID]TrackingView{}, positions: map[uuid.UUID]cache.Position{}}
}

func (m *mockTracking) Get(ctx context.Context, orderID uuid.UUID, dst any) (bool, error) {
	v, ok := m.views[orderID]
	if !ok {
		return false, nil
	}
	*(dst.(*TrackingView)) = v
	return true, nil
}

func (m *mockTracking) Set(ctx context.Context, orderID uuid.UUID, v any) error {
	m.views[orderID] = v.(TrackingView)
	return nil
}

func (m *mockTracking) Invalidate(ctx context.Context, orderID uuid.UUID) error {
	delete(m.views, orderID)
	m.invalidated = append(m.invalidated, orderID)
	return nil
}

func (m *mockTracking) SetPosition(ctx context.Context, orderID uuid.UUID, pos cache.Position) error {
	m.positions[orderID] = pos
	return nil
}

func (m *mockTracking) Position(ctx context.Context, orderID uuid.UUID) (*cache.Position, error) {
	p, ok := m.positions[orderID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore, tracking TrackingCache) (*OrderService, *mockTx, *recordingNotifier) {
	tx := &mockTx{}
	db := &mockDB{tx: tx}
	n := &recordingNotifier{}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(db, newStore, n, tracking, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC) }
	return svc, tx, n
}

var cocina = Actor{UserID: uuid.New(), Role: enum.UserRoleCocina}

// --- CreateOrder ---

func TestCreateOrder_DeliveryTotals(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	burger := store.addMenuItem("Hamburguesa", "1500")
	fries := store.addMenuItem("Papas", "2500")
	store.getNextOrderNumberFn = func(ctx context.Context, id uuid.UUID) (int32, error) { return 7, nil }
	svc, tx, n := newTestService(store, nil)

	res, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BranchID:        branchID,
		CreatedBy:       uuid.New(),
		ServiceType:     "delivery",
		CustomerName:    "Lucía",
		DeliveryAddress: "Av. Corrientes 1234",
		DeliveryFee:     dec("800"),
		Items: []CreateOrderItemRequest{
			{MenuItemID: burger, Quantity: 2},
			{MenuItemID: fries, Quantity: 1, Notes: "sin sal"},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	o := res.Order
	if o.OrderNumber != "#0007" {
		t.Errorf("order number: got %q, want #0007", o.OrderNumber)
	}
	if o.Status != database.OrderStatusPendiente {
		t.Errorf("status: got %s", o.Status)
	}
	if !numericEquals(o.Subtotal, "5500") || !numericEquals(o.DeliveryFee, "800") || !numericEquals(o.Total, "6300") {
		t.Errorf("totals: subtotal %v fee %v total %v", numericToDecimal(o.Subtotal), numericToDecimal(o.DeliveryFee), numericToDecimal(o.Total))
	}
	if len(res.Items) != 2 || res.Items[0].ItemName != "Hamburguesa" || !numericEquals(res.Items[0].Subtotal, "3000") {
		t.Errorf("items: got %+v", res.Items)
	}
	if len(store.history) != 1 || store.history[0].FromStatus.Valid || store.history[0].ToStatus != database.OrderStatusPendiente {
		t.Errorf("history: got %+v", store.history)
	}
	if !tx.committed {
		t.Error("tx not committed")
	}
	if got := n.types(); len(got) != 1 || got[0] != enum.EventOrderCreated {
		t.Errorf("events: got %v", got)
	}
}

func TestCreateOrder_CounterIgnoresDeliveryFee(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	item := store.addMenuItem("Café", "1200")
	svc, _, _ := newTestService(store, nil)

	res, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BranchID:        branchID,
		ServiceType:     "takeaway",
		DeliveryFee:     dec("500"),
		DeliveryAddress: "ignored",
		Items:           []CreateOrderItemRequest{{MenuItemID: item, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !numericEquals(res.Order.Total, "3600") || !numericEquals(res.Order.DeliveryFee, "0") {
		t.Errorf("total %v fee %v", numericToDecimal(res.Order.Total), numericToDecimal(res.Order.DeliveryFee))
	}
	if res.Order.DeliveryAddress.Valid {
		t.Error("takeaway order should not keep an address")
	}
	if res.Order.CreatedBy.Valid {
		t.Error("created_by should be NULL when no user is given")
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	item := store.addMenuItem("Café", "1200")
	svc, _, _ := newTestService(store, nil)
	items := []CreateOrderItemRequest{{MenuItemID: item, Quantity: 1}}

	tests := []struct {
		name string
		req  CreateOrderRequest
		want error
	}{
		{"bad service type", CreateOrderRequest{ServiceType: "drive_thru", Items: items}, ErrInvalidServiceType},
		{"no items", CreateOrderRequest{ServiceType: "dine_in"}, ErrEmptyItems},
		{"zero quantity", CreateOrderRequest{ServiceType: "dine_in", Items: []CreateOrderItemRequest{{MenuItemID: item}}}, ErrInvalidQuantity},
		{"delivery without address", CreateOrderRequest{ServiceType: "delivery", Items: items}, ErrDeliveryAddressRequired},
		{"negative fee", CreateOrderRequest{ServiceType: "delivery", DeliveryAddress: "x", DeliveryFee: dec("-1"), Items: items}, ErrInvalidDeliveryFee},
		{"sub-cent fee", CreateOrderRequest{ServiceType: "delivery", DeliveryAddress: "x", DeliveryFee: dec("0.001"), Items: items}, ErrInvalidMoney},
		{"unknown menu item", CreateOrderRequest{ServiceType: "dine_in", Items: []CreateOrderItemRequest{{MenuItemID: uuid.New(), Quantity: 1}}}, ErrMenuItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.BranchID = branchID
			if _, err := svc.CreateOrder(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateOrder_RetriesOrderNumberConflict(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	item := store.addMenuItem("Café", "1200")
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		if attempts < 3 {
			return database.Order{}, uniqueViolation("orders_branch_id_order_number_key")
		}
		return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber, Status: database.OrderStatusPendiente}, nil
	}
	svc, _, _ := newTestService(store, nil)

	if _, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BranchID: branchID, ServiceType: "dine_in", Items: []CreateOrderItemRequest{{MenuItemID: item, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if store.nextCalls != 3 {
		t.Errorf("order number lookups: got %d, want 3", store.nextCalls)
	}
}

func TestCreateOrder_GivesUpAfterRetries(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	item := store.addMenuItem("Café", "1200")
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, uniqueViolation("orders_branch_id_order_number_key")
	}
	svc, _, n := newTestService(store, nil)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		BranchID: branchID, ServiceType: "dine_in", Items: []CreateOrderItemRequest{{MenuItemID: item, Quantity: 1}},
	})
	if !isUniqueViolation(err, orderNumberConstraint) {
		t.Fatalf("got %v, want order number conflict", err)
	}
	if store.nextCalls != maxOrderNumberRetries {
		t.Errorf("attempts: got %d", store.nextCalls)
	}
	if len(n.types()) != 0 {
		t.Error("no event for a failed order")
	}
}

// --- Transitions ---

func TestAdvance_DeliveryGoesThroughEnCamino(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	orderID := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusListo)
	svc, _, _ := newTestService(store, nil)

	change, err := svc.Advance(context.Background(), branchID, orderID, cocina)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if change.From != orderflow.StatusListo || change.To != orderflow.StatusEnCamino {
		t.Errorf("change: %s -> %s, want listo -> en_camino", change.From, change.To)
	}
	h := store.history[len(store.history)-1]
	if h.FromStatus.OrderStatus != database.OrderStatusListo || h.ToStatus != database.OrderStatusEnCamino {
		t.Errorf("history: got %+v", h)
	}
	if uuid.UUID(h.ChangedBy.Bytes) != cocina.UserID {
		t.Errorf("changed by: got %v", h.ChangedBy)
	}
}

func TestAdvance_PendienteToConfirmado(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	orderID := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusPendiente)
	svc, _, n := newTestService(store, nil)

	change, err := svc.Advance(context.Background(), branchID, orderID, cocina)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if change.To != orderflow.StatusConfirmado {
		t.Errorf("to: got %s", change.To)
	}
	if got := n.types(); len(got) != 1 || got[0] != enum.EventOrderStatusChanged {
		t.Errorf("events: got %v", got)
	}
	if len(n.tickets) != 0 {
		t.Error("no ticket before listo")
	}
}

func TestAdvance_DeliveryReadyTicket(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	delivery := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusEnPreparacion)
	takeaway := store.addOrder(database.ServiceTypeTakeaway, database.OrderStatusEnPreparacion)
	svc, _, n := newTestService(store, nil)

	if _, err := svc.Advance(context.Background(), branchID, takeaway, cocina); err != nil {
		t.Fatalf("advance takeaway: %v", err)
	}
	if len(n.tickets) != 0 {
		t.Fatal("takeaway orders do not print delivery tickets")
	}

	if _, err := svc.Advance(context.Background(), branchID, delivery, cocina); err != nil {
		t.Fatalf("advance delivery: %v", err)
	}
	if len(n.tickets) != 1 {
		t.Fatalf("tickets: got %d, want 1", len(n.tickets))
	}
	tk := n.tickets[0]
	if tk.OrderID != delivery || tk.DeliveryAddress != "Av. Corrientes 1234" || !tk.Total.Equal(dec("6300")) {
		t.Errorf("ticket: got %+v", tk)
	}
	if !tk.ReadyAt.Equal(time.Date(2026, 10, 17, 20, 30, 0, 0, time.UTC)) {
		t.Errorf("ready at: got %v", tk.ReadyAt)
	}
}

func TestAdvance_Terminal(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	orderID := store.addOrder(database.ServiceTypeDineIn, database.OrderStatusEntregado)
	svc, tx, _ := newTestService(store, nil)

	if _, err := svc.Advance(context.Background(), branchID, orderID, cocina); !errors.Is(err, orderflow.ErrTerminalStatus) {
		t.Fatalf("got %v, want ErrTerminalStatus", err)
	}
	if tx.committed {
		t.Error("nothing should be committed")
	}
}

func TestSetStatus_CannotSkip(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	orderID := store.addOrder(database.ServiceTypeDineIn, database.OrderStatusPendiente)
	svc, _, _ := newTestService(store, nil)

	if _, err := svc.SetStatus(context.Background(), branchID, orderID, "listo", cocina); !errors.Is(err, orderflow.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.SetStatus(context.Background(), branchID, orderID, "confirmado", cocina); err != nil {
		t.Fatalf("one step: %v", err)
	}
}

func TestSetStatus_ConcurrentChange(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	orderID := store.addOrder(database.ServiceTypeDineIn, database.OrderStatusPendiente)
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _, n := newTestService(store, nil)

	if _, err := svc.Advance(context.Background(), branchID, orderID, cocina); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("got %v, want ErrStatusChanged", err)
	}
	if len(store.history) != 0 || len(n.types()) != 0 {
		t.Error("lost race must not write history or publish")
	}
}

func TestCancel(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	tracking := newMockTracking()
	active := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusEnCamino)
	done := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusEntregado)
	svc, _, _ := newTestService(store, tracking)

	change, err := svc.Cancel(context.Background(), branchID, active, "cliente ausente", cocina)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if change.To != orderflow.StatusCancelado || change.Order.CancelReason.String != "cliente ausente" {
		t.Errorf("change: got %+v", change)
	}
	if len(tracking.invalidated) != 1 || tracking.invalidated[0] != active {
		t.Errorf("tracking invalidation: got %v", tracking.invalidated)
	}

	if _, err := svc.Cancel(context.Background(), branchID, done, "", cocina); !errors.Is(err, orderflow.ErrTerminalStatus) {
		t.Errorf("cancel delivered: got %v", err)
	}
	if _, err := svc.Advance(context.Background(), branchID, active, cocina); !errors.Is(err, orderflow.ErrTerminalStatus) {
		t.Errorf("advance cancelled: got %v", err)
	}
}

func TestTransition_OrderOfOtherBranch(t *testing.T) {
	store := newMockOrderStore(uuid.New())
	orderID := store.addOrder(database.ServiceTypeDineIn, database.OrderStatusPendiente)
	svc, _, _ := newTestService(store, nil)

	if _, err := svc.Advance(context.Background(), uuid.New(), orderID, cocina); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
}

// --- Reads ---

func TestListOrders_Filters(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	store.addOrder(database.ServiceTypeDineIn, database.OrderStatusPendiente)
	store.addOrder(database.ServiceTypeDineIn, database.OrderStatusListo)
	svc, _, _ := newTestService(store, nil)

	orders, err := svc.ListOrders(context.Background(), branchID, ListOrdersFilter{Status: "listo"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 || orders[0].Status != database.OrderStatusListo {
		t.Errorf("orders: got %+v", orders)
	}
	if _, err := svc.ListOrders(context.Background(), branchID, ListOrdersFilter{Status: "perdido"}); !errors.Is(err, orderflow.ErrUnknownStatus) {
		t.Errorf("bad status: got %v", err)
	}
	if _, err := svc.ListOrders(context.Background(), branchID, ListOrdersFilter{ServiceType: "drone"}); !errors.Is(err, ErrInvalidServiceType) {
		t.Errorf("bad service type: got %v", err)
	}
}

func TestListOrders_PageSize(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	svc, _, _ := newTestService(store, nil)

	tests := []struct {
		limit int32
		want  int32
	}{
		{0, DefaultOrderListLimit},
		{-5, DefaultOrderListLimit},
		{30, 30},
		{500, MaxOrderListLimit},
	}
	for _, tt := range tests {
		if _, err := svc.ListOrders(context.Background(), branchID, ListOrdersFilter{Limit: tt.limit}); err != nil {
			t.Fatalf("list: %v", err)
		}
		if store.lastList.Limit != tt.want {
			t.Errorf("limit %d: got %d, want %d", tt.limit, store.lastList.Limit, tt.want)
		}
	}
}

func TestTracking_CachesView(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	orderID := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusEnPreparacion)
	tracking := newMockTracking()
	svc, _, _ := newTestService(store, tracking)

	view, err := svc.Tracking(context.Background(), orderID)
	if err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if view.Step != 2 || len(view.Steps) != 6 || view.Status != "en_preparacion" {
		t.Errorf("view: got step %d of %v, status %s", view.Step, view.Steps, view.Status)
	}
	if _, ok := tracking.views[orderID]; !ok {
		t.Error("view not cached")
	}

	if _, err := svc.Tracking(context.Background(), orderID); err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if store.getByID != 1 {
		t.Errorf("database reads: got %d, want 1", store.getByID)
	}
}

func TestTracking_WithoutCache(t *testing.T) {
	store := newMockOrderStore(uuid.New())
	orderID := store.addOrder(database.ServiceTypeTakeaway, database.OrderStatusListo)
	svc, _, _ := newTestService(store, nil)

	view, err := svc.Tracking(context.Background(), orderID)
	if err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if view.Step != 3 || view.Position != nil {
		t.Errorf("view: got %+v", view)
	}
	if _, err := svc.Tracking(context.Background(), uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("unknown order: got %v", err)
	}
}

func TestUpdatePosition(t *testing.T) {
	branchID := uuid.New()
	store := newMockOrderStore(branchID)
	onTheWay := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusEnCamino)
	cooking := store.addOrder(database.ServiceTypeDelivery, database.OrderStatusEnPreparacion)
	tracking := newMockTracking()
	svc, _, n := newTestService(store, tracking)
	ctx := context.Background()

	pos, err := svc.UpdatePosition(ctx, branchID, onTheWay, -34.6037, -58.3816)
	if err != nil {
		t.Fatalf("update position: %v", err)
	}
	if pos.Lat != -34.6037 || tracking.positions[onTheWay].Lng != -58.3816 {
		t.Errorf("stored position: got %+v", tracking.positions[onTheWay])
	}
	if got := n.types(); len(got) != 1 || got[0] != enum.EventOrderPosition {
		t.Errorf("events: got %v", got)
	}

	view, err := svc.Tracking(ctx, onTheWay)
	if err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if view.Position == nil || view.Position.Lat != -34.6037 {
		t.Errorf("tracking position: got %+v", view.Position)
	}

	if _, err := svc.UpdatePosition(ctx, branchID, cooking, 0, 0); !errors.Is(err, ErrOrderNotDispatched) {
		t.Errorf("not dispatched: got %v", err)
	}
	if _, err := svc.UpdatePosition(ctx, branchID, onTheWay, 91, 0); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("bad latitude: got %v", err)
	}

	noCache, _, _ := newTestService(store, nil)
	if _, err := noCache.UpdatePosition(ctx, branchID, onTheWay, 0, 0); !errors.Is(err, ErrTrackingUnavailable) {
		t.Errorf("without cache: got %v", err)
	}
}

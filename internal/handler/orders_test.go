package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comanda-app/api/internal/cache"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/handler"
	"github.com/comanda-app/api/internal/orderflow"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// --- Mock service ---

type mockOrderService struct {
	createOrderFn    func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	listOrdersFn     func(ctx context.Context, branchID uuid.UUID, f service.ListOrdersFilter) ([]database.Order, error)
	getOrderFn       func(ctx context.Context, branchID, orderID uuid.UUID) (*service.OrderDetail, error)
	advanceFn        func(ctx context.Context, branchID, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error)
	setStatusFn      func(ctx context.Context, branchID, orderID uuid.UUID, target string, actor service.Actor) (*service.StatusChange, error)
	cancelFn         func(ctx context.Context, branchID, orderID uuid.UUID, reason string, actor service.Actor) (*service.StatusChange, error)
	listHistoryFn    func(ctx context.Context, branchID, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
	updatePositionFn func(ctx context.Context, branchID, orderID uuid.UUID, lat, lng float64) (*cache.Position, error)
	trackingFn       func(ctx context.Context, orderID uuid.UUID) (*service.TrackingView, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
	return m.createOrderFn(ctx, req)
}

func (m *mockOrderService) ListOrders(ctx context.Context, branchID uuid.UUID, f service.ListOrdersFilter) ([]database.Order, error) {
	return m.listOrdersFn(ctx, branchID, f)
}

func (m *mockOrderService) GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*service.OrderDetail, error) {
	return m.getOrderFn(ctx, branchID, orderID)
}

func (m *mockOrderService) Advance(ctx context.Context, branchID, orderID uuid.UUID, actor service.Actor) (*service.StatusChange, error) {
	return m.advanceFn(ctx, branchID, orderID, actor)
}

func (m *mockOrderService) SetStatus(ctx context.Context, branchID, orderID uuid.UUID, target string, actor service.Actor) (*service.StatusChange, error) {
	return m.setStatusFn(ctx, branchID, orderID, target, actor)
}

func (m *mockOrderService) Cancel(ctx context.Context, branchID, orderID uuid.UUID, reason string, actor service.Actor) (*service.StatusChange, error) {
	return m.cancelFn(ctx, branchID, orderID, reason, actor)
}

func (m *mockOrderService) ListStatusHistory(ctx context.Context, branchID, orderID uuid.UUID) ([]database.OrderStatusHistory, error) {
	return m.listHistoryFn(ctx, branchID, orderID)
}

func (m *mockOrderService) UpdatePosition(ctx context.Context, branchID, orderID uuid.UUID, lat, lng float64) (*cache.Position, error) {
	return m.updatePositionFn(ctx, branchID, orderID, lat, lng)
}

func (m *mockOrderService) Tracking(ctx context.Context, orderID uuid.UUID) (*service.TrackingView, error) {
	return m.trackingFn(ctx, orderID)
}

// --- Helpers ---

func setupOrderRouter(svc *mockOrderService) *chi.Mux {
	h := handler.NewOrderHandler(svc, buenosAires, zap.NewNop())
	r := newBranchRouter(func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			h.RegisterRoutes(r)
			h.RegisterCourierRoutes(r)
		})
	})
	h.RegisterPublicRoutes(r)
	return r
}

func testOrder(id uuid.UUID, st database.ServiceType, status database.OrderStatus) database.Order {
	return database.Order{
		ID:          id,
		BranchID:    testBranchID,
		OrderNumber: "C-0007",
		ServiceType: st,
		Status:      status,
		Subtotal:    toNumeric("9000"),
		DeliveryFee: toNumeric("0"),
		Total:       toNumeric("9000"),
		CreatedBy:   pgtype.UUID{Bytes: testUserID, Valid: true},
		CreatedAt:   time.Now(),
	}
}

func ordersPath(suffix string) string {
	return branchPath("/orders" + suffix)
}

// --- Tests ---

func TestCreateOrder_Success(t *testing.T) {
	orderID := uuid.New()
	menuItemID := uuid.New()
	svc := &mockOrderService{
		createOrderFn: func(_ context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
			if req.BranchID != testBranchID || req.CreatedBy != testUserID {
				t.Errorf("request scope: got %+v", req)
			}
			if req.ServiceType != "delivery" || req.DeliveryAddress != "Av. Corrientes 1234" {
				t.Errorf("request: got %+v", req)
			}
			if !req.DeliveryFee.Equal(toDecimal("1500")) {
				t.Errorf("delivery_fee: got %s", req.DeliveryFee)
			}
			if len(req.Items) != 1 || req.Items[0].MenuItemID != menuItemID || req.Items[0].Quantity != 2 {
				t.Fatalf("items: got %+v", req.Items)
			}

			o := testOrder(orderID, database.ServiceTypeDelivery, database.OrderStatusPendiente)
			o.DeliveryAddress = pgtype.Text{String: req.DeliveryAddress, Valid: true}
			o.DeliveryFee = toNumeric("1500")
			o.Total = toNumeric("10500")
			return &service.OrderDetail{
				Order: o,
				Items: []database.OrderItem{{
					ID: uuid.New(), OrderID: orderID, MenuItemID: menuItemID,
					ItemName: "Milanesa napolitana", Quantity: 2,
					UnitPrice: toNumeric("4500"), Subtotal: toNumeric("9000"),
				}},
			}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, http.MethodPost, ordersPath(""), map[string]interface{}{
		"service_type":     "delivery",
		"delivery_address": "Av. Corrientes 1234",
		"delivery_fee":     "1500",
		"items":            []map[string]interface{}{{"menu_item_id": menuItemID.String(), "quantity": 2}},
	}, cashierClaims())
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeMap(t, rr)
	if resp["status"] != "pendiente" || resp["total"] != "10500.00" {
		t.Errorf("order: got status %v total %v", resp["status"], resp["total"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d", len(items))
	}
	if it := items[0].(map[string]interface{}); it["unit_price"] != "4500.00" || it["subtotal"] != "9000.00" {
		t.Errorf("item: got %v", it)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{
			name: "unknown service type",
			body: map[string]interface{}{
				"service_type": "drive_thru",
				"items":        []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 1}},
			},
			want: "service_type must be one of: dine_in takeaway delivery",
		},
		{
			name: "no items",
			body: map[string]interface{}{"service_type": "takeaway", "items": []map[string]interface{}{}},
			want: "items needs at least 1 entries",
		},
		{
			name: "zero quantity",
			body: map[string]interface{}{
				"service_type": "takeaway",
				"items":        []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 0}},
			},
			want: "items[0].quantity must be > 0",
		},
		{
			name: "bad menu item id",
			body: map[string]interface{}{
				"service_type": "dine_in",
				"items":        []map[string]interface{}{{"menu_item_id": "abc", "quantity": 1}},
			},
			want: "items[0].menu_item_id is invalid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, http.MethodPost, ordersPath(""), tt.body, cashierClaims())
			assertStatus(t, rr, http.StatusBadRequest)
			if got := decodeMap(t, rr)["error"]; got != tt.want {
				t.Errorf("error: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateOrder_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing address", service.ErrDeliveryAddressRequired, http.StatusBadRequest},
		{"unavailable item", service.ErrMenuItemNotFound, http.StatusBadRequest},
		{"negative fee", service.ErrInvalidDeliveryFee, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				createOrderFn: func(context.Context, service.CreateOrderRequest) (*service.OrderDetail, error) {
					return nil, tt.err
				},
			}
			router := setupOrderRouter(svc)

			rr := doAuthRequest(t, router, http.MethodPost, ordersPath(""), map[string]interface{}{
				"service_type": "delivery",
				"items":        []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 1}},
			}, cashierClaims())
			assertStatus(t, rr, tt.wantStatus)
			if got := decodeMap(t, rr)["error"]; got != tt.err.Error() {
				t.Errorf("error: got %q, want %q", got, tt.err.Error())
			}
		})
	}
}

func TestListOrders_Filters(t *testing.T) {
	var got service.ListOrdersFilter
	svc := &mockOrderService{
		listOrdersFn: func(_ context.Context, _ uuid.UUID, f service.ListOrdersFilter) ([]database.Order, error) {
			got = f
			return []database.Order{testOrder(uuid.New(), database.ServiceTypeTakeaway, database.OrderStatusListo)}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, http.MethodGet,
		ordersPath("?status=listo&service_type=takeaway&limit=500&offset=40&start_date=2026-10-01&end_date=2026-10-15"),
		nil, cashierClaims())
	assertStatus(t, rr, http.StatusOK)

	if got.Status != "listo" || got.ServiceType != "takeaway" {
		t.Errorf("filter: got %+v", got)
	}
	if got.Limit != 100 || got.Offset != 40 {
		t.Errorf("pagination: got limit %d offset %d, want 100/40", got.Limit, got.Offset)
	}
	if want := time.Date(2026, 10, 1, 0, 0, 0, 0, buenosAires); !got.From.Equal(want) {
		t.Errorf("from: got %v, want %v", got.From, want)
	}
	if want := time.Date(2026, 10, 16, 0, 0, 0, 0, buenosAires); !got.To.Equal(want) {
		t.Errorf("to must be the day after end_date: got %v, want %v", got.To, want)
	}

	resp := decodeMap(t, rr)
	if resp["limit"] != float64(100) || resp["offset"] != float64(40) {
		t.Errorf("pagination echo: got %v/%v", resp["limit"], resp["offset"])
	}
	orders := resp["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("orders: got %d", len(orders))
	}
	if _, ok := orders[0].(map[string]interface{})["items"]; ok {
		t.Error("list entries must not carry items")
	}
}

func TestListOrders_Defaults(t *testing.T) {
	var got service.ListOrdersFilter
	svc := &mockOrderService{
		listOrdersFn: func(_ context.Context, _ uuid.UUID, f service.ListOrdersFilter) ([]database.Order, error) {
			got = f
			return nil, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, http.MethodGet, ordersPath("?limit=-3"), nil, cashierClaims())
	assertStatus(t, rr, http.StatusOK)
	if got.Limit != 20 || got.Offset != 0 || !got.From.IsZero() || !got.To.IsZero() {
		t.Errorf("defaults: got %+v", got)
	}
}

func TestListOrders_BadDate(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	rr := doAuthRequest(t, router, http.MethodGet, ordersPath("?end_date=15-10-2026"), nil, cashierClaims())
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &mockOrderService{
		getOrderFn: func(context.Context, uuid.UUID, uuid.UUID) (*service.OrderDetail, error) {
			return nil, service.ErrOrderNotFound
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, http.MethodGet, ordersPath("/"+uuid.New().String()), nil, cashierClaims())
	assertStatus(t, rr, http.StatusNotFound)

	rr = doAuthRequest(t, router, http.MethodGet, ordersPath("/not-a-uuid"), nil, cashierClaims())
	assertStatus(t, rr, http.StatusBadRequest)
	if got := decodeMap(t, rr)["error"]; got != "invalid order ID" {
		t.Errorf("error: got %q", got)
	}
}

func TestOrderHistory(t *testing.T) {
	orderID := uuid.New()
	now := time.Now()
	svc := &mockOrderService{
		listHistoryFn: func(context.Context, uuid.UUID, uuid.UUID) ([]database.OrderStatusHistory, error) {
			return []database.OrderStatusHistory{
				{ID: uuid.New(), OrderID: orderID, ToStatus: database.OrderStatusPendiente, ChangedAt: now},
				{
					ID: uuid.New(), OrderID: orderID,
					FromStatus: database.NullOrderStatus{OrderStatus: database.OrderStatusPendiente, Valid: true},
					ToStatus:   database.OrderStatusConfirmado,
					ChangedBy:  pgtype.UUID{Bytes: testUserID, Valid: true},
					ChangedAt:  now,
				},
			}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, http.MethodGet, ordersPath("/"+orderID.String()+"/history"), nil, cashierClaims())
	assertStatus(t, rr, http.StatusOK)

	entries := decodeList(t, rr)
	if len(entries) != 2 {
		t.Fatalf("entries: got %d", len(entries))
	}
	if entries[0]["from_status"] != nil || entries[0]["changed_by"] != nil {
		t.Errorf("creation entry: got %v", entries[0])
	}
	if entries[1]["from_status"] != "pendiente" || entries[1]["to_status"] != "confirmado" {
		t.Errorf("transition entry: got %v", entries[1])
	}
}

func TestAdvanceOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &mockOrderService{
		advanceFn: func(_ context.Context, branchID, id uuid.UUID, actor service.Actor) (*service.StatusChange, error) {
			if branchID != testBranchID || id != orderID {
				t.Errorf("scope: got %s/%s", branchID, id)
			}
			if actor.UserID != testUserID || actor.Role != enum.UserRoleCocina {
				t.Errorf("actor: got %+v", actor)
			}
			o := testOrder(orderID, database.ServiceTypeDineIn, database.OrderStatusEnPreparacion)
			o.PreparingAt = ts(time.Now())
			return &service.StatusChange{Order: o, From: "confirmado", To: "en_preparacion"}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, http.MethodPost, ordersPath("/"+orderID.String()+"/advance"), nil, testClaims(enum.UserRoleCocina))
	assertStatus(t, rr, http.StatusOK)

	resp := decodeMap(t, rr)
	if resp["from"] != "confirmado" || resp["to"] != "en_preparacion" {
		t.Errorf("change: got %v -> %v", resp["from"], resp["to"])
	}
	order := resp["order"].(map[string]interface{})
	if order["preparing_at"] == nil {
		t.Error("preparing_at must be set")
	}
}

func TestAdvanceOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"terminal", orderflow.ErrTerminalStatus, http.StatusConflict},
		{"concurrent change", service.ErrStatusChanged, http.StatusConflict},
		{"not found", service.ErrOrderNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				advanceFn: func(context.Context, uuid.UUID, uuid.UUID, service.Actor) (*service.StatusChange, error) {
					return nil, tt.err
				},
			}
			router := setupOrderRouter(svc)

			rr := doAuthRequest(t, router, http.MethodPost, ordersPath("/"+uuid.New().String()+"/advance"), nil, cashierClaims())
			assertStatus(t, rr, tt.wantStatus)
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &mockOrderService{
		setStatusFn: func(_ context.Context, _, id uuid.UUID, target string, _ service.Actor) (*service.StatusChange, error) {
			if target == "en_camino" {
				return nil, orderflow.ErrInvalidTransition
			}
			return &service.StatusChange{
				Order: testOrder(id, database.ServiceTypeTakeaway, database.OrderStatus(target)),
				From:  "listo",
				To:    target,
			}, nil
		},
	}
	router := setupOrderRouter(svc)
	id := uuid.New().String()

	rr := doAuthRequest(t, router, http.MethodPatch, ordersPath("/"+id+"/status"), map[string]string{"status": "entregado"}, cashierClaims())
	assertStatus(t, rr, http.StatusOK)
	if got := decodeMap(t, rr)["to"]; got != "entregado" {
		t.Errorf("to: got %v", got)
	}

	rr = doAuthRequest(t, router, http.MethodPatch, ordersPath("/"+id+"/status"), map[string]string{"status": "en_camino"}, cashierClaims())
	assertStatus(t, rr, http.StatusConflict)

	rr = doAuthRequest(t, router, http.MethodPatch, ordersPath("/"+id+"/status"), map[string]string{}, cashierClaims())
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCancelOrder(t *testing.T) {
	var gotReason string
	svc := &mockOrderService{
		cancelFn: func(_ context.Context, _, id uuid.UUID, reason string, _ service.Actor) (*service.StatusChange, error) {
			gotReason = reason
			o := testOrder(id, database.ServiceTypeDelivery, database.OrderStatusCancelado)
			o.CancelledAt = ts(time.Now())
			if reason != "" {
				o.CancelReason = pgtype.Text{String: reason, Valid: true}
			}
			return &service.StatusChange{Order: o, From: "pendiente", To: "cancelado"}, nil
		},
	}
	router := setupOrderRouter(svc)
	id := uuid.New().String()

	t.Run("with reason", func(t *testing.T) {
		rr := doAuthRequest(t, router, http.MethodPost, ordersPath("/"+id+"/cancel"), map[string]string{"reason": "cliente no responde"}, cashierClaims())
		assertStatus(t, rr, http.StatusOK)
		if gotReason != "cliente no responde" {
			t.Errorf("reason: got %q", gotReason)
		}
		order := decodeMap(t, rr)["order"].(map[string]interface{})
		if order["cancel_reason"] != "cliente no responde" {
			t.Errorf("cancel_reason: got %v", order["cancel_reason"])
		}
	})

	t.Run("empty body", func(t *testing.T) {
		rr := doAuthRequest(t, router, http.MethodPost, ordersPath("/"+id+"/cancel"), nil, cashierClaims())
		assertStatus(t, rr, http.StatusOK)
		if gotReason != "" {
			t.Errorf("reason: got %q, want empty", gotReason)
		}
	})
}

func TestUpdatePosition(t *testing.T) {
	svc := &mockOrderService{
		updatePositionFn: func(_ context.Context, _, _ uuid.UUID, lat, lng float64) (*cache.Position, error) {
			return &cache.Position{Lat: lat, Lng: lng, RecordedAt: time.Now()}, nil
		},
	}
	router := setupOrderRouter(svc)
	path := ordersPath("/" + uuid.New().String() + "/position")

	rr := doAuthRequest(t, router, http.MethodPost, path, map[string]float64{"lat": -34.6037, "lng": -58.3816}, testClaims(enum.UserRoleRepartidor))
	assertStatus(t, rr, http.StatusOK)
	if got := decodeMap(t, rr)["lat"]; got != -34.6037 {
		t.Errorf("lat: got %v", got)
	}

	rr = doAuthRequest(t, router, http.MethodPost, path, map[string]float64{"lat": -34.6}, testClaims(enum.UserRoleRepartidor))
	assertStatus(t, rr, http.StatusBadRequest)
	if got := decodeMap(t, rr)["error"]; got != "lng is required" {
		t.Errorf("error: got %q", got)
	}
}

func TestUpdatePosition_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"tracking unavailable", service.ErrTrackingUnavailable, http.StatusServiceUnavailable},
		{"not dispatched", service.ErrOrderNotDispatched, http.StatusConflict},
		{"out of range", service.ErrInvalidPosition, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				updatePositionFn: func(context.Context, uuid.UUID, uuid.UUID, float64, float64) (*cache.Position, error) {
					return nil, tt.err
				},
			}
			router := setupOrderRouter(svc)

			rr := doAuthRequest(t, router, http.MethodPost, ordersPath("/"+uuid.New().String()+"/position"),
				map[string]float64{"lat": 1, "lng": 1}, testClaims(enum.UserRoleRepartidor))
			assertStatus(t, rr, tt.wantStatus)
		})
	}
}

func TestTracking_Public(t *testing.T) {
	orderID := uuid.New()
	svc := &mockOrderService{
		trackingFn: func(_ context.Context, id uuid.UUID) (*service.TrackingView, error) {
			if id != orderID {
				return nil, service.ErrOrderNotFound
			}
			return &service.TrackingView{
				OrderID:     orderID,
				OrderNumber: "C-0007",
				ServiceType: "delivery",
				Status:      "en_camino",
				Step:        4,
				Steps:       []string{"pendiente", "confirmado", "en_preparacion", "listo", "en_camino", "entregado"},
				CreatedAt:   time.Now(),
				Position:    &cache.Position{Lat: -34.6, Lng: -58.4, RecordedAt: time.Now()},
			}, nil
		},
	}
	router := setupOrderRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/tracking/"+orderID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assertStatus(t, rr, http.StatusOK)

	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control: got %q", got)
	}
	resp := decodeMap(t, rr)
	if resp["status"] != "en_camino" || resp["step"] != float64(4) {
		t.Errorf("view: got %v", resp)
	}
	if _, ok := resp["customer_name"]; ok {
		t.Error("tracking must not expose customer data")
	}
	if resp["position"] == nil {
		t.Error("expected courier position")
	}

	rr = doRequest(t, router, http.MethodGet, "/tracking/"+uuid.New().String(), nil, "")
	assertStatus(t, rr, http.StatusNotFound)
}

func TestOrders_RequireToken(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	rr := doRequest(t, router, http.MethodGet, ordersPath(""), nil, "")
	assertStatus(t, rr, http.StatusUnauthorized)
}

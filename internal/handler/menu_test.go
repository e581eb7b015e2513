package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type mockMenuStore struct {
	items map[uuid.UUID]database.MenuItem
	err   error
}

func newMockMenuStore() *mockMenuStore {
	return &mockMenuStore{items: make(map[uuid.UUID]database.MenuItem)}
}

func (m *mockMenuStore) ListMenuItemsByBranch(_ context.Context, branchID uuid.UUID) ([]database.MenuItem, error) {
	var out []database.MenuItem
	for _, it := range m.items {
		if it.BranchID == branchID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockMenuStore) CreateMenuItem(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	if m.err != nil {
		return database.MenuItem{}, m.err
	}
	it := database.MenuItem{
		ID: uuid.New(), BranchID: arg.BranchID, Category: arg.Category, Name: arg.Name,
		Price: arg.Price, IsAvailable: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockMenuStore) UpdateMenuItemAvailability(_ context.Context, arg database.UpdateMenuItemAvailabilityParams) (database.MenuItem, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.BranchID != arg.BranchID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	it.IsAvailable = arg.IsAvailable
	m.items[it.ID] = it
	return it, nil
}

func setupMenuRouter(store *mockMenuStore) *chi.Mux {
	h := handler.NewMenuHandler(store, zap.NewNop())
	return newBranchRouter(func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterManagerRoutes(r)
	})
}

func TestCreateMenuItem(t *testing.T) {
	store := newMockMenuStore()
	router := setupMenuRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, branchPath("/menu"), map[string]string{
		"category": "Minutas",
		"name":     "Milanesa napolitana",
		"price":    "4500.5",
	}, managerClaims())
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeMap(t, rr)
	if resp["price"] != "4500.50" || resp["is_available"] != true {
		t.Errorf("item: got %v", resp)
	}

	rr = doAuthRequest(t, router, http.MethodGet, branchPath("/menu"), nil, cashierClaims())
	assertStatus(t, rr, http.StatusOK)
	if list := decodeList(t, rr); len(list) != 1 {
		t.Errorf("menu: got %d items, want 1", len(list))
	}
}

func TestCreateMenuItem_Validation(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"zero price", map[string]string{"category": "Bebidas", "name": "Agua", "price": "0"}, "price must be > 0"},
		{"negative price", map[string]string{"category": "Bebidas", "name": "Agua", "price": "-10"}, "price must be > 0"},
		{"missing name", map[string]string{"category": "Bebidas", "price": "10"}, "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, http.MethodPost, branchPath("/menu"), tt.body, managerClaims())
			assertStatus(t, rr, http.StatusBadRequest)
			if got := decodeMap(t, rr)["error"]; got != tt.want {
				t.Errorf("error: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateMenuItem_Duplicate(t *testing.T) {
	store := newMockMenuStore()
	store.err = &pgconn.PgError{Code: "23505"}
	router := setupMenuRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, branchPath("/menu"), map[string]string{
		"category": "Bebidas", "name": "Agua", "price": "900",
	}, managerClaims())
	assertStatus(t, rr, http.StatusConflict)
}

func TestSetMenuItemAvailability(t *testing.T) {
	store := newMockMenuStore()
	item := database.MenuItem{ID: uuid.New(), BranchID: testBranchID, Category: "Postres", Name: "Flan", Price: toNumeric("2500"), IsAvailable: true}
	store.items[item.ID] = item
	router := setupMenuRouter(store)

	rr := doAuthRequest(t, router, http.MethodPatch, branchPath("/menu/"+item.ID.String()+"/availability"),
		map[string]bool{"is_available": false}, managerClaims())
	assertStatus(t, rr, http.StatusOK)
	if got := decodeMap(t, rr)["is_available"]; got != false {
		t.Errorf("is_available: got %v", got)
	}

	rr = doAuthRequest(t, router, http.MethodPatch, branchPath("/menu/"+item.ID.String()+"/availability"),
		map[string]bool{}, managerClaims())
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doAuthRequest(t, router, http.MethodPatch, branchPath("/menu/"+uuid.New().String()+"/availability"),
		map[string]bool{"is_available": true}, managerClaims())
	assertStatus(t, rr, http.StatusNotFound)
}

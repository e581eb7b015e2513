//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/router"
	"github.com/comanda-app/api/internal/ws"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow runs a cash shift, an order and a supplier payment
// through the full router against a real PostgreSQL database.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if _, err := database.Migrate(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cfg := &config.Config{
		Port:                  "8081",
		DatabaseURL:           connStr,
		JWTSecret:             "integration-test-secret",
		MovementAuthThreshold: decimal.NewFromInt(50000),
		TrackingCacheTTL:      30 * time.Second,
		Location:              loc,
		CORSAllowedOrigins:    []string{"*"},
	}
	log := zap.NewNop()
	hub := ws.NewHub(log)
	go hub.Run(ctx)

	r := router.New(cfg, router.Deps{
		Queries:  database.New(pool),
		Pool:     pool,
		Hub:      hub,
		Notifier: hub,
		Log:      log,
	})
	server := httptest.NewServer(r)
	defer server.Close()

	branchID := createBranch(t, ctx, pool)
	createAdmin(t, ctx, pool, branchID)
	registerID := createRegister(t, ctx, pool, branchID)

	token := login(t, server, "admin@comanda.test", "password123")
	base := "/branches/" + branchID.String()

	// --- Cash shift ---
	shift := httpJSON(t, server, http.MethodPost, base+"/shifts", map[string]interface{}{
		"register_id":    registerID.String(),
		"opening_amount": "10000",
	}, token, http.StatusCreated)
	shiftID := shift["id"].(string)

	httpJSON(t, server, http.MethodPost, base+"/shifts", map[string]interface{}{
		"register_id":    registerID.String(),
		"opening_amount": "0",
	}, token, http.StatusConflict)

	httpJSON(t, server, http.MethodPost, base+"/shifts/"+shiftID+"/movements", map[string]interface{}{
		"type":           "income",
		"amount":         "5000",
		"concept":        "Venta mostrador",
		"payment_method": "efectivo",
	}, token, http.StatusCreated)

	summary := httpJSON(t, server, http.MethodGet, base+"/shifts/"+shiftID+"/summary", nil, token, http.StatusOK)
	if summary["expected"] != "15000.00" {
		t.Errorf("summary expected: got %v, want 15000.00", summary["expected"])
	}

	closed := httpJSON(t, server, http.MethodPost, base+"/shifts/"+shiftID+"/close", map[string]interface{}{
		"counted_amount": "15000",
	}, token, http.StatusOK)
	if closed["discrepancy"] != "0.00" || closed["classification"] != "normal" {
		t.Errorf("close: got discrepancy %v classification %v", closed["discrepancy"], closed["classification"])
	}

	httpJSON(t, server, http.MethodPost, base+"/shifts/"+shiftID+"/movements", map[string]interface{}{
		"type":           "expense",
		"amount":         "100",
		"concept":        "Hielo",
		"payment_method": "efectivo",
	}, token, http.StatusConflict)

	// --- Order ---
	item := httpJSON(t, server, http.MethodPost, base+"/menu", map[string]interface{}{
		"category": "Minutas",
		"name":     "Milanesa napolitana",
		"price":    "4500",
	}, token, http.StatusCreated)

	order := httpJSON(t, server, http.MethodPost, base+"/orders", map[string]interface{}{
		"service_type": "dine_in",
		"items":        []map[string]interface{}{{"menu_item_id": item["id"], "quantity": 2}},
	}, token, http.StatusCreated)
	if order["status"] != "pendiente" || order["total"] != "9000.00" {
		t.Errorf("order: got status %v total %v", order["status"], order["total"])
	}
	orderID := order["id"].(string)

	change := httpJSON(t, server, http.MethodPost, base+"/orders/"+orderID+"/advance", nil, token, http.StatusOK)
	if change["from"] != "pendiente" || change["to"] != "confirmado" {
		t.Errorf("advance: got %v -> %v", change["from"], change["to"])
	}

	tracking := httpJSON(t, server, http.MethodGet, "/tracking/"+orderID, nil, "", http.StatusOK)
	if tracking["status"] != "confirmado" {
		t.Errorf("tracking status: got %v", tracking["status"])
	}

	httpJSON(t, server, http.MethodPost, base+"/orders/"+orderID+"/cancel", nil, token, http.StatusOK)
	httpJSON(t, server, http.MethodPost, base+"/orders/"+orderID+"/advance", nil, token, http.StatusConflict)

	// --- Supplier payment ---
	supplier := httpJSON(t, server, http.MethodPost, base+"/suppliers", map[string]interface{}{
		"name": "Lácteos del Oeste",
	}, token, http.StatusCreated)
	supplierID := supplier["id"].(string)

	invoice := httpJSON(t, server, http.MethodPost, base+"/suppliers/"+supplierID+"/invoices", map[string]interface{}{
		"invoice_number": "A-0001-00000042",
		"issued_at":      "2026-10-01",
		"total":          "10000",
	}, token, http.StatusCreated)
	invoiceID := invoice["id"].(string)

	paid := httpJSON(t, server, http.MethodPost, base+"/invoices/"+invoiceID+"/payments", map[string]interface{}{
		"lines": []map[string]string{{"amount": "12000", "method": "efectivo"}},
	}, token, http.StatusCreated)
	payment := paid["payment"].(map[string]interface{})
	if payment["saldo_resultante"] != "0.00" || payment["credit_generated"] != "2000.00" {
		t.Errorf("payment: got %v", payment)
	}

	httpJSON(t, server, http.MethodPost, base+"/invoices/"+invoiceID+"/payments", map[string]interface{}{
		"lines": []map[string]string{{"amount": "1", "method": "efectivo"}},
	}, token, http.StatusConflict)

	account := httpJSON(t, server, http.MethodGet, base+"/suppliers/"+supplierID, nil, token, http.StatusOK)
	if account["credit"] != "2000.00" || account["owed"] != "0.00" {
		t.Errorf("account: got credit %v owed %v", account["credit"], account["owed"])
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("comanda_test"),
		tcpostgres.WithUsername("comanda"),
		tcpostgres.WithPassword("comanda"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func createBranch(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO branches (name, slug, address) VALUES ($1, $2, $3) RETURNING id`,
		"Sucursal Centro", "sucursal-centro", "Av. de Mayo 800",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	return id
}

func createAdmin(t *testing.T, ctx context.Context, pool *pgxpool.Pool, branchID uuid.UUID) uuid.UUID {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (branch_id, email, hashed_password, full_name, role)
		 VALUES ($1, $2, $3, $4, 'ADMIN') RETURNING id`,
		branchID, "admin@comanda.test", string(hashed), "Admin",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return id
}

func createRegister(t *testing.T, ctx context.Context, pool *pgxpool.Pool, branchID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO cash_registers (branch_id, name, kind) VALUES ($1, $2, 'ventas') RETURNING id`,
		branchID, "Caja 1",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create register: %v", err)
	}
	return id
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := httpJSON(t, server, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, "", http.StatusOK)
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatal("login: no access_token in response")
	}
	return token
}

// --- HTTP helpers ---

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, wantStatus int) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequest(method, server.URL+path, reader)
	} else {
		req, err = http.NewRequest(method, server.URL+path, nil)
	}
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body: %v", method, path, resp.StatusCode, wantStatus, result)
	}
	return result
}

package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comanda-app/api/internal/auth"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret-for-handlers"

var (
	testBranchID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUserID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// newBranchRouter mounts routes under /branches/{bid} behind the same
// authentication and branch scoping the server uses.
func newBranchRouter(mount func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/branches/{bid}", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.RequireBranch)
		mount(r)
	})
	return r
}

func testClaims(role string) *auth.Claims {
	return &auth.Claims{
		UserID:   testUserID,
		BranchID: testBranchID,
		Role:     role,
	}
}

func cashierClaims() *auth.Claims { return testClaims(enum.UserRoleCajero) }

func managerClaims() *auth.Claims { return testClaims(enum.UserRoleEncargado) }

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	// Generate a real JWT token from claims
	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.BranchID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return doRequest(t, router, method, path, body, token)
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
	return resp
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body: %s)", rr.Code, want, rr.Body.String())
	}
}

func toNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(decimal.RequireFromString(s).StringFixed(2)); err != nil {
		panic(err)
	}
	return n
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func toDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

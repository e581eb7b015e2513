package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/comanda-app/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	branchID := uuid.New()
	role := "CAJERO"

	token, err := auth.GenerateToken(secret, userID, branchID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.BranchID != branchID {
		t.Errorf("branch ID: got %v, want %v", claims.BranchID, branchID)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	userID := uuid.New()
	branchID := uuid.New()

	token, err := auth.GenerateToken("secret-a", userID, branchID, "CAJERO")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	refresh, err := auth.GenerateRefreshToken(secret, userID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	if _, err := auth.ValidateToken(secret, refresh); err == nil {
		t.Fatal("refresh token accepted as access token")
	}

	got, err := auth.ValidateRefreshToken(secret, refresh)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if got != userID {
		t.Errorf("user ID: got %v, want %v", got, userID)
	}
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	secret := "test-secret"
	access, err := auth.GenerateToken(secret, uuid.New(), uuid.New(), "CAJERO")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateRefreshToken(secret, access); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
}

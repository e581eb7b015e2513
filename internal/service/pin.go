package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidSupervisorPIN = errors.New("invalid supervisor pin")

// Authorizer confirms a supervisor's presence for operations above the
// authorization threshold.
type Authorizer interface {
	VerifySupervisorPIN(ctx context.Context, branchID uuid.UUID, pin string) (uuid.UUID, error)
}

// PINStore lists the users of a branch that have a PIN configured.
type PINStore interface {
	ListUsersWithPinByBranch(ctx context.Context, branchID uuid.UUID) ([]database.User, error)
}

// PINAuthorizer checks a PIN against the bcrypt hashes of the branch's
// supervisors.
type PINAuthorizer struct {
	store PINStore
}

func NewPINAuthorizer(store PINStore) *PINAuthorizer {
	return &PINAuthorizer{store: store}
}

// VerifySupervisorPIN returns the id of the supervisor owning pin.
func (a *PINAuthorizer) VerifySupervisorPIN(ctx context.Context, branchID uuid.UUID, pin string) (uuid.UUID, error) {
	if pin == "" {
		return uuid.Nil, ErrInvalidSupervisorPIN
	}
	users, err := a.store.ListUsersWithPinByBranch(ctx, branchID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list users with pin: %w", err)
	}
	for _, u := range users {
		if !enum.IsSupervisor(string(u.Role)) || !u.PinHash.Valid {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PinHash.String), []byte(pin)) == nil {
			return u.ID, nil
		}
	}
	return uuid.Nil, ErrInvalidSupervisorPIN
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, branch_id, email, hashed_password, full_name, role, pin_hash, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.PinHash,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsersWithPinByBranch = `-- name: ListUsersWithPinByBranch :many
SELECT ` + userColumns + ` FROM users
WHERE branch_id = $1 AND is_active = true AND pin_hash IS NOT NULL
ORDER BY full_name
`

// ListUsersWithPinByBranch returns candidates for PIN login and supervisor
// PIN checks. PINs are bcrypt hashed so they cannot be looked up directly.
func (q *Queries) ListUsersWithPinByBranch(ctx context.Context, branchID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersWithPinByBranch, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listUsersByBranch = `-- name: ListUsersByBranch :many
SELECT ` + userColumns + ` FROM users
WHERE branch_id = $1 AND is_active = true
ORDER BY full_name
`

func (q *Queries) ListUsersByBranch(ctx context.Context, branchID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByBranch, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (branch_id, email, hashed_password, full_name, role, pin_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

type CreateUserParams struct {
	BranchID       uuid.UUID   `json:"branch_id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Role           UserRole    `json:"role"`
	PinHash        pgtype.Text `json:"pin_hash"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.BranchID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
		arg.PinHash,
	))
}

const updateUserPin = `-- name: UpdateUserPin :one
UPDATE users SET pin_hash = $3, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING ` + userColumns

type UpdateUserPinParams struct {
	ID       uuid.UUID   `json:"id"`
	BranchID uuid.UUID   `json:"branch_id"`
	PinHash  pgtype.Text `json:"pin_hash"`
}

func (q *Queries) UpdateUserPin(ctx context.Context, arg UpdateUserPinParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserPin, arg.ID, arg.BranchID, arg.PinHash))
}

const deactivateUser = `-- name: DeactivateUser :one
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING id
`

type DeactivateUserParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) DeactivateUser(ctx context.Context, arg DeactivateUserParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deactivateUser, arg.ID, arg.BranchID).Scan(&id)
	return id, err
}

const getBranch = `-- name: GetBranch :one
SELECT id, name, slug, address, is_active, created_at FROM branches
WHERE id = $1
`

func (q *Queries) GetBranch(ctx context.Context, id uuid.UUID) (Branch, error) {
	row := q.db.QueryRow(ctx, getBranch, id)
	var i Branch
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Address,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

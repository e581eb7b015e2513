package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Registers ---

const registerColumns = `id, branch_id, name, kind, is_active, created_at`

func scanRegister(row interface{ Scan(...any) error }) (CashRegister, error) {
	var i CashRegister
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.Name,
		&i.Kind,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listRegistersByBranch = `-- name: ListRegistersByBranch :many
SELECT ` + registerColumns + ` FROM cash_registers
WHERE branch_id = $1 AND is_active = true
ORDER BY kind, name
`

func (q *Queries) ListRegistersByBranch(ctx context.Context, branchID uuid.UUID) ([]CashRegister, error) {
	rows, err := q.db.Query(ctx, listRegistersByBranch, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CashRegister
	for rows.Next() {
		i, err := scanRegister(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getRegister = `-- name: GetRegister :one
SELECT ` + registerColumns + ` FROM cash_registers
WHERE id = $1 AND branch_id = $2 AND is_active = true
`

type GetRegisterParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetRegister(ctx context.Context, arg GetRegisterParams) (CashRegister, error) {
	return scanRegister(q.db.QueryRow(ctx, getRegister, arg.ID, arg.BranchID))
}

const createRegister = `-- name: CreateRegister :one
INSERT INTO cash_registers (branch_id, name, kind)
VALUES ($1, $2, $3)
RETURNING ` + registerColumns

type CreateRegisterParams struct {
	BranchID uuid.UUID    `json:"branch_id"`
	Name     string       `json:"name"`
	Kind     RegisterKind `json:"kind"`
}

func (q *Queries) CreateRegister(ctx context.Context, arg CreateRegisterParams) (CashRegister, error) {
	return scanRegister(q.db.QueryRow(ctx, createRegister, arg.BranchID, arg.Name, arg.Kind))
}

// --- Shifts ---

const shiftColumns = `id, register_id, branch_id, status, opened_by, opened_at, opening_amount,
	closed_by, closed_at, closing_amount, expected_amount, discrepancy, notes`

func scanShift(row interface{ Scan(...any) error }) (CashShift, error) {
	var i CashShift
	err := row.Scan(
		&i.ID,
		&i.RegisterID,
		&i.BranchID,
		&i.Status,
		&i.OpenedBy,
		&i.OpenedAt,
		&i.OpeningAmount,
		&i.ClosedBy,
		&i.ClosedAt,
		&i.ClosingAmount,
		&i.ExpectedAmount,
		&i.Discrepancy,
		&i.Notes,
	)
	return i, err
}

const createShift = `-- name: CreateShift :one
INSERT INTO cash_shifts (register_id, branch_id, opened_by, opening_amount)
VALUES ($1, $2, $3, $4)
RETURNING ` + shiftColumns

type CreateShiftParams struct {
	RegisterID    uuid.UUID      `json:"register_id"`
	BranchID      uuid.UUID      `json:"branch_id"`
	OpenedBy      uuid.UUID      `json:"opened_by"`
	OpeningAmount pgtype.Numeric `json:"opening_amount"`
}

// CreateShift fails with 23505 on cash_shifts_one_open_per_register when the
// register already has an open shift.
func (q *Queries) CreateShift(ctx context.Context, arg CreateShiftParams) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, createShift,
		arg.RegisterID,
		arg.BranchID,
		arg.OpenedBy,
		arg.OpeningAmount,
	))
}

const getShift = `-- name: GetShift :one
SELECT ` + shiftColumns + ` FROM cash_shifts
WHERE id = $1 AND branch_id = $2
`

type GetShiftParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetShift(ctx context.Context, arg GetShiftParams) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, getShift, arg.ID, arg.BranchID))
}

const getShiftForUpdate = `-- name: GetShiftForUpdate :one
SELECT ` + shiftColumns + ` FROM cash_shifts
WHERE id = $1 AND branch_id = $2
FOR UPDATE
`

type GetShiftForUpdateParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetShiftForUpdate(ctx context.Context, arg GetShiftForUpdateParams) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, getShiftForUpdate, arg.ID, arg.BranchID))
}

const getOpenShiftByRegister = `-- name: GetOpenShiftByRegister :one
SELECT ` + shiftColumns + ` FROM cash_shifts
WHERE register_id = $1 AND branch_id = $2 AND status = 'open'
`

type GetOpenShiftByRegisterParams struct {
	RegisterID uuid.UUID `json:"register_id"`
	BranchID   uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetOpenShiftByRegister(ctx context.Context, arg GetOpenShiftByRegisterParams) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, getOpenShiftByRegister, arg.RegisterID, arg.BranchID))
}

const closeShift = `-- name: CloseShift :one
UPDATE cash_shifts
SET status = 'closed',
    closed_by = $3,
    closed_at = now(),
    closing_amount = $4,
    expected_amount = $5,
    discrepancy = $6,
    notes = $7
WHERE id = $1 AND branch_id = $2 AND status = 'open'
RETURNING ` + shiftColumns

type CloseShiftParams struct {
	ID             uuid.UUID      `json:"id"`
	BranchID       uuid.UUID      `json:"branch_id"`
	ClosedBy       uuid.UUID      `json:"closed_by"`
	ClosingAmount  pgtype.Numeric `json:"closing_amount"`
	ExpectedAmount pgtype.Numeric `json:"expected_amount"`
	Discrepancy    pgtype.Numeric `json:"discrepancy"`
	Notes          pgtype.Text    `json:"notes"`
}

func (q *Queries) CloseShift(ctx context.Context, arg CloseShiftParams) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, closeShift,
		arg.ID,
		arg.BranchID,
		arg.ClosedBy,
		arg.ClosingAmount,
		arg.ExpectedAmount,
		arg.Discrepancy,
		arg.Notes,
	))
}

const listClosedShiftsByBranch = `-- name: ListClosedShiftsByBranch :many
SELECT ` + shiftColumns + ` FROM cash_shifts
WHERE branch_id = $1
  AND status = 'closed'
  AND closed_at >= $2
  AND closed_at < $3
ORDER BY closed_at DESC
`

type ListClosedShiftsByBranchParams struct {
	BranchID uuid.UUID          `json:"branch_id"`
	From     pgtype.Timestamptz `json:"from"`
	To       pgtype.Timestamptz `json:"to"`
}

func (q *Queries) ListClosedShiftsByBranch(ctx context.Context, arg ListClosedShiftsByBranchParams) ([]CashShift, error) {
	rows, err := q.db.Query(ctx, listClosedShiftsByBranch, arg.BranchID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CashShift
	for rows.Next() {
		i, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// --- Movements ---

const movementColumns = `id, shift_id, type, amount, concept, payment_method, recorded_by, authorized_by, transfer_id, created_at`

func scanMovement(row interface{ Scan(...any) error }) (CashMovement, error) {
	var i CashMovement
	err := row.Scan(
		&i.ID,
		&i.ShiftID,
		&i.Type,
		&i.Amount,
		&i.Concept,
		&i.PaymentMethod,
		&i.RecordedBy,
		&i.AuthorizedBy,
		&i.TransferID,
		&i.CreatedAt,
	)
	return i, err
}

const createMovement = `-- name: CreateMovement :one
INSERT INTO cash_movements (shift_id, type, amount, concept, payment_method, recorded_by, authorized_by, transfer_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + movementColumns

type CreateMovementParams struct {
	ShiftID       uuid.UUID      `json:"shift_id"`
	Type          MovementType   `json:"type"`
	Amount        pgtype.Numeric `json:"amount"`
	Concept       string         `json:"concept"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	RecordedBy    uuid.UUID      `json:"recorded_by"`
	AuthorizedBy  pgtype.UUID    `json:"authorized_by"`
	TransferID    pgtype.UUID    `json:"transfer_id"`
}

func (q *Queries) CreateMovement(ctx context.Context, arg CreateMovementParams) (CashMovement, error) {
	return scanMovement(q.db.QueryRow(ctx, createMovement,
		arg.ShiftID,
		arg.Type,
		arg.Amount,
		arg.Concept,
		arg.PaymentMethod,
		arg.RecordedBy,
		arg.AuthorizedBy,
		arg.TransferID,
	))
}

const listMovementsByShift = `-- name: ListMovementsByShift :many
SELECT ` + movementColumns + ` FROM cash_movements
WHERE shift_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListMovementsByShift(ctx context.Context, shiftID uuid.UUID) ([]CashMovement, error) {
	rows, err := q.db.Query(ctx, listMovementsByShift, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CashMovement
	for rows.Next() {
		i, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// --- Transfers ---

const createTransfer = `-- name: CreateTransfer :one
INSERT INTO cash_transfers (branch_id, kind, source_shift_id, dest_shift_id, amount, created_by, authorized_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, branch_id, kind, source_shift_id, dest_shift_id, amount, created_by, authorized_by, created_at
`

type CreateTransferParams struct {
	BranchID      uuid.UUID      `json:"branch_id"`
	Kind          TransferKind   `json:"kind"`
	SourceShiftID uuid.UUID      `json:"source_shift_id"`
	DestShiftID   uuid.UUID      `json:"dest_shift_id"`
	Amount        pgtype.Numeric `json:"amount"`
	CreatedBy     uuid.UUID      `json:"created_by"`
	AuthorizedBy  pgtype.UUID    `json:"authorized_by"`
}

func (q *Queries) CreateTransfer(ctx context.Context, arg CreateTransferParams) (CashTransfer, error) {
	row := q.db.QueryRow(ctx, createTransfer,
		arg.BranchID,
		arg.Kind,
		arg.SourceShiftID,
		arg.DestShiftID,
		arg.Amount,
		arg.CreatedBy,
		arg.AuthorizedBy,
	)
	var i CashTransfer
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.Kind,
		&i.SourceShiftID,
		&i.DestShiftID,
		&i.Amount,
		&i.CreatedBy,
		&i.AuthorizedBy,
		&i.CreatedAt,
	)
	return i, err
}

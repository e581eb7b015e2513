package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const supplierColumns = `id, branch_id, name, cuit, is_royalty_brand, credit_balance, created_at, updated_at`

func scanSupplier(row interface{ Scan(...any) error }) (Supplier, error) {
	var i Supplier
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.Name,
		&i.Cuit,
		&i.IsRoyaltyBrand,
		&i.CreditBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listSuppliersByBranch = `-- name: ListSuppliersByBranch :many
SELECT ` + supplierColumns + ` FROM suppliers
WHERE branch_id = $1
ORDER BY name
`

func (q *Queries) ListSuppliersByBranch(ctx context.Context, branchID uuid.UUID) ([]Supplier, error) {
	rows, err := q.db.Query(ctx, listSuppliersByBranch, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Supplier
	for rows.Next() {
		i, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createSupplier = `-- name: CreateSupplier :one
INSERT INTO suppliers (branch_id, name, cuit, is_royalty_brand)
VALUES ($1, $2, $3, $4)
RETURNING ` + supplierColumns

type CreateSupplierParams struct {
	BranchID       uuid.UUID   `json:"branch_id"`
	Name           string      `json:"name"`
	Cuit           pgtype.Text `json:"cuit"`
	IsRoyaltyBrand bool        `json:"is_royalty_brand"`
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	return scanSupplier(q.db.QueryRow(ctx, createSupplier, arg.BranchID, arg.Name, arg.Cuit, arg.IsRoyaltyBrand))
}

const getSupplier = `-- name: GetSupplier :one
SELECT ` + supplierColumns + ` FROM suppliers
WHERE id = $1 AND branch_id = $2
`

type GetSupplierParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetSupplier(ctx context.Context, arg GetSupplierParams) (Supplier, error) {
	return scanSupplier(q.db.QueryRow(ctx, getSupplier, arg.ID, arg.BranchID))
}

const getSupplierForUpdate = `-- name: GetSupplierForUpdate :one
SELECT ` + supplierColumns + ` FROM suppliers
WHERE id = $1 AND branch_id = $2
FOR UPDATE
`

func (q *Queries) GetSupplierForUpdate(ctx context.Context, arg GetSupplierParams) (Supplier, error) {
	return scanSupplier(q.db.QueryRow(ctx, getSupplierForUpdate, arg.ID, arg.BranchID))
}

const updateSupplierCredit = `-- name: UpdateSupplierCredit :one
UPDATE suppliers SET credit_balance = $2, updated_at = now()
WHERE id = $1
RETURNING ` + supplierColumns

type UpdateSupplierCreditParams struct {
	ID            uuid.UUID      `json:"id"`
	CreditBalance pgtype.Numeric `json:"credit_balance"`
}

func (q *Queries) UpdateSupplierCredit(ctx context.Context, arg UpdateSupplierCreditParams) (Supplier, error) {
	return scanSupplier(q.db.QueryRow(ctx, updateSupplierCredit, arg.ID, arg.CreditBalance))
}

// --- Invoices ---

const invoiceColumns = `id, supplier_id, branch_id, invoice_number, issued_at, due_at, total,
	saldo_pendiente, description, created_by, created_at, updated_at`

func scanInvoice(row interface{ Scan(...any) error }) (SupplierInvoice, error) {
	var i SupplierInvoice
	err := row.Scan(
		&i.ID,
		&i.SupplierID,
		&i.BranchID,
		&i.InvoiceNumber,
		&i.IssuedAt,
		&i.DueAt,
		&i.Total,
		&i.SaldoPendiente,
		&i.Description,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createSupplierInvoice = `-- name: CreateSupplierInvoice :one
INSERT INTO supplier_invoices (supplier_id, branch_id, invoice_number, issued_at, due_at, total,
	saldo_pendiente, description, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8)
RETURNING ` + invoiceColumns

type CreateSupplierInvoiceParams struct {
	SupplierID    uuid.UUID      `json:"supplier_id"`
	BranchID      uuid.UUID      `json:"branch_id"`
	InvoiceNumber string         `json:"invoice_number"`
	IssuedAt      pgtype.Date    `json:"issued_at"`
	DueAt         pgtype.Date    `json:"due_at"`
	Total         pgtype.Numeric `json:"total"`
	Description   pgtype.Text    `json:"description"`
	CreatedBy     uuid.UUID      `json:"created_by"`
}

// CreateSupplierInvoice starts the invoice with saldo_pendiente = total.
func (q *Queries) CreateSupplierInvoice(ctx context.Context, arg CreateSupplierInvoiceParams) (SupplierInvoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createSupplierInvoice,
		arg.SupplierID,
		arg.BranchID,
		arg.InvoiceNumber,
		arg.IssuedAt,
		arg.DueAt,
		arg.Total,
		arg.Description,
		arg.CreatedBy,
	))
}

const getSupplierInvoice = `-- name: GetSupplierInvoice :one
SELECT ` + invoiceColumns + ` FROM supplier_invoices
WHERE id = $1 AND branch_id = $2
`

type GetSupplierInvoiceParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetSupplierInvoice(ctx context.Context, arg GetSupplierInvoiceParams) (SupplierInvoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getSupplierInvoice, arg.ID, arg.BranchID))
}

const getSupplierInvoiceForUpdate = `-- name: GetSupplierInvoiceForUpdate :one
SELECT ` + invoiceColumns + ` FROM supplier_invoices
WHERE id = $1 AND branch_id = $2
FOR UPDATE
`

func (q *Queries) GetSupplierInvoiceForUpdate(ctx context.Context, arg GetSupplierInvoiceParams) (SupplierInvoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getSupplierInvoiceForUpdate, arg.ID, arg.BranchID))
}

const listSupplierInvoices = `-- name: ListSupplierInvoices :many
SELECT ` + invoiceColumns + ` FROM supplier_invoices
WHERE supplier_id = $1 AND branch_id = $2
  AND (NOT $3::boolean OR saldo_pendiente > 0)
ORDER BY issued_at, invoice_number
`

type ListSupplierInvoicesParams struct {
	SupplierID uuid.UUID `json:"supplier_id"`
	BranchID   uuid.UUID `json:"branch_id"`
	OnlyOpen   bool      `json:"only_open"`
}

func (q *Queries) ListSupplierInvoices(ctx context.Context, arg ListSupplierInvoicesParams) ([]SupplierInvoice, error) {
	rows, err := q.db.Query(ctx, listSupplierInvoices, arg.SupplierID, arg.BranchID, arg.OnlyOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SupplierInvoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateInvoiceSaldo = `-- name: UpdateInvoiceSaldo :one
UPDATE supplier_invoices SET saldo_pendiente = $2, updated_at = now()
WHERE id = $1
RETURNING ` + invoiceColumns

type UpdateInvoiceSaldoParams struct {
	ID             uuid.UUID      `json:"id"`
	SaldoPendiente pgtype.Numeric `json:"saldo_pendiente"`
}

func (q *Queries) UpdateInvoiceSaldo(ctx context.Context, arg UpdateInvoiceSaldoParams) (SupplierInvoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, updateInvoiceSaldo, arg.ID, arg.SaldoPendiente))
}

// --- Canon breakdown ---

const createInvoiceCanon = `-- name: CreateInvoiceCanon :one
INSERT INTO supplier_invoice_canon (invoice_id, venta_total, efectivo, canon, marketing, cash_portion, transfer_portion)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING invoice_id, venta_total, efectivo, canon, marketing, cash_portion, transfer_portion
`

type CreateInvoiceCanonParams struct {
	InvoiceID       uuid.UUID      `json:"invoice_id"`
	VentaTotal      pgtype.Numeric `json:"venta_total"`
	Efectivo        pgtype.Numeric `json:"efectivo"`
	Canon           pgtype.Numeric `json:"canon"`
	Marketing       pgtype.Numeric `json:"marketing"`
	CashPortion     pgtype.Numeric `json:"cash_portion"`
	TransferPortion pgtype.Numeric `json:"transfer_portion"`
}

func (q *Queries) CreateInvoiceCanon(ctx context.Context, arg CreateInvoiceCanonParams) (SupplierInvoiceCanon, error) {
	row := q.db.QueryRow(ctx, createInvoiceCanon,
		arg.InvoiceID,
		arg.VentaTotal,
		arg.Efectivo,
		arg.Canon,
		arg.Marketing,
		arg.CashPortion,
		arg.TransferPortion,
	)
	return scanInvoiceCanon(row)
}

func scanInvoiceCanon(row interface{ Scan(...any) error }) (SupplierInvoiceCanon, error) {
	var i SupplierInvoiceCanon
	err := row.Scan(
		&i.InvoiceID,
		&i.VentaTotal,
		&i.Efectivo,
		&i.Canon,
		&i.Marketing,
		&i.CashPortion,
		&i.TransferPortion,
	)
	return i, err
}

const getInvoiceCanon = `-- name: GetInvoiceCanon :one
SELECT invoice_id, venta_total, efectivo, canon, marketing, cash_portion, transfer_portion
FROM supplier_invoice_canon
WHERE invoice_id = $1
`

func (q *Queries) GetInvoiceCanon(ctx context.Context, invoiceID uuid.UUID) (SupplierInvoiceCanon, error) {
	return scanInvoiceCanon(q.db.QueryRow(ctx, getInvoiceCanon, invoiceID))
}

// --- Payments ---

const paymentColumns = `id, supplier_id, invoice_id, total, saldo_anterior, saldo_resultante, credit_generated, notes, paid_by, paid_at`

func scanSupplierPayment(row interface{ Scan(...any) error }) (SupplierPayment, error) {
	var i SupplierPayment
	err := row.Scan(
		&i.ID,
		&i.SupplierID,
		&i.InvoiceID,
		&i.Total,
		&i.SaldoAnterior,
		&i.SaldoResultante,
		&i.CreditGenerated,
		&i.Notes,
		&i.PaidBy,
		&i.PaidAt,
	)
	return i, err
}

const createSupplierPayment = `-- name: CreateSupplierPayment :one
INSERT INTO supplier_payments (supplier_id, invoice_id, total, saldo_anterior, saldo_resultante, credit_generated, notes, paid_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns

type CreateSupplierPaymentParams struct {
	SupplierID      uuid.UUID      `json:"supplier_id"`
	InvoiceID       uuid.UUID      `json:"invoice_id"`
	Total           pgtype.Numeric `json:"total"`
	SaldoAnterior   pgtype.Numeric `json:"saldo_anterior"`
	SaldoResultante pgtype.Numeric `json:"saldo_resultante"`
	CreditGenerated pgtype.Numeric `json:"credit_generated"`
	Notes           pgtype.Text    `json:"notes"`
	PaidBy          uuid.UUID      `json:"paid_by"`
}

func (q *Queries) CreateSupplierPayment(ctx context.Context, arg CreateSupplierPaymentParams) (SupplierPayment, error) {
	return scanSupplierPayment(q.db.QueryRow(ctx, createSupplierPayment,
		arg.SupplierID,
		arg.InvoiceID,
		arg.Total,
		arg.SaldoAnterior,
		arg.SaldoResultante,
		arg.CreditGenerated,
		arg.Notes,
		arg.PaidBy,
	))
}

const createSupplierPaymentLine = `-- name: CreateSupplierPaymentLine :one
INSERT INTO supplier_payment_lines (payment_id, amount, method, is_credit_offset)
VALUES ($1, $2, $3, $4)
RETURNING id, payment_id, amount, method, is_credit_offset
`

type CreateSupplierPaymentLineParams struct {
	PaymentID      uuid.UUID             `json:"payment_id"`
	Amount         pgtype.Numeric        `json:"amount"`
	Method         SupplierPaymentMethod `json:"method"`
	IsCreditOffset bool                  `json:"is_credit_offset"`
}

func (q *Queries) CreateSupplierPaymentLine(ctx context.Context, arg CreateSupplierPaymentLineParams) (SupplierPaymentLine, error) {
	row := q.db.QueryRow(ctx, createSupplierPaymentLine, arg.PaymentID, arg.Amount, arg.Method, arg.IsCreditOffset)
	var i SupplierPaymentLine
	err := row.Scan(
		&i.ID,
		&i.PaymentID,
		&i.Amount,
		&i.Method,
		&i.IsCreditOffset,
	)
	return i, err
}

const listPaymentsByInvoice = `-- name: ListPaymentsByInvoice :many
SELECT ` + paymentColumns + ` FROM supplier_payments
WHERE invoice_id = $1
ORDER BY paid_at
`

func (q *Queries) ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]SupplierPayment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByInvoice, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SupplierPayment
	for rows.Next() {
		i, err := scanSupplierPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listPaymentLinesByPayment = `-- name: ListPaymentLinesByPayment :many
SELECT id, payment_id, amount, method, is_credit_offset
FROM supplier_payment_lines
WHERE payment_id = $1
ORDER BY is_credit_offset DESC, id
`

func (q *Queries) ListPaymentLinesByPayment(ctx context.Context, paymentID uuid.UUID) ([]SupplierPaymentLine, error) {
	rows, err := q.db.Query(ctx, listPaymentLinesByPayment, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SupplierPaymentLine
	for rows.Next() {
		var i SupplierPaymentLine
		if err := rows.Scan(
			&i.ID,
			&i.PaymentID,
			&i.Amount,
			&i.Method,
			&i.IsCreditOffset,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

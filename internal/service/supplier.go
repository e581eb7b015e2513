package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comanda-app/api/internal/allocator"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Errors returned by the supplier service.
var (
	ErrSupplierNotFound        = errors.New("supplier not found")
	ErrSupplierNameRequired    = errors.New("name is required")
	ErrInvoiceNotFound         = errors.New("invoice not found")
	ErrInvoiceNumberRequired   = errors.New("invoice_number is required")
	ErrInvalidInvoiceTotal     = errors.New("total must be > 0")
	ErrInvalidInvoiceDates     = errors.New("due_at must not be before issued_at")
	ErrDuplicateInvoiceNumber  = errors.New("invoice number already registered for supplier")
	ErrCanonNotRoyaltySupplier = errors.New("canon breakdown only applies to royalty brand suppliers")
	ErrInvoiceSettled          = errors.New("invoice has no pending balance")
)

const invoiceNumberConstraint = "supplier_invoices_supplier_id_invoice_number_key"

// SupplierStore defines the DB methods needed by the supplier accounts.
// Satisfied by *database.Queries.
type SupplierStore interface {
	ListSuppliersByBranch(ctx context.Context, branchID uuid.UUID) ([]database.Supplier, error)
	CreateSupplier(ctx context.Context, arg database.CreateSupplierParams) (database.Supplier, error)
	GetSupplier(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error)
	GetSupplierForUpdate(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error)
	UpdateSupplierCredit(ctx context.Context, arg database.UpdateSupplierCreditParams) (database.Supplier, error)
	CreateSupplierInvoice(ctx context.Context, arg database.CreateSupplierInvoiceParams) (database.SupplierInvoice, error)
	GetSupplierInvoice(ctx context.Context, arg database.GetSupplierInvoiceParams) (database.SupplierInvoice, error)
	GetSupplierInvoiceForUpdate(ctx context.Context, arg database.GetSupplierInvoiceParams) (database.SupplierInvoice, error)
	ListSupplierInvoices(ctx context.Context, arg database.ListSupplierInvoicesParams) ([]database.SupplierInvoice, error)
	UpdateInvoiceSaldo(ctx context.Context, arg database.UpdateInvoiceSaldoParams) (database.SupplierInvoice, error)
	CreateInvoiceCanon(ctx context.Context, arg database.CreateInvoiceCanonParams) (database.SupplierInvoiceCanon, error)
	GetInvoiceCanon(ctx context.Context, invoiceID uuid.UUID) (database.SupplierInvoiceCanon, error)
	CreateSupplierPayment(ctx context.Context, arg database.CreateSupplierPaymentParams) (database.SupplierPayment, error)
	CreateSupplierPaymentLine(ctx context.Context, arg database.CreateSupplierPaymentLineParams) (database.SupplierPaymentLine, error)
	ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]database.SupplierPayment, error)
	ListPaymentLinesByPayment(ctx context.Context, paymentID uuid.UUID) ([]database.SupplierPaymentLine, error)
}

// NewSupplierStore creates a SupplierStore from a DBTX (pool or tx).
type NewSupplierStore func(db database.DBTX) SupplierStore

// SupplierService keeps supplier invoices, payments and credit balances.
type SupplierService struct {
	db       DB
	newStore NewSupplierStore
	notifier notify.Notifier
	log      *zap.Logger
}

func NewSupplierService(db DB, newStore NewSupplierStore, notifier notify.Notifier, log *zap.Logger) *SupplierService {
	return &SupplierService{db: db, newStore: newStore, notifier: notifier, log: log}
}

// CreateSupplierRequest is the validated input for a new supplier.
type CreateSupplierRequest struct {
	BranchID       uuid.UUID
	Name           string
	Cuit           string
	IsRoyaltyBrand bool
}

func (s *SupplierService) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (database.Supplier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.Supplier{}, ErrSupplierNameRequired
	}
	sup, err := s.newStore(s.db).CreateSupplier(ctx, database.CreateSupplierParams{
		BranchID:       req.BranchID,
		Name:           name,
		Cuit:           pgText(strings.TrimSpace(req.Cuit)),
		IsRoyaltyBrand: req.IsRoyaltyBrand,
	})
	if err != nil {
		return database.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return sup, nil
}

func (s *SupplierService) ListSuppliers(ctx context.Context, branchID uuid.UUID) ([]database.Supplier, error) {
	suppliers, err := s.newStore(s.db).ListSuppliersByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}

// SupplierAccount is a supplier's credit with its unpaid invoices.
type SupplierAccount struct {
	Supplier     database.Supplier          `json:"supplier"`
	Credit       decimal.Decimal            `json:"credit"`
	Owed         decimal.Decimal            `json:"owed"`
	OpenInvoices []database.SupplierInvoice `json:"open_invoices"`
}

// Account returns the supplier's credit and open invoices.
func (s *SupplierService) Account(ctx context.Context, branchID, supplierID uuid.UUID) (*SupplierAccount, error) {
	store := s.newStore(s.db)
	sup, err := getSupplier(ctx, store, branchID, supplierID)
	if err != nil {
		return nil, err
	}
	invoices, err := store.ListSupplierInvoices(ctx, database.ListSupplierInvoicesParams{
		SupplierID: supplierID,
		BranchID:   branchID,
		OnlyOpen:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	owed := decimal.Zero
	for _, inv := range invoices {
		owed = owed.Add(numericToDecimal(inv.SaldoPendiente))
	}
	if invoices == nil {
		invoices = []database.SupplierInvoice{}
	}
	return &SupplierAccount{
		Supplier:     sup,
		Credit:       numericToDecimal(sup.CreditBalance),
		Owed:         owed,
		OpenInvoices: invoices,
	}, nil
}

// ListInvoices returns the supplier's invoices, only unpaid ones when onlyOpen.
func (s *SupplierService) ListInvoices(ctx context.Context, branchID, supplierID uuid.UUID, onlyOpen bool) ([]database.SupplierInvoice, error) {
	store := s.newStore(s.db)
	if _, err := getSupplier(ctx, store, branchID, supplierID); err != nil {
		return nil, err
	}
	invoices, err := store.ListSupplierInvoices(ctx, database.ListSupplierInvoicesParams{
		SupplierID: supplierID,
		BranchID:   branchID,
		OnlyOpen:   onlyOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// CanonInput is the structured royalty breakdown of a franchise invoice.
type CanonInput struct {
	VentaTotal decimal.Decimal
	Efectivo   decimal.Decimal
}

// CreateInvoiceRequest is the validated input for a new supplier invoice.
type CreateInvoiceRequest struct {
	BranchID      uuid.UUID
	SupplierID    uuid.UUID
	InvoiceNumber string
	IssuedAt      time.Time
	DueAt         time.Time
	Total         decimal.Decimal
	Description   string
	Canon         *CanonInput
	CreatedBy     uuid.UUID
}

// InvoiceDetail is an invoice with its royalty breakdown, when it has one.
type InvoiceDetail struct {
	Invoice database.SupplierInvoice  `json:"invoice"`
	Canon   *allocator.CanonBreakdown `json:"canon,omitempty"`
}

// CreateInvoice registers an invoice with saldo pendiente equal to its total.
// For royalty brand suppliers the canon breakdown is stored alongside; when
// none is given it is read from an annotated description if possible. A
// canon invoice without an explicit total is billed canon plus marketing.
func (s *SupplierService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceDetail, error) {
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	if req.InvoiceNumber == "" {
		return nil, ErrInvoiceNumberRequired
	}
	if !req.DueAt.IsZero() && req.DueAt.Before(req.IssuedAt) {
		return nil, ErrInvalidInvoiceDates
	}
	if err := checkMoney(req.Total); err != nil {
		return nil, err
	}
	if req.Canon != nil {
		if err := checkMoney(req.Canon.VentaTotal, req.Canon.Efectivo); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	sup, err := getSupplier(ctx, store, req.BranchID, req.SupplierID)
	if err != nil {
		return nil, err
	}

	var breakdown *allocator.CanonBreakdown
	switch {
	case req.Canon != nil:
		if !sup.IsRoyaltyBrand {
			return nil, ErrCanonNotRoyaltySupplier
		}
		b, err := allocator.ComputeCanon(req.Canon.VentaTotal, req.Canon.Efectivo)
		if err != nil {
			return nil, err
		}
		breakdown = &b
	case sup.IsRoyaltyBrand && req.Description != "":
		b, err := allocator.ParseCanonAnnotation(req.Description)
		if err != nil {
			s.log.Debug("invoice description has no canon annotation",
				zap.String("invoice_number", req.InvoiceNumber),
				zap.Error(err),
			)
		} else if err := checkMoney(b.VentaTotal, b.Efectivo); err != nil {
			return nil, err
		} else {
			breakdown = &b
		}
	}

	total := req.Total
	if total.IsZero() && breakdown != nil {
		total = breakdown.Royalty()
	}
	if !total.IsPositive() {
		return nil, ErrInvalidInvoiceTotal
	}

	dueAt := pgtype.Date{}
	if !req.DueAt.IsZero() {
		dueAt = pgtype.Date{Time: req.DueAt, Valid: true}
	}

	inv, err := store.CreateSupplierInvoice(ctx, database.CreateSupplierInvoiceParams{
		SupplierID:    sup.ID,
		BranchID:      req.BranchID,
		InvoiceNumber: req.InvoiceNumber,
		IssuedAt:      pgtype.Date{Time: req.IssuedAt, Valid: true},
		DueAt:         dueAt,
		Total:         decimalToNumeric(total),
		Description:   pgText(req.Description),
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		if isUniqueViolation(err, invoiceNumberConstraint) {
			return nil, ErrDuplicateInvoiceNumber
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	if breakdown != nil {
		if _, err := store.CreateInvoiceCanon(ctx, database.CreateInvoiceCanonParams{
			InvoiceID:       inv.ID,
			VentaTotal:      decimalToNumeric(breakdown.VentaTotal),
			Efectivo:        decimalToNumeric(breakdown.Efectivo),
			Canon:           decimalToNumeric(breakdown.Canon),
			Marketing:       decimalToNumeric(breakdown.Marketing),
			CashPortion:     decimalToNumeric(breakdown.CashPortion),
			TransferPortion: decimalToNumeric(breakdown.TransferPortion),
		}); err != nil {
			return nil, fmt.Errorf("create invoice canon: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &InvoiceDetail{Invoice: inv, Canon: breakdown}, nil
}

// GetInvoice returns an invoice of the branch with its canon breakdown.
func (s *SupplierService) GetInvoice(ctx context.Context, branchID, invoiceID uuid.UUID) (*InvoiceDetail, error) {
	store := s.newStore(s.db)
	inv, err := store.GetSupplierInvoice(ctx, database.GetSupplierInvoiceParams{ID: invoiceID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	detail := &InvoiceDetail{Invoice: inv}
	c, err := store.GetInvoiceCanon(ctx, invoiceID)
	switch {
	case err == nil:
		detail.Canon = &allocator.CanonBreakdown{
			VentaTotal:      numericToDecimal(c.VentaTotal),
			Efectivo:        numericToDecimal(c.Efectivo),
			Canon:           numericToDecimal(c.Canon),
			Marketing:       numericToDecimal(c.Marketing),
			CashPortion:     numericToDecimal(c.CashPortion),
			TransferPortion: numericToDecimal(c.TransferPortion),
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get invoice canon: %w", err)
	}
	return detail, nil
}

// PaymentLineRequest is one settlement line of a payment.
type PaymentLineRequest struct {
	Amount decimal.Decimal
	Method string
}

// RegisterPaymentRequest is the validated input for paying an invoice.
type RegisterPaymentRequest struct {
	BranchID  uuid.UUID
	InvoiceID uuid.UUID
	Lines     []PaymentLineRequest
	UseCredit bool
	Notes     string
	PaidBy    uuid.UUID
}

// PaymentDetail is a persisted payment with its lines.
type PaymentDetail struct {
	Payment database.SupplierPayment       `json:"payment"`
	Lines   []database.SupplierPaymentLine `json:"lines"`
}

// PaymentResult is a registered payment with the updated invoice and supplier.
type PaymentResult struct {
	PaymentDetail
	Invoice  database.SupplierInvoice `json:"invoice"`
	Supplier database.Supplier        `json:"supplier"`
}

// RegisterPayment settles an invoice with the given lines, optionally
// offsetting the supplier's credit first. The payment, the invoice balance
// and the supplier credit are written in one transaction. Any overpayment
// becomes supplier credit.
func (s *SupplierService) RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error) {
	if len(req.Lines) == 0 && !req.UseCredit {
		return nil, allocator.ErrEmptyAllocation
	}
	for _, l := range req.Lines {
		if err := checkMoney(l.Amount); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	inv, err := store.GetSupplierInvoiceForUpdate(ctx, database.GetSupplierInvoiceParams{ID: req.InvoiceID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("lock invoice: %w", err)
	}
	sup, err := store.GetSupplierForUpdate(ctx, database.GetSupplierParams{ID: inv.SupplierID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("lock supplier: %w", err)
	}

	saldo := numericToDecimal(inv.SaldoPendiente)
	if !saldo.IsPositive() {
		return nil, ErrInvoiceSettled
	}
	credit := numericToDecimal(sup.CreditBalance)

	alloc, err := allocator.New(saldo, credit)
	if err != nil {
		return nil, err
	}
	if req.UseCredit {
		if _, err := alloc.AddCreditOffset(); err != nil {
			return nil, err
		}
	}
	for _, l := range req.Lines {
		if err := alloc.AddLine(l.Amount, l.Method); err != nil {
			return nil, err
		}
	}
	if err := alloc.Validate(); err != nil {
		return nil, err
	}

	newCredit := alloc.NewCredit()
	payment, err := store.CreateSupplierPayment(ctx, database.CreateSupplierPaymentParams{
		SupplierID:      sup.ID,
		InvoiceID:       inv.ID,
		Total:           decimalToNumeric(alloc.Total()),
		SaldoAnterior:   decimalToNumeric(saldo),
		SaldoResultante: decimalToNumeric(alloc.SaldoResultante()),
		CreditGenerated: decimalToNumeric(newCredit),
		Notes:           pgText(req.Notes),
		PaidBy:          req.PaidBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	lines := make([]database.SupplierPaymentLine, 0, len(alloc.Lines()))
	for _, l := range alloc.Lines() {
		line, err := store.CreateSupplierPaymentLine(ctx, database.CreateSupplierPaymentLineParams{
			PaymentID:      payment.ID,
			Amount:         decimalToNumeric(l.Amount),
			Method:         database.SupplierPaymentMethod(l.Method),
			IsCreditOffset: l.Locked,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment line: %w", err)
		}
		lines = append(lines, line)
	}

	inv, err = store.UpdateInvoiceSaldo(ctx, database.UpdateInvoiceSaldoParams{
		ID:             inv.ID,
		SaldoPendiente: decimalToNumeric(alloc.RemainingSaldo()),
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice saldo: %w", err)
	}

	if creditUsed := alloc.CreditUsed(); creditUsed.IsPositive() || newCredit.IsPositive() {
		sup, err = store.UpdateSupplierCredit(ctx, database.UpdateSupplierCreditParams{
			ID:            sup.ID,
			CreditBalance: decimalToNumeric(credit.Sub(creditUsed).Add(newCredit)),
		})
		if err != nil {
			return nil, fmt.Errorf("update supplier credit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &PaymentResult{
		PaymentDetail: PaymentDetail{Payment: payment, Lines: lines},
		Invoice:       inv,
		Supplier:      sup,
	}
	if newCredit.IsPositive() {
		s.log.Info("supplier overpaid, credit generated",
			zap.String("supplier_id", sup.ID.String()),
			zap.String("invoice_id", inv.ID.String()),
			zap.String("credit", newCredit.StringFixed(2)),
		)
	}
	publish(ctx, s.notifier, s.log, req.BranchID, enum.EventSupplierPaymentMade, result)
	return result, nil
}

// ListPayments returns the payments of an invoice with their lines.
func (s *SupplierService) ListPayments(ctx context.Context, branchID, invoiceID uuid.UUID) ([]PaymentDetail, error) {
	store := s.newStore(s.db)
	if _, err := store.GetSupplierInvoice(ctx, database.GetSupplierInvoiceParams{ID: invoiceID, BranchID: branchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	payments, err := store.ListPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]PaymentDetail, 0, len(payments))
	for _, p := range payments {
		lines, err := store.ListPaymentLinesByPayment(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list payment lines: %w", err)
		}
		out = append(out, PaymentDetail{Payment: p, Lines: lines})
	}
	return out, nil
}

func getSupplier(ctx context.Context, store SupplierStore, branchID, supplierID uuid.UUID) (database.Supplier, error) {
	sup, err := store.GetSupplier(ctx, database.GetSupplierParams{ID: supplierID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Supplier{}, ErrSupplierNotFound
		}
		return database.Supplier{}, fmt.Errorf("get supplier: %w", err)
	}
	return sup, nil
}

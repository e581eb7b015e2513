package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/ledger"
	"github.com/comanda-app/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Errors returned by the shift service.
var (
	ErrRegisterNotFound      = errors.New("register not found")
	ErrShiftNotFound         = errors.New("shift not found")
	ErrShiftAlreadyOpen      = errors.New("register already has an open shift")
	ErrNoOpenShift           = errors.New("register has no open shift")
	ErrShiftClosed           = errors.New("shift is closed")
	ErrInvalidOpeningAmount  = errors.New("opening_amount must be >= 0")
	ErrInvalidCountedAmount  = errors.New("counted_amount must be >= 0")
	ErrInvalidAmount         = errors.New("amount must be > 0")
	ErrInvalidMovementType   = errors.New("invalid movement type")
	ErrInvalidPaymentMethod  = errors.New("invalid payment_method")
	ErrConceptRequired       = errors.New("concept is required")
	ErrAuthorizationRequired = errors.New("supervisor authorization required")
	ErrInvalidTransferKind   = errors.New("invalid transfer kind")
	ErrSameShift             = errors.New("source and destination shifts must differ")
)

const openShiftConstraint = "cash_shifts_one_open_per_register"

// ShiftStore defines the DB methods needed by the shift ledger.
// Satisfied by *database.Queries.
type ShiftStore interface {
	GetRegister(ctx context.Context, arg database.GetRegisterParams) (database.CashRegister, error)
	CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.CashShift, error)
	GetShift(ctx context.Context, arg database.GetShiftParams) (database.CashShift, error)
	GetShiftForUpdate(ctx context.Context, arg database.GetShiftForUpdateParams) (database.CashShift, error)
	GetOpenShiftByRegister(ctx context.Context, arg database.GetOpenShiftByRegisterParams) (database.CashShift, error)
	CloseShift(ctx context.Context, arg database.CloseShiftParams) (database.CashShift, error)
	ListClosedShiftsByBranch(ctx context.Context, arg database.ListClosedShiftsByBranchParams) ([]database.CashShift, error)
	CreateMovement(ctx context.Context, arg database.CreateMovementParams) (database.CashMovement, error)
	ListMovementsByShift(ctx context.Context, shiftID uuid.UUID) ([]database.CashMovement, error)
	CreateTransfer(ctx context.Context, arg database.CreateTransferParams) (database.CashTransfer, error)
}

// NewShiftStore creates a ShiftStore from a DBTX (pool or tx).
type NewShiftStore func(db database.DBTX) ShiftStore

// ShiftService runs the cash register ledger: shifts, movements, transfers
// and closing reconciliation.
type ShiftService struct {
	db        DB
	newStore  NewShiftStore
	auth      Authorizer
	notifier  notify.Notifier
	threshold decimal.Decimal
	log       *zap.Logger
}

// NewShiftService creates a ShiftService. Movements and transfers whose amount
// is at or above threshold need a supervisor.
func NewShiftService(db DB, newStore NewShiftStore, auth Authorizer, notifier notify.Notifier, threshold decimal.Decimal, log *zap.Logger) *ShiftService {
	return &ShiftService{
		db:        db,
		newStore:  newStore,
		auth:      auth,
		notifier:  notifier,
		threshold: threshold,
		log:       log,
	}
}

// OpenShiftRequest is the validated input for opening a shift.
type OpenShiftRequest struct {
	BranchID      uuid.UUID
	RegisterID    uuid.UUID
	OpeningAmount decimal.Decimal
	Actor         Actor
}

// OpenShift starts a shift on a register. The partial unique index on open
// shifts rejects a second open shift even under concurrent requests.
func (s *ShiftService) OpenShift(ctx context.Context, req OpenShiftRequest) (database.CashShift, error) {
	if err := checkMoney(req.OpeningAmount); err != nil {
		return database.CashShift{}, err
	}
	if req.OpeningAmount.IsNegative() {
		return database.CashShift{}, ErrInvalidOpeningAmount
	}

	store := s.newStore(s.db)
	if _, err := store.GetRegister(ctx, database.GetRegisterParams{ID: req.RegisterID, BranchID: req.BranchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CashShift{}, ErrRegisterNotFound
		}
		return database.CashShift{}, fmt.Errorf("get register: %w", err)
	}

	shift, err := store.CreateShift(ctx, database.CreateShiftParams{
		RegisterID:    req.RegisterID,
		BranchID:      req.BranchID,
		OpenedBy:      req.Actor.UserID,
		OpeningAmount: decimalToNumeric(req.OpeningAmount),
	})
	if err != nil {
		if isUniqueViolation(err, openShiftConstraint) {
			return database.CashShift{}, ErrShiftAlreadyOpen
		}
		return database.CashShift{}, fmt.Errorf("create shift: %w", err)
	}

	publish(ctx, s.notifier, s.log, req.BranchID, enum.EventShiftOpened, shift)
	return shift, nil
}

// AddMovementRequest is the validated input for recording a cash movement.
type AddMovementRequest struct {
	BranchID      uuid.UUID
	ShiftID       uuid.UUID
	Type          string
	Amount        decimal.Decimal
	Concept       string
	PaymentMethod string
	SupervisorPIN string
	Actor         Actor
}

// AddMovement appends a movement to an open shift.
func (s *ShiftService) AddMovement(ctx context.Context, req AddMovementRequest) (database.CashMovement, error) {
	if !ledger.IsValidType(req.Type) {
		return database.CashMovement{}, ErrInvalidMovementType
	}
	if err := checkMoney(req.Amount); err != nil {
		return database.CashMovement{}, err
	}
	if !req.Amount.IsPositive() {
		return database.CashMovement{}, ErrInvalidAmount
	}
	if req.Concept == "" {
		return database.CashMovement{}, ErrConceptRequired
	}
	if !isValidPaymentMethod(req.PaymentMethod) {
		return database.CashMovement{}, ErrInvalidPaymentMethod
	}

	authorizedBy, err := s.authorize(ctx, req.BranchID, req.Amount, req.Actor, req.SupervisorPIN)
	if err != nil {
		return database.CashMovement{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.CashMovement{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := lockOpenShift(ctx, store, req.ShiftID, req.BranchID); err != nil {
		return database.CashMovement{}, err
	}

	movement, err := store.CreateMovement(ctx, database.CreateMovementParams{
		ShiftID:       req.ShiftID,
		Type:          database.MovementType(req.Type),
		Amount:        decimalToNumeric(req.Amount),
		Concept:       req.Concept,
		PaymentMethod: database.PaymentMethod(req.PaymentMethod),
		RecordedBy:    req.Actor.UserID,
		AuthorizedBy:  authorizedBy,
	})
	if err != nil {
		return database.CashMovement{}, fmt.Errorf("create movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.CashMovement{}, fmt.Errorf("commit tx: %w", err)
	}

	publish(ctx, s.notifier, s.log, req.BranchID, enum.EventCashMovement, movement)
	return movement, nil
}

// CloseShiftRequest is the validated input for closing a shift.
type CloseShiftRequest struct {
	BranchID      uuid.UUID
	ShiftID       uuid.UUID
	CountedAmount decimal.Decimal
	Notes         string
	Actor         Actor
}

// CloseResult is a closed shift with its reconciliation.
type CloseResult struct {
	Shift          database.CashShift `json:"shift"`
	Expected       decimal.Decimal    `json:"expected"`
	Counted        decimal.Decimal    `json:"counted"`
	Discrepancy    decimal.Decimal    `json:"discrepancy"`
	Classification string             `json:"classification"`
}

// CloseShift reconciles the counted cash against the ledger as of now and
// closes the shift. The stored expected amount and discrepancy are final.
func (s *ShiftService) CloseShift(ctx context.Context, req CloseShiftRequest) (*CloseResult, error) {
	if err := checkMoney(req.CountedAmount); err != nil {
		return nil, err
	}
	if req.CountedAmount.IsNegative() {
		return nil, ErrInvalidCountedAmount
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	shift, err := lockOpenShift(ctx, store, req.ShiftID, req.BranchID)
	if err != nil {
		return nil, err
	}

	movements, err := store.ListMovementsByShift(ctx, shift.ID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	expected, err := ledger.ComputeExpected(numericToDecimal(shift.OpeningAmount), toLedger(movements))
	if err != nil {
		return nil, fmt.Errorf("compute expected: %w", err)
	}
	discrepancy := ledger.Discrepancy(req.CountedAmount, expected)

	closed, err := store.CloseShift(ctx, database.CloseShiftParams{
		ID:             shift.ID,
		BranchID:       req.BranchID,
		ClosedBy:       req.Actor.UserID,
		ClosingAmount:  decimalToNumeric(req.CountedAmount),
		ExpectedAmount: decimalToNumeric(expected),
		Discrepancy:    decimalToNumeric(discrepancy),
		Notes:          pgText(req.Notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftClosed
		}
		return nil, fmt.Errorf("close shift: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &CloseResult{
		Shift:          closed,
		Expected:       expected,
		Counted:        req.CountedAmount,
		Discrepancy:    discrepancy,
		Classification: ledger.Classify(discrepancy, expected),
	}
	if result.Classification == enum.DiscrepancyCritico {
		s.log.Warn("shift closed with critical discrepancy",
			zap.String("shift_id", closed.ID.String()),
			zap.String("expected", expected.StringFixed(2)),
			zap.String("discrepancy", discrepancy.StringFixed(2)),
		)
	}
	publish(ctx, s.notifier, s.log, req.BranchID, enum.EventShiftClosed, result)
	return result, nil
}

// TransferRequest is the validated input for moving cash between tills.
type TransferRequest struct {
	BranchID      uuid.UUID
	SourceShiftID uuid.UUID
	DestShiftID   uuid.UUID
	Kind          string
	Amount        decimal.Decimal
	Concept       string
	SupervisorPIN string
	Actor         Actor
}

// TransferResult is the transfer with its two linked movements.
type TransferResult struct {
	Transfer   database.CashTransfer `json:"transfer"`
	Withdrawal database.CashMovement `json:"withdrawal"`
	Deposit    database.CashMovement `json:"deposit"`
}

// Transfer records a withdrawal on the source shift and a deposit on the
// destination shift in one transaction.
func (s *ShiftService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	kind := database.TransferKind(req.Kind)
	if kind != database.TransferKindAlivio && kind != database.TransferKindRetiro {
		return nil, ErrInvalidTransferKind
	}
	if err := checkMoney(req.Amount); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.SourceShiftID == req.DestShiftID {
		return nil, ErrSameShift
	}
	concept := req.Concept
	if concept == "" {
		concept = transferConcept(kind)
	}

	authorizedBy, err := s.authorize(ctx, req.BranchID, req.Amount, req.Actor, req.SupervisorPIN)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock in a fixed order so two opposite transfers cannot deadlock.
	first, second := req.SourceShiftID, req.DestShiftID
	if first.String() > second.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		if _, err := lockOpenShift(ctx, store, id, req.BranchID); err != nil {
			return nil, err
		}
	}

	transfer, err := store.CreateTransfer(ctx, database.CreateTransferParams{
		BranchID:      req.BranchID,
		Kind:          kind,
		SourceShiftID: req.SourceShiftID,
		DestShiftID:   req.DestShiftID,
		Amount:        decimalToNumeric(req.Amount),
		CreatedBy:     req.Actor.UserID,
		AuthorizedBy:  authorizedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	movement := database.CreateMovementParams{
		Amount:        decimalToNumeric(req.Amount),
		Concept:       concept,
		PaymentMethod: database.PaymentMethodEfectivo,
		RecordedBy:    req.Actor.UserID,
		AuthorizedBy:  authorizedBy,
		TransferID:    pgUUID(transfer.ID),
	}

	movement.ShiftID = req.SourceShiftID
	movement.Type = database.MovementTypeWithdrawal
	withdrawal, err := store.CreateMovement(ctx, movement)
	if err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}

	movement.ShiftID = req.DestShiftID
	movement.Type = database.MovementTypeDeposit
	deposit, err := store.CreateMovement(ctx, movement)
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	publish(ctx, s.notifier, s.log, req.BranchID, enum.EventCashMovement, withdrawal)
	publish(ctx, s.notifier, s.log, req.BranchID, enum.EventCashMovement, deposit)

	return &TransferResult{Transfer: transfer, Withdrawal: withdrawal, Deposit: deposit}, nil
}

// GetShift returns a shift of the branch.
func (s *ShiftService) GetShift(ctx context.Context, branchID, shiftID uuid.UUID) (database.CashShift, error) {
	shift, err := s.newStore(s.db).GetShift(ctx, database.GetShiftParams{ID: shiftID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CashShift{}, ErrShiftNotFound
		}
		return database.CashShift{}, fmt.Errorf("get shift: %w", err)
	}
	return shift, nil
}

// GetOpenShift returns the open shift of a register.
func (s *ShiftService) GetOpenShift(ctx context.Context, branchID, registerID uuid.UUID) (database.CashShift, error) {
	shift, err := s.newStore(s.db).GetOpenShiftByRegister(ctx, database.GetOpenShiftByRegisterParams{
		RegisterID: registerID,
		BranchID:   branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CashShift{}, ErrNoOpenShift
		}
		return database.CashShift{}, fmt.Errorf("get open shift: %w", err)
	}
	return shift, nil
}

// ListMovements returns the movements of a shift in recording order.
func (s *ShiftService) ListMovements(ctx context.Context, branchID, shiftID uuid.UUID) ([]database.CashMovement, error) {
	if _, err := s.GetShift(ctx, branchID, shiftID); err != nil {
		return nil, err
	}
	movements, err := s.newStore(s.db).ListMovementsByShift(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// ShiftSummary is the reconciliation view of a shift. Closed shifts report
// the amounts stored at close time; open shifts report the live ledger.
type ShiftSummary struct {
	Shift          database.CashShift    `json:"shift"`
	Opening        decimal.Decimal       `json:"opening"`
	Expected       decimal.Decimal       `json:"expected"`
	Counted        *decimal.Decimal      `json:"counted,omitempty"`
	Discrepancy    *decimal.Decimal      `json:"discrepancy,omitempty"`
	Classification string                `json:"classification,omitempty"`
	ByMethod       []ledger.MethodTotals `json:"by_method"`
	MovementCount  int                   `json:"movement_count"`
}

func (s *ShiftService) ShiftSummary(ctx context.Context, branchID, shiftID uuid.UUID) (*ShiftSummary, error) {
	shift, err := s.GetShift(ctx, branchID, shiftID)
	if err != nil {
		return nil, err
	}
	movements, err := s.newStore(s.db).ListMovementsByShift(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	entries := toLedger(movements)
	byMethod, err := ledger.SummarizeByMethod(entries)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	summary := &ShiftSummary{
		Shift:         shift,
		Opening:       numericToDecimal(shift.OpeningAmount),
		ByMethod:      byMethod,
		MovementCount: len(movements),
	}
	if shift.Status == database.ShiftStatusClosed {
		counted := numericToDecimal(shift.ClosingAmount)
		discrepancy := numericToDecimal(shift.Discrepancy)
		summary.Expected = numericToDecimal(shift.ExpectedAmount)
		summary.Counted = &counted
		summary.Discrepancy = &discrepancy
		summary.Classification = ledger.Classify(discrepancy, summary.Expected)
		return summary, nil
	}

	summary.Expected, err = ledger.ComputeExpected(summary.Opening, entries)
	if err != nil {
		return nil, fmt.Errorf("compute expected: %w", err)
	}
	return summary, nil
}

// ClosedShiftReport is one row of the discrepancy audit.
type ClosedShiftReport struct {
	database.CashShift
	Classification string `json:"classification"`
}

// ListClosedShifts returns the shifts closed within [from, to) with their
// stored discrepancy classified.
func (s *ShiftService) ListClosedShifts(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]ClosedShiftReport, error) {
	shifts, err := s.newStore(s.db).ListClosedShiftsByBranch(ctx, database.ListClosedShiftsByBranchParams{
		BranchID: branchID,
		From:     pgtype.Timestamptz{Time: from, Valid: true},
		To:       pgtype.Timestamptz{Time: to, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list closed shifts: %w", err)
	}
	out := make([]ClosedShiftReport, 0, len(shifts))
	for _, sh := range shifts {
		out = append(out, ClosedShiftReport{
			CashShift:      sh,
			Classification: ledger.Classify(numericToDecimal(sh.Discrepancy), numericToDecimal(sh.ExpectedAmount)),
		})
	}
	return out, nil
}

// authorize returns the authorizer to record for an amount. Below the
// threshold nobody is recorded; supervisors authorize themselves.
func (s *ShiftService) authorize(ctx context.Context, branchID uuid.UUID, amount decimal.Decimal, actor Actor, pin string) (pgtype.UUID, error) {
	if amount.LessThan(s.threshold) {
		return pgtype.UUID{}, nil
	}
	if enum.IsSupervisor(actor.Role) {
		return pgUUID(actor.UserID), nil
	}
	if pin == "" {
		return pgtype.UUID{}, ErrAuthorizationRequired
	}
	supervisorID, err := s.auth.VerifySupervisorPIN(ctx, branchID, pin)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgUUID(supervisorID), nil
}

func lockOpenShift(ctx context.Context, store ShiftStore, shiftID, branchID uuid.UUID) (database.CashShift, error) {
	shift, err := store.GetShiftForUpdate(ctx, database.GetShiftForUpdateParams{ID: shiftID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CashShift{}, ErrShiftNotFound
		}
		return database.CashShift{}, fmt.Errorf("lock shift: %w", err)
	}
	if shift.Status != database.ShiftStatusOpen {
		return database.CashShift{}, ErrShiftClosed
	}
	return shift, nil
}

func toLedger(movements []database.CashMovement) []ledger.Movement {
	out := make([]ledger.Movement, len(movements))
	for i, m := range movements {
		out[i] = ledger.Movement{
			Type:   string(m.Type),
			Amount: numericToDecimal(m.Amount),
			Method: string(m.PaymentMethod),
		}
	}
	return out
}

func transferConcept(kind database.TransferKind) string {
	if kind == database.TransferKindRetiro {
		return "Retiro"
	}
	return "Alivio"
}

func isValidPaymentMethod(m string) bool {
	switch database.PaymentMethod(m) {
	case database.PaymentMethodEfectivo, database.PaymentMethodDebito, database.PaymentMethodCredito,
		database.PaymentMethodTransferencia, database.PaymentMethodMercadopago:
		return true
	}
	return false
}

// isUniqueViolation reports whether err is a 23505 on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

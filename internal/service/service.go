package service

import (
	"context"
	"errors"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is what services need from the pool: transactions for writes and plain
// queries for reads. Satisfied by *pgxpool.Pool.
type DB interface {
	TxBeginner
	database.DBTX
}

// ErrInvalidMoney rejects amounts a NUMERIC(14,2) column would round or overflow.
var ErrInvalidMoney = errors.New("amounts allow at most 2 decimals and 12 integer digits")

// maxMoney is the first magnitude NUMERIC(14,2) cannot hold.
var maxMoney = decimal.New(1, 12)

// checkMoney makes sure every amount is stored exactly as given, so the
// checks run on it hold for the persisted value too.
func checkMoney(amounts ...decimal.Decimal) error {
	for _, d := range amounts {
		if !d.Equal(d.Round(2)) || d.Abs().GreaterThanOrEqual(maxMoney) {
			return ErrInvalidMoney
		}
	}
	return nil
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// publish sends an event after a committed write. Delivery failures are
// logged and never fail the operation that produced the event.
func publish(ctx context.Context, n notify.Notifier, log *zap.Logger, branchID uuid.UUID, eventType string, payload any) {
	ev, err := notify.NewEvent(eventType, payload)
	if err != nil {
		log.Error("build event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := n.Publish(ctx, branchID, ev); err != nil {
		log.Warn("publish event",
			zap.String("type", eventType),
			zap.String("branch_id", branchID.String()),
			zap.Error(err),
		)
	}
}

// Package ledger holds the cash-register arithmetic: expected cash from an
// opening amount and signed movements, closing discrepancy and its
// classification. Everything here is pure; persistence lives in the service
// layer.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/comanda-app/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Movement types.
const (
	TypeIncome     = "income"
	TypeExpense    = "expense"
	TypeWithdrawal = "withdrawal"
	TypeDeposit    = "deposit"
)

var ErrUnknownMovementType = errors.New("unknown movement type")

var (
	normalLimit      = decimal.NewFromFloat(0.01)
	advertenciaLimit = decimal.NewFromFloat(0.05)
)

// Movement is the part of a cash movement the ledger needs.
type Movement struct {
	Type   string
	Amount decimal.Decimal
	Method string
}

// IsValidType reports whether t is a known movement type.
func IsValidType(t string) bool {
	switch t {
	case TypeIncome, TypeExpense, TypeWithdrawal, TypeDeposit:
		return true
	}
	return false
}

// Signed returns amount with the sign its type contributes to the drawer:
// income and deposit add, expense and withdrawal subtract.
func Signed(movementType string, amount decimal.Decimal) (decimal.Decimal, error) {
	switch movementType {
	case TypeIncome, TypeDeposit:
		return amount, nil
	case TypeExpense, TypeWithdrawal:
		return amount.Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownMovementType, movementType)
}

// ComputeExpected returns opening plus the signed sum of movements.
func ComputeExpected(opening decimal.Decimal, movements []Movement) (decimal.Decimal, error) {
	expected := opening
	for i, m := range movements {
		s, err := Signed(m.Type, m.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("movement[%d]: %w", i, err)
		}
		expected = expected.Add(s)
	}
	return expected, nil
}

// Discrepancy is counted minus expected. Negative means cash is missing.
func Discrepancy(counted, expected decimal.Decimal) decimal.Decimal {
	return counted.Sub(expected)
}

// Classify grades a discrepancy relative to the expected amount:
// up to 1% is normal, up to 5% advertencia, above that critico.
// With nothing expected, any difference is critico.
func Classify(discrepancy, expected decimal.Decimal) string {
	if discrepancy.IsZero() {
		return enum.DiscrepancyNormal
	}
	if expected.IsZero() {
		return enum.DiscrepancyCritico
	}
	ratio := discrepancy.Abs().Div(expected.Abs())
	switch {
	case ratio.LessThanOrEqual(normalLimit):
		return enum.DiscrepancyNormal
	case ratio.LessThanOrEqual(advertenciaLimit):
		return enum.DiscrepancyAdvertencia
	default:
		return enum.DiscrepancyCritico
	}
}

// MethodTotals aggregates movements of one payment method.
type MethodTotals struct {
	Method  string          `json:"method"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

// SummarizeByMethod groups movements per payment method, sorted by method.
func SummarizeByMethod(movements []Movement) ([]MethodTotals, error) {
	byMethod := make(map[string]*MethodTotals)
	for i, m := range movements {
		s, err := Signed(m.Type, m.Amount)
		if err != nil {
			return nil, fmt.Errorf("movement[%d]: %w", i, err)
		}
		t, ok := byMethod[m.Method]
		if !ok {
			t = &MethodTotals{Method: m.Method}
			byMethod[m.Method] = t
		}
		if s.IsNegative() {
			t.Outflow = t.Outflow.Add(m.Amount)
		} else {
			t.Inflow = t.Inflow.Add(m.Amount)
		}
		t.Net = t.Net.Add(s)
		t.Count++
	}

	out := make([]MethodTotals, 0, len(byMethod))
	for _, t := range byMethod {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out, nil
}

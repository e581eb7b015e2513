// Package allocator splits a supplier payment across settlement lines against
// an invoice balance, and computes the royalty (canon) breakdown of
// franchise invoices.
package allocator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Settlement methods.
const (
	MethodEfectivo      = "efectivo"
	MethodTransferencia = "transferencia"
	MethodCheque        = "cheque"

	// MethodSaldoAFavor marks the credit-offset line. It cannot be added
	// through AddLine.
	MethodSaldoAFavor = "saldo_a_favor"
)

var (
	ErrNegativeBalance     = errors.New("balance must be >= 0")
	ErrInvalidAmount       = errors.New("amount must be > 0")
	ErrInvalidMethod       = errors.New("invalid payment method")
	ErrCreditOffsetPresent = errors.New("credit offset already added")
	ErrNoCreditAvailable   = errors.New("no credit available to offset")
	ErrNothingToOffset     = errors.New("invoice has no pending balance")
	ErrNoCreditOffset      = errors.New("no credit offset line")
	ErrLineLocked          = errors.New("credit offset line can only be removed as a whole")
	ErrLineIndex           = errors.New("line index out of range")
	ErrEmptyAllocation     = errors.New("at least one payment line is required")
)

// Line is one settlement line of a payment.
type Line struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	// Locked is set on the credit-offset line.
	Locked bool `json:"locked"`
}

// Allocation is a payment being built against one invoice.
type Allocation struct {
	saldoPendiente  decimal.Decimal
	creditAvailable decimal.Decimal
	lines           []Line
}

// New starts an allocation against an invoice balance with the supplier's
// available credit.
func New(saldoPendiente, creditAvailable decimal.Decimal) (*Allocation, error) {
	if saldoPendiente.IsNegative() || creditAvailable.IsNegative() {
		return nil, ErrNegativeBalance
	}
	return &Allocation{saldoPendiente: saldoPendiente, creditAvailable: creditAvailable}, nil
}

func IsValidMethod(method string) bool {
	switch method {
	case MethodEfectivo, MethodTransferencia, MethodCheque:
		return true
	}
	return false
}

func (a *Allocation) SaldoPendiente() decimal.Decimal  { return a.saldoPendiente }
func (a *Allocation) CreditAvailable() decimal.Decimal { return a.creditAvailable }

// Lines returns a copy of the current lines.
func (a *Allocation) Lines() []Line {
	return append([]Line(nil), a.lines...)
}

// AddLine appends an editable settlement line.
func (a *Allocation) AddLine(amount decimal.Decimal, method string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !IsValidMethod(method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	a.lines = append(a.lines, Line{Amount: amount, Method: method})
	return nil
}

// AddCreditOffset consumes min(credit, saldo pendiente) of the supplier's
// credit as a locked line. It returns the amount offset.
func (a *Allocation) AddCreditOffset() (decimal.Decimal, error) {
	if a.offsetIndex() >= 0 {
		return decimal.Zero, ErrCreditOffsetPresent
	}
	if !a.creditAvailable.IsPositive() {
		return decimal.Zero, ErrNoCreditAvailable
	}
	if !a.saldoPendiente.IsPositive() {
		return decimal.Zero, ErrNothingToOffset
	}
	amount := decimal.Min(a.creditAvailable, a.saldoPendiente)
	a.lines = append(a.lines, Line{Amount: amount, Method: MethodSaldoAFavor, Locked: true})
	return amount, nil
}

// RemoveLine removes the editable line at i.
func (a *Allocation) RemoveLine(i int) error {
	if i < 0 || i >= len(a.lines) {
		return ErrLineIndex
	}
	if a.lines[i].Locked {
		return ErrLineLocked
	}
	a.lines = append(a.lines[:i], a.lines[i+1:]...)
	return nil
}

// RemoveCreditOffset drops the credit-offset line.
func (a *Allocation) RemoveCreditOffset() error {
	i := a.offsetIndex()
	if i < 0 {
		return ErrNoCreditOffset
	}
	a.lines = append(a.lines[:i], a.lines[i+1:]...)
	return nil
}

func (a *Allocation) offsetIndex() int {
	for i, l := range a.lines {
		if l.Locked {
			return i
		}
	}
	return -1
}

// Total is the sum of every line, credit offset included.
func (a *Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.lines {
		total = total.Add(l.Amount)
	}
	return total
}

// CreditUsed is the amount of the credit-offset line, zero if absent.
func (a *Allocation) CreditUsed() decimal.Decimal {
	if i := a.offsetIndex(); i >= 0 {
		return a.lines[i].Amount
	}
	return decimal.Zero
}

// SaldoResultante is saldo pendiente minus all lines. Negative on overpayment.
func (a *Allocation) SaldoResultante() decimal.Decimal {
	return a.saldoPendiente.Sub(a.Total())
}

// NewCredit is the overpayment that becomes supplier credit, shown as a
// positive amount.
func (a *Allocation) NewCredit() decimal.Decimal {
	r := a.SaldoResultante()
	if r.IsNegative() {
		return r.Neg()
	}
	return decimal.Zero
}

// RemainingSaldo is what the invoice owes after the payment.
func (a *Allocation) RemainingSaldo() decimal.Decimal {
	r := a.SaldoResultante()
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Validate checks the allocation can be persisted.
func (a *Allocation) Validate() error {
	if len(a.lines) == 0 {
		return ErrEmptyAllocation
	}
	return nil
}

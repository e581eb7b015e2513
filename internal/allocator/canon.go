package allocator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	CanonRate     = decimal.RequireFromString("0.045")
	MarketingRate = decimal.RequireFromString("0.005")
	// CashShareRate is the share of cash sales the royalty brand collects in
	// cash. The remainder of canon plus marketing is paid by transfer.
	CashShareRate = decimal.RequireFromString("0.05")
)

var (
	ErrInvalidVentaTotal = errors.New("venta total must be > 0")
	ErrInvalidEfectivo   = errors.New("efectivo must be between 0 and venta total")
	ErrNoVentaTotal      = errors.New("annotation has no VT amount")
	ErrInvalidNumber     = errors.New("invalid amount")
)

// CanonBreakdown is the structured royalty split attached to an invoice of a
// royalty-brand supplier.
type CanonBreakdown struct {
	VentaTotal      decimal.Decimal `json:"venta_total"`
	Efectivo        decimal.Decimal `json:"efectivo"`
	Canon           decimal.Decimal `json:"canon"`
	Marketing       decimal.Decimal `json:"marketing"`
	CashPortion     decimal.Decimal `json:"cash_portion"`
	TransferPortion decimal.Decimal `json:"transfer_portion"`
}

// Royalty is canon plus marketing.
func (c CanonBreakdown) Royalty() decimal.Decimal {
	return c.Canon.Add(c.Marketing)
}

// ComputeCanon derives the breakdown from the period's total sales and the
// part of it collected in cash.
func ComputeCanon(ventaTotal, efectivo decimal.Decimal) (CanonBreakdown, error) {
	if !ventaTotal.IsPositive() {
		return CanonBreakdown{}, ErrInvalidVentaTotal
	}
	if efectivo.IsNegative() || efectivo.GreaterThan(ventaTotal) {
		return CanonBreakdown{}, ErrInvalidEfectivo
	}
	canon := ventaTotal.Mul(CanonRate).Round(2)
	mktg := ventaTotal.Mul(MarketingRate).Round(2)
	return split(ventaTotal, efectivo, canon, mktg), nil
}

func split(ventaTotal, efectivo, canon, mktg decimal.Decimal) CanonBreakdown {
	royalty := canon.Add(mktg)
	cash := decimal.Min(efectivo.Mul(CashShareRate).Round(2), royalty)
	return CanonBreakdown{
		VentaTotal:      ventaTotal,
		Efectivo:        efectivo,
		Canon:           canon,
		Marketing:       mktg,
		CashPortion:     cash,
		TransferPortion: royalty.Sub(cash),
	}
}

var (
	vtPattern    = regexp.MustCompile(`(?i)\bVT\s*:\s*\$\s*([\d.,]+)`)
	efPattern    = regexp.MustCompile(`(?i)\bEf\s*:\s*\$\s*([\d.,]+)`)
	canonPattern = regexp.MustCompile(`(?i)\bCanon\s*4,5\s*%\s*:\s*\$\s*([\d.,]+)`)
	mktgPattern  = regexp.MustCompile(`(?i)\bMktg\s*0,5\s*%\s*:\s*\$\s*([\d.,]+)`)
)

// ParseCanonAnnotation reads a legacy free-text invoice note such as
//
//	VT: $1.250.000,00 Ef: $400.000 Canon 4,5%: $56.250 Mktg 0,5%: $6.250
//
// Amounts use the Argentine format. Missing canon or marketing values are
// recomputed from VT; a missing Ef counts as no cash sales.
func ParseCanonAnnotation(text string) (CanonBreakdown, error) {
	vt, ok, err := findAmount(vtPattern, text)
	if err != nil {
		return CanonBreakdown{}, fmt.Errorf("VT: %w", err)
	}
	if !ok {
		return CanonBreakdown{}, ErrNoVentaTotal
	}
	if !vt.IsPositive() {
		return CanonBreakdown{}, ErrInvalidVentaTotal
	}

	ef, _, err := findAmount(efPattern, text)
	if err != nil {
		return CanonBreakdown{}, fmt.Errorf("Ef: %w", err)
	}
	if ef.GreaterThan(vt) {
		return CanonBreakdown{}, ErrInvalidEfectivo
	}

	canon, ok, err := findAmount(canonPattern, text)
	if err != nil {
		return CanonBreakdown{}, fmt.Errorf("canon: %w", err)
	}
	if !ok {
		canon = vt.Mul(CanonRate).Round(2)
	}

	mktg, ok, err := findAmount(mktgPattern, text)
	if err != nil {
		return CanonBreakdown{}, fmt.Errorf("mktg: %w", err)
	}
	if !ok {
		mktg = vt.Mul(MarketingRate).Round(2)
	}

	return split(vt, ef, canon, mktg), nil
}

func findAmount(re *regexp.Regexp, text string) (decimal.Decimal, bool, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false, nil
	}
	d, err := ParseARS(m[1])
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// ParseARS parses an Argentine-formatted amount: "." groups thousands and ","
// separates decimals ("1.234.567,89"). A trailing separator is ignored.
func ParseARS(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return decimal.Zero, ErrInvalidNumber
	}
	s = strings.ReplaceAll(s, ".", "")
	if strings.Count(s, ",") > 1 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return d, nil
}

/*
Package credit provides the core domain model for amortized credit accounts.

PURPOSE:
  This package contains the types and math shared by the whole system:
  money values, credits, installment schedules, and the append-only
  collection ledger. Balances are never stored - they are always derived
  by netting collections against the schedule (see the engine package).

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A 6-decimal monetary quantity backed by decimal.Decimal
  - Amounts: The four money fields every row carries (Capital/Interest/Tax/Total)
  - Credit: An amortized loan (French, German, or Penalty method)
  - Installment: One scheduled payment of a Credit (immutable once created)
  - Collection: An append-only ledger entry applied against an Installment
  - TypeCatalog: Collection tag -> stable numeric code mapping

DESIGN PRINCIPLES:
  1. Immutability: Installments and Collections are never modified
  2. Precision: decimal.Decimal everywhere, rounded to 6 decimals
  3. Net-of-tax interest: Interest is stored net of 21% VAT; Tax is the VAT
  4. Derived balances: remaining amounts are computed, never persisted

SEE ALSO:
  - schedule.go: Per-installment schedule math and idempotent generation
  - store.go: Persistence contract (read + append only)
  - engine package: Allocation, waterfall, and balance computation
*/
package credit

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - 6-decimal monetary quantity
// =============================================================================

// MoneyScale is the number of decimal places every derived money value is
// rounded to. Keeping it fixed prevents floating drift from accumulating
// across repeated netting operations.
const MoneyScale = 6

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money          { return Money{Value: decimal.NewFromFloat(value)} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }
func ZeroMoney() Money                      { return Money{Value: decimal.Zero} }

// MustParseMoney parses a decimal string, returning zero on malformed input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money   { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                    { return Money{Value: m.Value.Abs()} }
func (m Money) Round() Money                  { return Money{Value: m.Value.Round(MoneyScale)} }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) }
func (m Money) LessThan(o Money) bool         { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThanOrEqual(o Money) bool  { return m.Value.LessThanOrEqual(o.Value) }
func (m Money) Float64() float64              { f, _ := m.Value.Float64(); return f }
func (m Money) String() string                { return m.Value.String() }

var (
	// VATRate is the value-added tax applied on interest.
	VATRate = decimal.RequireFromString("0.21")

	// VATFactor converts between gross (tax-inclusive) and net interest.
	VATFactor = decimal.RequireFromString("1.21")
)

// SplitGross decomposes a gross (tax-inclusive) amount into net interest and
// VAT. The parts always sum exactly to the input: interest is rounded and tax
// absorbs the residual.
func SplitGross(gross Money) (interest, tax Money) {
	interest = gross.Div(VATFactor).Round()
	tax = gross.Sub(interest)
	return interest, tax
}

// =============================================================================
// AMOUNTS - The four money fields every schedule/ledger row carries
// =============================================================================

type Amounts struct {
	Capital  Money
	Interest Money
	Tax      Money
	Total    Money
}

func (a Amounts) Add(o Amounts) Amounts {
	return Amounts{
		Capital:  a.Capital.Add(o.Capital),
		Interest: a.Interest.Add(o.Interest),
		Tax:      a.Tax.Add(o.Tax),
		Total:    a.Total.Add(o.Total),
	}
}

func (a Amounts) Sub(o Amounts) Amounts {
	return Amounts{
		Capital:  a.Capital.Sub(o.Capital),
		Interest: a.Interest.Sub(o.Interest),
		Tax:      a.Tax.Sub(o.Tax),
		Total:    a.Total.Sub(o.Total),
	}
}

// Round rounds every field to the fixed money scale.
func (a Amounts) Round() Amounts {
	return Amounts{
		Capital:  a.Capital.Round(),
		Interest: a.Interest.Round(),
		Tax:      a.Tax.Round(),
		Total:    a.Total.Round(),
	}
}

func (a Amounts) IsZero() bool {
	return a.Capital.IsZero() && a.Interest.IsZero() && a.Tax.IsZero() && a.Total.IsZero()
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	CreditID      int64
	InstallmentID int64
	CollectionID  int64
	ClientID      int64
	OrganismID    int64
)

// =============================================================================
// AMORTIZATION METHOD - Closed variant set, exhaustively matched
// =============================================================================

type AmortizationMethod string

const (
	// MethodFrench: fixed periodic payment solving the annuity formula.
	MethodFrench AmortizationMethod = "FRENCH"

	// MethodGerman: constant principal, declining interest.
	MethodGerman AmortizationMethod = "GERMAN"

	// MethodPenalty: single zero-principal charge (interest + VAT only),
	// synthesized to absorb unattributable payment surplus.
	MethodPenalty AmortizationMethod = "PENALTY"
)

func (m AmortizationMethod) Valid() bool {
	switch m {
	case MethodFrench, MethodGerman, MethodPenalty:
		return true
	}
	return false
}

// =============================================================================
// COLLECTION TYPES - Ledger entry tags and their numeric catalog
// =============================================================================

type CollectionType string

const (
	CollectionOrdinary CollectionType = "ORDINARY" // natural due-date order, no forgiveness
	CollectionAdvance  CollectionType = "ADVANCE"  // prepayment; future interest/tax forgiven
	CollectionPenalty  CollectionType = "PENALTY"  // settles a synthesized penalty installment
	CollectionBonus    CollectionType = "BONUS"    // recognizes forgiven interest/tax
	CollectionRounding CollectionType = "ROUNDING" // clears near-zero residual balances
)

// TypeCatalog maps a collection tag to its stable numeric code. It is an
// explicit configuration value passed into the engine and stores at
// construction so tests can inject fixtures.
type TypeCatalog map[CollectionType]int

// DefaultTypeCatalog returns the canonical catalog codes.
func DefaultTypeCatalog() TypeCatalog {
	return TypeCatalog{
		CollectionOrdinary: 1,
		CollectionAdvance:  2,
		CollectionPenalty:  3,
		CollectionBonus:    4,
		CollectionRounding: 5,
	}
}

// Code resolves a tag to its numeric code.
func (tc TypeCatalog) Code(t CollectionType) (int, error) {
	code, ok := tc[t]
	if !ok {
		return 0, &UnknownCollectionTypeError{Type: t}
	}
	return code, nil
}

func (tc TypeCatalog) Known(t CollectionType) bool {
	_, ok := tc[t]
	return ok
}

// =============================================================================
// CREDIT - An amortized loan, immutable once disbursed
// =============================================================================

type Credit struct {
	ID               CreditID
	ClientID         ClientID
	OrganismID       OrganismID
	Method           AmortizationMethod
	RequestedCapital Money
	DisbursedCapital Money

	// AnnualRate is the nominal annual rate, tax inclusive.
	AnnualRate decimal.Decimal

	// Term is the installment count.
	Term int

	DisbursementDate Date
	FirstDueDate     Date
}

// =============================================================================
// INSTALLMENT - One scheduled payment; never mutated after creation
// =============================================================================

type Installment struct {
	ID       InstallmentID
	CreditID CreditID

	// Number is the 1-based sequence within the credit's schedule.
	Number int

	DueDate Date
	Amounts
}

// =============================================================================
// COLLECTION - Append-only ledger entry against one installment
// =============================================================================

type Collection struct {
	ID            CollectionID
	InstallmentID InstallmentID
	Date          Date
	Type          CollectionType
	Amounts
}

// =============================================================================
// BALANCE SNAPSHOT ROW - Derived, never persisted
// =============================================================================

// InstallmentBalance is one row of a balance snapshot: the scheduled amounts
// of an installment minus everything collected against it up to a cutoff
// date, rounded to the money scale.
type InstallmentBalance struct {
	InstallmentID InstallmentID
	CreditID      CreditID
	Number        int
	DueDate       Date
	Amounts
}

/*
schedule.go - Installment schedule generation

PURPOSE:
  Computes per-installment Capital/Interest/Tax/Total and due dates for the
  three amortization methods, and generates installment rows idempotently
  against the Store.

METHODS:
  French:  fixed periodic payment from the annuity formula on the
           tax-inclusive nominal rate. The raw interest component is divided
           by 1.21 to store interest net of VAT; Tax absorbs the remainder
           so Total always equals Capital + Interest + Tax exactly.
  German:  constant principal (capital / term); interest on the outstanding
           principal at period start, net of VAT; Tax = Interest * 0.21.
  Penalty: zero principal; the whole amount decomposes into net interest
           plus VAT.

PERIODIC RATE:
  annual rate / 365 * 30. The due date convention is day 28 of the month
  i-1 periods after the first due month, which sidesteps month-length
  edge cases.

IDEMPOTENCE:
  EnsureInstallment returns the stored row unchanged when one already
  exists for the (credit, number) pair and never creates a duplicate.
  Finding more than one stored row is a fatal data-inconsistency error.
*/
package credit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one         = decimal.NewFromInt(1)
	daysInYear  = decimal.NewFromInt(365)
	daysInMonth = decimal.NewFromInt(30)
)

// PeriodicRate converts the tax-inclusive nominal annual rate into the
// per-installment rate.
func PeriodicRate(annual decimal.Decimal) decimal.Decimal {
	return annual.Div(daysInYear).Mul(daysInMonth)
}

// ScheduleAmounts computes the money fields of the i-th installment
// (1-based) for a credit's amortization method.
func ScheduleAmounts(c Credit, i int) (Amounts, error) {
	switch c.Method {
	case MethodFrench:
		return frenchAmounts(c, i), nil
	case MethodGerman:
		return germanAmounts(c, i), nil
	case MethodPenalty:
		return penaltyAmounts(c), nil
	default:
		return Amounts{}, &UnknownMethodError{CreditID: c.ID, Method: c.Method}
	}
}

func frenchAmounts(c Credit, i int) Amounts {
	principal := c.DisbursedCapital.Value
	term := decimal.NewFromInt(int64(c.Term))
	r := PeriodicRate(c.AnnualRate)

	if r.IsZero() {
		capital := MoneyFromDecimal(principal.Div(term)).Round()
		return Amounts{Capital: capital, Interest: ZeroMoney(), Tax: ZeroMoney(), Total: capital}
	}

	// Fixed payment: principal * r * (1+r)^n / ((1+r)^n - 1)
	growth := one.Add(r).Pow(term)
	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(one))

	// Outstanding principal at the start of period i.
	grown := one.Add(r).Pow(decimal.NewFromInt(int64(i - 1)))
	outstanding := principal.Mul(grown).Sub(payment.Mul(grown.Sub(one)).Div(r))
	grossInterest := outstanding.Mul(r)

	total := MoneyFromDecimal(payment).Round()
	capital := MoneyFromDecimal(payment.Sub(grossInterest)).Round()
	interest := MoneyFromDecimal(grossInterest.Div(VATFactor)).Round()
	tax := total.Sub(capital).Sub(interest)

	return Amounts{Capital: capital, Interest: interest, Tax: tax, Total: total}
}

func germanAmounts(c Credit, i int) Amounts {
	principal := c.DisbursedCapital.Value
	term := decimal.NewFromInt(int64(c.Term))
	r := PeriodicRate(c.AnnualRate)

	rawCapital := principal.Div(term)
	repaid := rawCapital.Mul(decimal.NewFromInt(int64(i - 1)))
	rawInterest := principal.Sub(repaid).Mul(r).Div(VATFactor)

	capital := MoneyFromDecimal(rawCapital).Round()
	interest := MoneyFromDecimal(rawInterest).Round()
	tax := MoneyFromDecimal(rawInterest.Mul(VATRate)).Round()
	total := capital.Add(interest).Add(tax).Round()

	return Amounts{Capital: capital, Interest: interest, Tax: tax, Total: total}
}

func penaltyAmounts(c Credit) Amounts {
	amount := c.DisbursedCapital.Round()
	interest, tax := SplitGross(amount)
	return Amounts{Capital: ZeroMoney(), Interest: interest, Tax: tax, Total: amount}
}

// InstallmentFor builds the full i-th installment row (without a stored ID).
func InstallmentFor(c Credit, i int) (Installment, error) {
	if i < 1 || i > c.Term {
		return Installment{}, fmt.Errorf("installment %d out of range for credit %d (term %d)", i, c.ID, c.Term)
	}
	amounts, err := ScheduleAmounts(c, i)
	if err != nil {
		return Installment{}, err
	}
	return Installment{
		CreditID: c.ID,
		Number:   i,
		DueDate:  DueDateFor(c.FirstDueDate, i),
		Amounts:  amounts,
	}, nil
}

// NewPenaltyCredit builds a one-installment penalty credit absorbing a
// payment surplus, owned by the same client/organism as the source credit.
func NewPenaltyCredit(src Credit, amount Money, date Date) Credit {
	return Credit{
		ClientID:         src.ClientID,
		OrganismID:       src.OrganismID,
		Method:           MethodPenalty,
		RequestedCapital: ZeroMoney(),
		DisbursedCapital: amount,
		AnnualRate:       decimal.Zero,
		Term:             1,
		DisbursementDate: date,
		FirstDueDate:     date,
	}
}

// =============================================================================
// GENERATOR - Idempotent schedule generation against the Store
// =============================================================================

type Generator struct {
	Store Store
}

func NewGenerator(store Store) *Generator {
	return &Generator{Store: store}
}

// EnsureInstallment returns the stored installment for (credit, number),
// creating it only when absent. Safe to call repeatedly.
func (g *Generator) EnsureInstallment(ctx context.Context, creditID CreditID, i int) (Installment, error) {
	c, err := g.Store.Credit(ctx, creditID)
	if err != nil {
		return Installment{}, err
	}

	want, err := InstallmentFor(c, i)
	if err != nil {
		return Installment{}, err
	}

	existing, err := g.Store.InstallmentsByCredit(ctx, creditID)
	if err != nil {
		return Installment{}, err
	}
	var matches []Installment
	for _, inst := range existing {
		if inst.Number == i {
			matches = append(matches, inst)
		}
	}

	switch len(matches) {
	case 0:
		return g.Store.AppendInstallment(ctx, want)
	case 1:
		return matches[0], nil
	default:
		return Installment{}, &DuplicateInstallmentError{CreditID: creditID, Number: i, Count: len(matches)}
	}
}

// EnsureSchedule generates the credit's full schedule idempotently and
// returns all rows in sequence order.
func (g *Generator) EnsureSchedule(ctx context.Context, creditID CreditID) ([]Installment, error) {
	c, err := g.Store.Credit(ctx, creditID)
	if err != nil {
		return nil, err
	}

	schedule := make([]Installment, 0, c.Term)
	for i := 1; i <= c.Term; i++ {
		inst, err := g.EnsureInstallment(ctx, creditID, i)
		if err != nil {
			return nil, err
		}
		schedule = append(schedule, inst)
	}
	return schedule, nil
}

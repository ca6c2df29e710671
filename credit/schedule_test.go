package credit_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMCarini/Credit-Manager/credit"
	"github.com/JuanMCarini/Credit-Manager/credit/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func frenchCredit() credit.Credit {
	return credit.Credit{
		ID:               1,
		ClientID:         10,
		OrganismID:       3,
		Method:           credit.MethodFrench,
		RequestedCapital: credit.NewMoney(95000),
		DisbursedCapital: credit.NewMoney(95000),
		AnnualRate:       decimal.NewFromFloat(1.3),
		Term:             12,
		DisbursementDate: credit.NewDate(2025, 12, 11),
		FirstDueDate:     credit.NewDate(2026, 1, 28),
	}
}

func germanCredit() credit.Credit {
	c := frenchCredit()
	c.ID = 2
	c.Method = credit.MethodGerman
	return c
}

func schedule(t *testing.T, c credit.Credit) []credit.Amounts {
	t.Helper()
	rows := make([]credit.Amounts, 0, c.Term)
	for i := 1; i <= c.Term; i++ {
		a, err := credit.ScheduleAmounts(c, i)
		require.NoError(t, err)
		rows = append(rows, a)
	}
	return rows
}

// =============================================================================
// FRENCH METHOD
// =============================================================================

func TestFrenchSchedule_CapitalSumsToPrincipal(t *testing.T) {
	// GIVEN: A French credit of 95000 over 12 periods
	// WHEN: Generating the full schedule
	// THEN: Capital components sum back to the disbursed principal

	c := frenchCredit()
	rows := schedule(t, c)

	sum := credit.ZeroMoney()
	for _, a := range rows {
		sum = sum.Add(a.Capital)
	}
	assert.InDelta(t, 95000, sum.Float64(), 0.001,
		"capital components should amortize the full principal")
}

func TestFrenchSchedule_ConstantPayment(t *testing.T) {
	// GIVEN: A French credit
	// WHEN: Generating the schedule
	// THEN: Every installment total equals the fixed annuity payment

	rows := schedule(t, frenchCredit())
	for i, a := range rows[1:] {
		assert.True(t, a.Total.Equal(rows[0].Total),
			"installment %d total %s != first total %s", i+2, a.Total, rows[0].Total)
	}
}

func TestFrenchSchedule_TotalInvariant(t *testing.T) {
	// GIVEN: A French credit
	// WHEN: Generating the schedule
	// THEN: Total == Capital + Interest + Tax exactly, per installment

	rows := schedule(t, frenchCredit())
	for i, a := range rows {
		sum := a.Capital.Add(a.Interest).Add(a.Tax)
		assert.True(t, a.Total.Equal(sum),
			"installment %d: total %s != C+I+T %s", i+1, a.Total, sum)
	}
}

func TestFrenchSchedule_InterestDecreasesCapitalIncreases(t *testing.T) {
	rows := schedule(t, frenchCredit())
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].Interest.LessThan(rows[i-1].Interest),
			"interest should decline period over period")
		assert.True(t, rows[i-1].Capital.LessThan(rows[i].Capital),
			"capital should grow period over period")
	}
}

func TestFrenchSchedule_ZeroRate(t *testing.T) {
	// GIVEN: A zero-rate French credit
	// WHEN: Generating an installment
	// THEN: Pure principal split, no interest or tax

	c := frenchCredit()
	c.AnnualRate = decimal.Zero

	a, err := credit.ScheduleAmounts(c, 5)
	require.NoError(t, err)
	assert.InDelta(t, 95000.0/12, a.Capital.Float64(), 0.001)
	assert.True(t, a.Interest.IsZero())
	assert.True(t, a.Tax.IsZero())
	assert.True(t, a.Total.Equal(a.Capital))
}

// =============================================================================
// GERMAN METHOD
// =============================================================================

func TestGermanSchedule_ConstantCapital(t *testing.T) {
	// GIVEN: A German credit of 95000 over 12 periods
	// WHEN: Generating the schedule
	// THEN: Capital is principal/term in every installment

	rows := schedule(t, germanCredit())
	for i, a := range rows {
		assert.InDelta(t, 95000.0/12, a.Capital.Float64(), 0.001,
			"installment %d capital", i+1)
	}
}

func TestGermanSchedule_InterestDeclinesWithOutstanding(t *testing.T) {
	rows := schedule(t, germanCredit())
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].Interest.LessThan(rows[i-1].Interest),
			"interest should decline as principal is repaid")
	}

	// First period interest is the full principal at the periodic rate,
	// net of VAT.
	r := credit.PeriodicRate(decimal.NewFromFloat(1.3))
	wantGross, _ := decimal.NewFromInt(95000).Mul(r).Float64()
	assert.InDelta(t, wantGross/1.21, rows[0].Interest.Float64(), 0.001)
}

func TestGermanSchedule_TaxIsVATOnInterest(t *testing.T) {
	rows := schedule(t, germanCredit())
	for i, a := range rows {
		assert.InDelta(t, a.Interest.Float64()*0.21, a.Tax.Float64(), 0.00001,
			"installment %d tax", i+1)
		sum := a.Capital.Add(a.Interest).Add(a.Tax).Round()
		assert.True(t, a.Total.Equal(sum),
			"installment %d: total %s != C+I+T %s", i+1, a.Total, sum)
	}
}

// =============================================================================
// PENALTY METHOD
// =============================================================================

func TestPenaltySchedule_DecomposesNetOfVAT(t *testing.T) {
	// GIVEN: A penalty credit absorbing a 121 surplus
	// WHEN: Generating its single installment
	// THEN: No capital; 100 interest + 21 VAT

	src := frenchCredit()
	c := credit.NewPenaltyCredit(src, credit.NewMoney(121), credit.NewDate(2026, 3, 15))

	require.Equal(t, credit.MethodPenalty, c.Method)
	require.Equal(t, 1, c.Term)
	assert.Equal(t, src.ClientID, c.ClientID)
	assert.Equal(t, src.OrganismID, c.OrganismID)

	a, err := credit.ScheduleAmounts(c, 1)
	require.NoError(t, err)
	assert.True(t, a.Capital.IsZero())
	assert.InDelta(t, 100, a.Interest.Float64(), 0.000001)
	assert.InDelta(t, 21, a.Tax.Float64(), 0.000001)
	assert.InDelta(t, 121, a.Total.Float64(), 0.000001)
}

func TestScheduleAmounts_UnknownMethod(t *testing.T) {
	c := frenchCredit()
	c.Method = "BULLET"

	_, err := credit.ScheduleAmounts(c, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, credit.ErrUnknownMethod)

	var methodErr *credit.UnknownMethodError
	require.ErrorAs(t, err, &methodErr)
	assert.Equal(t, c.ID, methodErr.CreditID)
}

// =============================================================================
// DUE DATES
// =============================================================================

func TestInstallmentFor_DueDatesOnDay28(t *testing.T) {
	// GIVEN: First due date 2026-01-28
	// WHEN: Building each installment
	// THEN: Due dates land on the 28th of consecutive months

	c := frenchCredit()
	for i := 1; i <= c.Term; i++ {
		inst, err := credit.InstallmentFor(c, i)
		require.NoError(t, err)
		assert.Equal(t, 28, inst.DueDate.Day(), "installment %d", i)
		assert.True(t, inst.DueDate.Equal(credit.DueDateFor(c.FirstDueDate, i)))
	}

	last, _ := credit.InstallmentFor(c, 12)
	assert.Equal(t, "2026-12-28", last.DueDate.String())
}

func TestInstallmentFor_OutOfRange(t *testing.T) {
	c := frenchCredit()

	_, err := credit.InstallmentFor(c, 0)
	assert.Error(t, err)
	_, err = credit.InstallmentFor(c, 13)
	assert.Error(t, err)
}

// =============================================================================
// GENERATOR
// =============================================================================

func TestGenerator_EnsureScheduleIsIdempotent(t *testing.T) {
	// GIVEN: A stored credit
	// WHEN: Generating the schedule twice
	// THEN: The second run returns the same rows without duplicating any

	mem := store.NewMemory()
	gen := credit.NewGenerator(mem)
	ctx := context.Background()

	c, err := mem.AddCredit(ctx, frenchCredit())
	require.NoError(t, err)

	first, err := gen.EnsureSchedule(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, first, 12)

	second, err := gen.EnsureSchedule(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, second, 12)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "row %d should be reused", i)
	}

	all, err := mem.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 12, "no duplicate rows may be created")
}

func TestGenerator_DuplicateRowsAreFatal(t *testing.T) {
	// GIVEN: Storage already holds two rows for the same installment number
	// WHEN: Ensuring that installment
	// THEN: A data-inconsistency error is raised, nothing is silently fixed

	mem := store.NewMemory()
	gen := credit.NewGenerator(mem)
	ctx := context.Background()

	c, err := mem.AddCredit(ctx, frenchCredit())
	require.NoError(t, err)

	inst, err := credit.InstallmentFor(c, 1)
	require.NoError(t, err)
	_, err = mem.AppendInstallment(ctx, inst)
	require.NoError(t, err)
	_, err = mem.AppendInstallment(ctx, inst)
	require.NoError(t, err)

	_, err = gen.EnsureInstallment(ctx, c.ID, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, credit.ErrDuplicateInstallment)

	var dupErr *credit.DuplicateInstallmentError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, 2, dupErr.Count)
}

func TestGenerator_UnknownCreditFails(t *testing.T) {
	mem := store.NewMemory()
	gen := credit.NewGenerator(mem)

	_, err := gen.EnsureSchedule(context.Background(), 99)
	assert.ErrorIs(t, err, credit.ErrCreditNotFound)
}

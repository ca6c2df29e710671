package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// =============================================================================
// ORDINARY COLLECTIONS
// =============================================================================

func TestCollect_OrdinaryExactCover(t *testing.T) {
	// GIVEN: Three pending installments (124.2 / 118.15 / 212.1)
	// WHEN: Paying exactly the first two totals
	// THEN: Two full entries persist and nothing else changes

	eng, mem := newTestEngine(t)
	c, installments := seedThree(t, mem)
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(242.35), credit.NewDate(2025, 10, 30), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assert.True(t, res.Surplus.IsZero())
	assert.Equal(t, installments[0].ID, res.Entries[0].InstallmentID)
	assert.Equal(t, installments[1].ID, res.Entries[1].InstallmentID)
	for _, entry := range res.Entries {
		assert.Equal(t, credit.CollectionOrdinary, entry.Type)
	}

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the third installment should remain")
	assert.Equal(t, installments[2].ID, rows[0].InstallmentID)
}

func TestCollect_OrdinaryPartialAllocation(t *testing.T) {
	// GIVEN: The three-installment fixture
	// WHEN: Paying 292.35 (two full totals + 50)
	// THEN: The third installment gets a principal-only partial entry

	eng, mem := newTestEngine(t)
	c, installments := seedThree(t, mem)
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(292.35), credit.NewDate(2025, 10, 30), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.True(t, res.Surplus.IsZero())

	partial := res.Entries[2]
	assert.Equal(t, installments[2].ID, partial.InstallmentID)
	assert.InDelta(t, 50, partial.Capital.Float64(), 0.000001)
	assert.True(t, partial.Interest.IsZero())
	assert.True(t, partial.Tax.IsZero())
	assert.InDelta(t, 50, partial.Total.Float64(), 0.000001)

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 162.1, rows[0].Total.Float64(), 0.000001)
	assert.InDelta(t, 150, rows[0].Capital.Float64(), 0.000001)
}

func TestCollect_OrdinaryPartialWithInterestSplit(t *testing.T) {
	// GIVEN: Only the 212.1 installment pending
	// WHEN: Paying 205
	// THEN: Capital fully paid; remainder decomposes net of VAT

	eng, mem := newTestEngine(t)
	c, _ := seedCredit(t, mem, 7, credit.NewDate(2025, 9, 15), [3]float64{200, 10, 2.1})
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(205), credit.NewDate(2025, 10, 30), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.InDelta(t, 200, entry.Capital.Float64(), 0.000001)
	assert.InDelta(t, 4.132231, entry.Interest.Float64(), 0.000001)
	assert.InDelta(t, 0.867769, entry.Tax.Float64(), 0.000001)
	assert.InDelta(t, 205, entry.Total.Float64(), 0.000001)
}

// =============================================================================
// SURPLUS HANDLING
// =============================================================================

func TestCollect_SurplusReportedWithoutPersistence(t *testing.T) {
	// GIVEN: Total pending of 454.45
	// WHEN: Paying 500 without persistence
	// THEN: The 45.55 overshoot is reported, no penalty credit appears

	eng, mem := newTestEngine(t)
	c, _ := seedThree(t, mem)
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(500), credit.NewDate(2025, 10, 30), false)
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.InDelta(t, 45.55, res.Surplus.Float64(), 0.000001)

	credits, err := mem.Credits(ctx)
	require.NoError(t, err)
	assert.Len(t, credits, 1, "no penalty credit without persistence")

	colls, err := mem.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, colls, "nothing may be persisted")
}

func TestCollect_SurplusProvisionsPenaltyCredit(t *testing.T) {
	// GIVEN: Total pending of 454.45
	// WHEN: Paying 500 with persistence
	// THEN: A penalty credit absorbs the 45.55 and is settled in full

	eng, mem := newTestEngine(t)
	c, _ := seedThree(t, mem)
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(500), credit.NewDate(2025, 10, 30), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 4)
	assert.True(t, res.Surplus.IsZero(), "penalty absorbs the surplus")

	penalty := res.Entries[3]
	assert.Equal(t, credit.CollectionPenalty, penalty.Type)
	assert.InDelta(t, 45.55, penalty.Total.Float64(), 0.000001)
	assert.True(t, penalty.Capital.IsZero())

	credits, err := mem.Credits(ctx)
	require.NoError(t, err)
	require.Len(t, credits, 2)
	pc := credits[1]
	assert.Equal(t, credit.MethodPenalty, pc.Method)
	assert.Equal(t, c.ClientID, pc.ClientID)
	assert.Equal(t, 1, pc.Term)
	assert.InDelta(t, 45.55, pc.DisbursedCapital.Float64(), 0.000001)

	// The penalty's own balance nets to zero: it was collected on creation.
	rows, err := eng.CreditBalance(ctx, pc.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// =============================================================================
// ADVANCE COLLECTIONS
// =============================================================================

func TestCollect_AdvanceZeroesFutureFinancingCost(t *testing.T) {
	// GIVEN: One installment of 100 capital + 20 interest + 4.2 tax due
	//        2025-10-28
	// WHEN: Prepaying 100 on 2025-06-15
	// THEN: The advance covers the capital with interest forgiven, and a
	//       bonus entry recognizes the forgiven 24.2

	eng, mem := newTestEngine(t)
	c, installments := seedCredit(t, mem, 7, credit.NewDate(2025, 5, 1), [3]float64{100, 20, 4.2})
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionAdvance,
		credit.NewMoney(100), credit.NewDate(2025, 6, 15), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)

	advance := res.Entries[0]
	assert.Equal(t, credit.CollectionAdvance, advance.Type)
	assert.Equal(t, installments[0].ID, advance.InstallmentID)
	assert.InDelta(t, 100, advance.Capital.Float64(), 0.000001)
	assert.True(t, advance.Interest.IsZero())
	assert.True(t, advance.Tax.IsZero())
	assert.InDelta(t, 100, advance.Total.Float64(), 0.000001)

	bonus := res.Entries[1]
	assert.Equal(t, credit.CollectionBonus, bonus.Type)
	assert.Equal(t, installments[0].ID, bonus.InstallmentID)
	assert.True(t, bonus.Capital.IsZero())
	assert.InDelta(t, 20, bonus.Interest.Float64(), 0.000001)
	assert.InDelta(t, 4.2, bonus.Tax.Float64(), 0.000001)
	assert.InDelta(t, 24.2, bonus.Total.Float64(), 0.000001)

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, rows, "installment fully settled by advance + bonus")
}

func TestCollect_AdvancePartialCapitalGetsNoBonus(t *testing.T) {
	// GIVEN: The same future installment
	// WHEN: Prepaying only 60 of its 100 capital
	// THEN: No bonus is synthesized while capital remains

	eng, mem := newTestEngine(t)
	c, _ := seedCredit(t, mem, 7, credit.NewDate(2025, 5, 1), [3]float64{100, 20, 4.2})
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionAdvance,
		credit.NewMoney(60), credit.NewDate(2025, 6, 15), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.Equal(t, credit.CollectionAdvance, entry.Type)
	assert.InDelta(t, 60, entry.Capital.Float64(), 0.000001)
	assert.True(t, entry.Interest.IsZero())
}

func TestCollect_AdvanceBonusForCapitalSettledEarlier(t *testing.T) {
	// GIVEN: Two installments (212.1 due 2025-10-28, 124.2 due 2025-11-28);
	//        an ordinary 205 settles the first one's capital in full,
	//        leaving only 5.867769 interest and 1.232231 tax on it
	// WHEN: Prepaying 100 before either due date
	// THEN: The already-settled installment contributes nothing to the
	//       waterfall but still gets its bonus, and both balances reach zero

	eng, mem := newTestEngine(t)
	c, installments := seedCredit(t, mem, 7, credit.NewDate(2025, 9, 15),
		[3]float64{200, 10, 2.1},
		[3]float64{100, 20, 4.2},
	)
	ctx := context.Background()

	_, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(205), credit.NewDate(2025, 10, 5), true)
	require.NoError(t, err)

	res, err := eng.Collect(ctx, c.ID, credit.CollectionAdvance,
		credit.NewMoney(100), credit.NewDate(2025, 10, 15), true)
	require.NoError(t, err)
	assert.True(t, res.Surplus.IsZero(), "surplus = %s", res.Surplus)

	require.Len(t, res.Entries, 3)

	advance := res.Entries[0]
	assert.Equal(t, credit.CollectionAdvance, advance.Type)
	assert.Equal(t, installments[1].ID, advance.InstallmentID)
	assert.InDelta(t, 100, advance.Capital.Float64(), 0.000001)
	assert.True(t, advance.Interest.IsZero())

	firstBonus := res.Entries[1]
	assert.Equal(t, credit.CollectionBonus, firstBonus.Type)
	assert.Equal(t, installments[0].ID, firstBonus.InstallmentID)
	assert.True(t, firstBonus.Capital.IsZero())
	assert.InDelta(t, 5.867769, firstBonus.Interest.Float64(), 0.000001)
	assert.InDelta(t, 1.232231, firstBonus.Tax.Float64(), 0.000001)
	assert.InDelta(t, 7.1, firstBonus.Total.Float64(), 0.000001)

	secondBonus := res.Entries[2]
	assert.Equal(t, credit.CollectionBonus, secondBonus.Type)
	assert.Equal(t, installments[1].ID, secondBonus.InstallmentID)
	assert.InDelta(t, 24.2, secondBonus.Total.Float64(), 0.000001)

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, rows, "forgiven interest and tax must be recognized as bonuses")
}

func TestCollect_OrdinaryKeepsFutureInterest(t *testing.T) {
	// GIVEN: The same future installment
	// WHEN: Paying 100 as an ORDINARY collection
	// THEN: 124.2 is still owed in total, so the 100 is a partial allocation

	eng, mem := newTestEngine(t)
	c, _ := seedCredit(t, mem, 7, credit.NewDate(2025, 5, 1), [3]float64{100, 20, 4.2})
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(100), credit.NewDate(2025, 6, 15), true)
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assert.InDelta(t, 100, res.Entries[0].Capital.Float64(), 0.000001)

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 24.2, rows[0].Total.Float64(), 0.000001, "interest and VAT remain owed")
}

// =============================================================================
// ROUNDING RECONCILIATION
// =============================================================================

func TestCollect_RoundingDustClearedAfterPersist(t *testing.T) {
	// GIVEN: A single 124.2 installment
	// WHEN: Paying 124.15, leaving 0.05 of dust
	// THEN: The persisted run appends a rounding entry driving the
	//       balance to zero

	eng, mem := newTestEngine(t)
	c, installments := seedCredit(t, mem, 7, credit.NewDate(2025, 9, 15), [3]float64{100, 20, 4.2})
	ctx := context.Background()

	res, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(124.15), credit.NewDate(2025, 10, 30), true)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	colls, err := mem.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, colls, 2, "ordinary entry + rounding entry")

	rounding := colls[1]
	assert.Equal(t, credit.CollectionRounding, rounding.Type)
	assert.Equal(t, installments[0].ID, rounding.InstallmentID)
	assert.InDelta(t, 0.05, rounding.Total.Float64(), 0.000001)

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, rows, "dust must be written off")
}

func TestReconcileRounding_IgnoresResidualsAboveThreshold(t *testing.T) {
	// GIVEN: A 0.5 residual with the default 0.1 threshold
	// WHEN: Reconciling
	// THEN: The residual is left alone

	eng, mem := newTestEngine(t)
	c, installments := seedCredit(t, mem, 7, credit.NewDate(2025, 9, 15), [3]float64{100, 20, 4.2})
	ctx := context.Background()

	_, err := eng.Collect(ctx, c.ID, credit.CollectionOrdinary,
		credit.NewMoney(123.7), credit.NewDate(2025, 10, 30), true)
	require.NoError(t, err)

	entries, err := eng.ReconcileRounding(ctx, credit.NewDate(2025, 10, 30))
	require.NoError(t, err)
	assert.Empty(t, entries)

	rows, err := eng.CreditBalance(ctx, c.ID, credit.NewDate(2025, 12, 31))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, installments[0].ID, rows[0].InstallmentID)
	assert.InDelta(t, 0.5, rows[0].Total.Float64(), 0.000001)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCollect_RejectsInternalType(t *testing.T) {
	eng, mem := newTestEngine(t)
	c, _ := seedThree(t, mem)

	for _, typ := range []credit.CollectionType{credit.CollectionBonus, credit.CollectionPenalty, credit.CollectionRounding, "WIRE"} {
		_, err := eng.Collect(context.Background(), c.ID, typ,
			credit.NewMoney(10), credit.NewDate(2025, 10, 30), true)
		assert.ErrorIs(t, err, credit.ErrUnknownCollectionType, "type %s", typ)
	}
}

func TestCollect_RejectsNegativeAmount(t *testing.T) {
	eng, mem := newTestEngine(t)
	c, _ := seedThree(t, mem)

	_, err := eng.Collect(context.Background(), c.ID, credit.CollectionOrdinary,
		credit.NewMoney(-5), credit.NewDate(2025, 10, 30), true)
	assert.ErrorIs(t, err, credit.ErrInvalidAmount)
}

func TestCollect_UnknownCredit(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Collect(context.Background(), 42, credit.CollectionOrdinary,
		credit.NewMoney(10), credit.NewDate(2025, 10, 30), true)
	assert.ErrorIs(t, err, credit.ErrCreditNotFound)
}

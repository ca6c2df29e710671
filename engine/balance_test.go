package engine_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMCarini/Credit-Manager/credit"
	"github.com/JuanMCarini/Credit-Manager/credit/store"
	"github.com/JuanMCarini/Credit-Manager/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*engine.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return engine.New(mem), mem
}

// seedCredit stores a credit for the client and hand-written installment
// amounts, due on the 28th of consecutive months starting October 2025.
// Amounts are (capital, interest, tax) triples.
func seedCredit(t *testing.T, mem *store.Memory, clientID credit.ClientID, disbursed credit.Date, amounts ...[3]float64) (credit.Credit, []credit.Installment) {
	t.Helper()
	ctx := context.Background()

	c, err := mem.AddCredit(ctx, credit.Credit{
		ClientID:         clientID,
		OrganismID:       3,
		Method:           credit.MethodFrench,
		RequestedCapital: credit.NewMoney(300),
		DisbursedCapital: credit.NewMoney(300),
		AnnualRate:       decimal.NewFromFloat(1.3),
		Term:             len(amounts),
		DisbursementDate: disbursed,
		FirstDueDate:     credit.NewDate(2025, 10, 28),
	})
	require.NoError(t, err)

	var installments []credit.Installment
	for i, a := range amounts {
		capital := credit.NewMoney(a[0])
		interest := credit.NewMoney(a[1])
		tax := credit.NewMoney(a[2])
		inst, err := mem.AppendInstallment(ctx, credit.Installment{
			CreditID: c.ID,
			Number:   i + 1,
			DueDate:  credit.NewDate(2025, 10, 28).AddMonths(i),
			Amounts: credit.Amounts{
				Capital:  capital,
				Interest: interest,
				Tax:      tax,
				Total:    capital.Add(interest).Add(tax),
			},
		})
		require.NoError(t, err)
		installments = append(installments, inst)
	}
	return c, installments
}

// seedThree stores the standard 124.2 / 118.15 / 212.1 fixture.
func seedThree(t *testing.T, mem *store.Memory) (credit.Credit, []credit.Installment) {
	return seedCredit(t, mem, 7, credit.NewDate(2025, 9, 15),
		[3]float64{100, 20, 4.2},
		[3]float64{100, 15, 3.15},
		[3]float64{200, 10, 2.1},
	)
}

// =============================================================================
// BALANCE
// =============================================================================

func TestBalance_FullScheduleOutstanding(t *testing.T) {
	// GIVEN: A credit with three installments and no collections
	// WHEN: Computing the balance after disbursement
	// THEN: Every scheduled amount is outstanding

	eng, mem := newTestEngine(t)
	_, installments := seedThree(t, mem)

	rows, err := eng.Balance(context.Background(), credit.NewDate(2025, 10, 1))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for i, r := range rows {
		assert.Equal(t, installments[i].ID, r.InstallmentID)
		assert.True(t, r.Total.Equal(installments[i].Total),
			"row %d total %s != scheduled %s", i, r.Total, installments[i].Total)
	}
}

func TestBalance_CollectionsNetAgainstSchedule(t *testing.T) {
	// GIVEN: The first installment collected in full on 2025-10-20
	// WHEN: Computing the balance before and after that date
	// THEN: The cutoff decides whether the collection counts

	eng, mem := newTestEngine(t)
	_, installments := seedThree(t, mem)
	ctx := context.Background()

	err := mem.AppendCollections(ctx, []credit.Collection{{
		InstallmentID: installments[0].ID,
		Date:          credit.NewDate(2025, 10, 20),
		Type:          credit.CollectionOrdinary,
		Amounts:       installments[0].Amounts,
	}})
	require.NoError(t, err)

	before, err := eng.Balance(ctx, credit.NewDate(2025, 10, 19))
	require.NoError(t, err)
	assert.True(t, before[0].Total.Equal(installments[0].Total),
		"collection after the cutoff must not count")

	after, err := eng.Balance(ctx, credit.NewDate(2025, 10, 20))
	require.NoError(t, err)
	assert.True(t, after[0].Total.IsZero(), "remaining total = %s", after[0].Total)
	assert.True(t, after[0].Capital.IsZero())
	assert.True(t, after[0].Interest.IsZero())
	assert.True(t, after[0].Tax.IsZero())
}

func TestBalance_ExcludesCreditsDisbursedAfterCutoff(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedThree(t, mem)
	seedCredit(t, mem, 7, credit.NewDate(2025, 12, 1), [3]float64{50, 5, 1.05})

	rows, err := eng.Balance(context.Background(), credit.NewDate(2025, 10, 1))
	require.NoError(t, err)
	assert.Len(t, rows, 3, "the later credit's installment must be excluded")

	rows, err = eng.Balance(context.Background(), credit.NewDate(2025, 12, 1))
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestCreditBalance_OnlyPositivePendingRows(t *testing.T) {
	// GIVEN: Two credits, one with a fully collected installment
	// WHEN: Asking for one credit's pending rows
	// THEN: Only that credit's positive-remaining rows come back

	eng, mem := newTestEngine(t)
	c1, installments := seedThree(t, mem)
	seedCredit(t, mem, 8, credit.NewDate(2025, 9, 15), [3]float64{50, 5, 1.05})
	ctx := context.Background()

	err := mem.AppendCollections(ctx, []credit.Collection{{
		InstallmentID: installments[0].ID,
		Date:          credit.NewDate(2025, 10, 1),
		Type:          credit.CollectionOrdinary,
		Amounts:       installments[0].Amounts,
	}})
	require.NoError(t, err)

	rows, err := eng.CreditBalance(ctx, c1.ID, credit.NewDate(2025, 10, 15))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, installments[1].ID, rows[0].InstallmentID)
	assert.Equal(t, installments[2].ID, rows[1].InstallmentID)
	for _, r := range rows {
		assert.Equal(t, c1.ID, r.CreditID)
	}
}

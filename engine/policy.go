/*
policy.go - Collection policy dispatch (ordinary vs. advance)

PURPOSE:
  Applies one payment to one credit. The collection type selects the
  semantics per call:

  Ordinary: the waterfall runs over the as-is balance snapshot; future
            interest and tax are retained.
  Advance:  interest and tax of installments not yet due are zeroed before
            splitting (full prepayment forgiveness of future financing
            cost). After allocation, Bonus rows recognize the forgiven
            interest+tax of every advance-collected installment whose
            capital was fully cleared.

SURPLUS HANDLING (both policies):
  - remaining installments exist: the surplus partially pays the next one
  - no remaining installments, persistence on: a Penalty credit with a
    single zero-capital installment is provisioned and settled in full
  - no remaining installments, persistence off: the surplus is reported
    back to the caller, never silently dropped

An unsupported collection type fails up front with an invalid-argument
error; no partial effect is possible.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// Collect applies a payment to a single credit and returns the resulting
// collection entries. With persist enabled the entries are appended to the
// ledger and a rounding-reconciliation pass runs on the same date.
func (e *Engine) Collect(ctx context.Context, creditID credit.CreditID, typ credit.CollectionType, amount credit.Money, date credit.Date, persist bool) (Result, error) {
	if err := e.checkCollectable(typ); err != nil {
		return Result{}, err
	}
	if amount.IsNegative() {
		return Result{}, fmt.Errorf("collect credit %d: %w: %s", creditID, credit.ErrInvalidAmount, amount)
	}

	src, err := e.Store.Credit(ctx, creditID)
	if err != nil {
		return Result{}, fmt.Errorf("collect credit %d: %w", creditID, err)
	}

	rows, err := e.CreditBalance(ctx, creditID, date)
	if err != nil {
		return Result{}, fmt.Errorf("collect credit %d: %w", creditID, err)
	}

	// Pre-forgiveness snapshot, used to synthesize bonus rows afterwards.
	pre := make(map[credit.InstallmentID]credit.Amounts, len(rows))
	for _, row := range rows {
		pre[row.InstallmentID] = row.Amounts
	}

	if typ == credit.CollectionAdvance {
		rows = forgiveFuture(rows, date, false)
	}

	covered, remaining, surplus := SplitPayment(rows, amount, typ)
	allocs := covered

	if surplus.IsPositive() {
		switch {
		case len(remaining) > 0:
			if a, ok := AllocateNext(remaining, surplus, typ); ok {
				allocs = append(allocs, a)
			}
		case persist:
			a, err := e.provisionPenalty(ctx, src, surplus, date)
			if err != nil {
				return Result{}, fmt.Errorf("collect credit %d: %w", creditID, err)
			}
			allocs = append(allocs, a)
		}
	}

	entries := toCollections(allocs, date)
	if typ == credit.CollectionAdvance {
		entries = append(entries, bonusEntries(pre, allocs, date)...)
	}

	// True unapplied remainder; positive only when nothing in scope could
	// absorb the surplus.
	applied := credit.ZeroMoney()
	for _, a := range allocs {
		applied = applied.Add(a.Total)
	}
	reported := amount.Sub(applied)
	if reported.IsNegative() {
		reported = credit.ZeroMoney()
	}

	if persist {
		if err := e.Store.AppendCollections(ctx, entries); err != nil {
			return Result{}, fmt.Errorf("collect credit %d: %w", creditID, err)
		}
		if _, err := e.ReconcileRounding(ctx, date); err != nil {
			return Result{}, fmt.Errorf("collect credit %d: %w", creditID, err)
		}
	}

	return Result{Entries: entries, Surplus: reported}, nil
}

// forgiveFuture zeroes interest and tax on installments not yet due and
// recomputes totals. With strict set, only installments due strictly after
// the reference date are forgiven (document-level convention); otherwise
// installments due on the reference date are forgiven too.
func forgiveFuture(rows []credit.InstallmentBalance, ref credit.Date, strict bool) []credit.InstallmentBalance {
	forgiven := make([]credit.InstallmentBalance, len(rows))
	copy(forgiven, rows)
	for i, row := range forgiven {
		future := row.DueDate.After(ref)
		if !strict {
			future = row.DueDate.AfterOrEqual(ref)
		}
		if !future {
			continue
		}
		forgiven[i].Interest = credit.ZeroMoney()
		forgiven[i].Tax = credit.ZeroMoney()
		forgiven[i].Total = row.Capital
	}
	return forgiven
}

// provisionPenalty creates a one-installment penalty credit absorbing the
// surplus and returns the allocation settling it in full.
func (e *Engine) provisionPenalty(ctx context.Context, src credit.Credit, surplus credit.Money, date credit.Date) (Allocation, error) {
	penalty, err := e.Store.AddCredit(ctx, credit.NewPenaltyCredit(src, surplus, date))
	if err != nil {
		return Allocation{}, fmt.Errorf("provision penalty: %w", err)
	}
	inst, err := e.gen.EnsureInstallment(ctx, penalty.ID, 1)
	if err != nil {
		return Allocation{}, fmt.Errorf("provision penalty: %w", err)
	}
	return Allocation{
		InstallmentID: inst.ID,
		CreditID:      penalty.ID,
		DueDate:       inst.DueDate,
		Amounts:       inst.Amounts,
		Type:          credit.CollectionPenalty,
	}, nil
}

// bonusEntries synthesizes bonus collections for advance-collected
// installments whose remaining capital reached zero while forgiven
// interest remained. It works over the raw allocations rather than the
// ledger entries: an installment whose capital was already settled by an
// earlier payment surfaces as a zero-total allocation, and its forgiven
// interest still earns a bonus. The bonus recognizes that interest plus
// the pending tax as a single entry dated with the triggering payment.
func bonusEntries(pre map[credit.InstallmentID]credit.Amounts, allocs []Allocation, date credit.Date) []credit.Collection {
	var bonuses []credit.Collection
	for _, alloc := range allocs {
		if alloc.Type != credit.CollectionAdvance {
			continue
		}
		before, ok := pre[alloc.InstallmentID]
		if !ok {
			continue
		}
		remCapital := before.Capital.Sub(alloc.Capital)
		remInterest := before.Interest.Sub(alloc.Interest)
		if !remCapital.IsZero() || remInterest.IsZero() {
			continue
		}
		bonuses = append(bonuses, credit.Collection{
			InstallmentID: alloc.InstallmentID,
			Date:          date,
			Type:          credit.CollectionBonus,
			Amounts: credit.Amounts{
				Capital:  credit.ZeroMoney(),
				Interest: remInterest,
				Tax:      before.Tax,
				Total:    remInterest.Add(before.Tax).Round(),
			},
		})
	}
	return bonuses
}

// toCollections turns allocations into ledger entries dated with the
// payment, dropping degenerate zero-total rows.
func toCollections(allocs []Allocation, date credit.Date) []credit.Collection {
	entries := make([]credit.Collection, 0, len(allocs))
	for _, a := range allocs {
		if a.Total.IsZero() {
			continue
		}
		entries = append(entries, credit.Collection{
			InstallmentID: a.InstallmentID,
			Date:          date,
			Type:          a.Type,
			Amounts:       a.Amounts,
		})
	}
	return entries
}

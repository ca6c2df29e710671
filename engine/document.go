package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// CollectForPayer distributes one payment document across every credit of
// a client. Pending installments of all eligible credits compete in a
// single waterfall ordered by due date, then disbursement date, then
// credit identifier; the resulting per-credit amounts are settled through
// Collect one credit at a time in ascending identifier order.
//
// A credit is eligible when it was disbursed on or before the payment
// date. Any surplus the waterfall could not place lands on the credit
// with the highest eligible identifier, where Collect resolves it under
// the usual surplus rules.
func (e *Engine) CollectForPayer(ctx context.Context, clientID credit.ClientID, typ credit.CollectionType, amount credit.Money, date credit.Date, persist bool) (Result, error) {
	if err := e.checkCollectable(typ); err != nil {
		return Result{}, err
	}
	if amount.IsNegative() {
		return Result{}, fmt.Errorf("collect for client %d: %w: %s", clientID, credit.ErrInvalidAmount, amount)
	}

	credits, err := e.Store.CreditsByClient(ctx, clientID)
	if err != nil {
		return Result{}, fmt.Errorf("collect for client %d: %w", clientID, err)
	}

	eligible := make(map[credit.CreditID]credit.Credit)
	var maxID credit.CreditID
	for _, c := range credits {
		if c.DisbursementDate.After(date) {
			continue
		}
		eligible[c.ID] = c
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	if len(eligible) == 0 {
		return Result{}, fmt.Errorf("collect for client %d on %s: %w", clientID, date, credit.ErrNoEligibleCredits)
	}

	all, err := e.Balance(ctx, date)
	if err != nil {
		return Result{}, fmt.Errorf("collect for client %d: %w", clientID, err)
	}
	var rows []credit.InstallmentBalance
	for _, row := range all {
		if _, ok := eligible[row.CreditID]; ok && row.Total.IsPositive() {
			rows = append(rows, row)
		}
	}

	if typ == credit.CollectionAdvance {
		rows = forgiveFuture(rows, date, true)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].DueDate.Before(rows[j].DueDate)
		}
		di := eligible[rows[i].CreditID].DisbursementDate
		dj := eligible[rows[j].CreditID].DisbursementDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return rows[i].CreditID < rows[j].CreditID
	})

	covered, remaining, surplus := SplitPayment(rows, amount, typ)
	allocs := covered
	if surplus.IsPositive() && len(remaining) > 0 {
		if a, ok := AllocateNext(remaining, surplus, typ); ok {
			allocs = append(allocs, a)
		}
	}

	perCredit := make(map[credit.CreditID]credit.Money)
	applied := credit.ZeroMoney()
	for _, a := range allocs {
		perCredit[a.CreditID] = perCredit[a.CreditID].Add(a.Total)
		applied = applied.Add(a.Total)
	}
	if residual := amount.Sub(applied); residual.IsPositive() {
		perCredit[maxID] = perCredit[maxID].Add(residual)
	}

	ids := make([]credit.CreditID, 0, len(perCredit))
	for id := range perCredit {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out Result
	out.Surplus = credit.ZeroMoney()
	for _, id := range ids {
		share := perCredit[id]
		if share.IsZero() {
			continue
		}
		res, err := e.Collect(ctx, id, typ, share, date, persist)
		if err != nil {
			return Result{}, fmt.Errorf("collect for client %d: credit %d: %w", clientID, id, err)
		}
		out.Entries = append(out.Entries, res.Entries...)
		out.Surplus = out.Surplus.Add(res.Surplus)
	}
	return out, nil
}

package engine

import (
	"context"
	"fmt"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// ReconcileRounding closes residual installment balances left behind by
// scale-6 rounding. Every installment whose pending total is nonzero but
// smaller in magnitude than the dust threshold gets a rounding collection
// for exactly that residual, driving its balance to zero. The entries are
// appended to the ledger and returned.
func (e *Engine) ReconcileRounding(ctx context.Context, date credit.Date) ([]credit.Collection, error) {
	rows, err := e.Balance(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("reconcile rounding: %w", err)
	}

	var entries []credit.Collection
	for _, row := range rows {
		if row.Total.IsZero() || !row.Total.Abs().LessThan(e.Dust) {
			continue
		}
		entries = append(entries, credit.Collection{
			InstallmentID: row.InstallmentID,
			Date:          date,
			Type:          credit.CollectionRounding,
			Amounts:       row.Amounts,
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}
	if err := e.Store.AppendCollections(ctx, entries); err != nil {
		return nil, fmt.Errorf("reconcile rounding: %w", err)
	}
	return entries, nil
}

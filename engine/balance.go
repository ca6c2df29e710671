/*
balance.go - Outstanding balance computation

PURPOSE:
  Projects the net outstanding amounts per installment as of a cutoff
  date: scheduled amounts minus everything collected up to and including
  that date, per money field, rounded to the fixed money scale.

GUARANTEES:
  The result is a pure function of the stored schedule and collection
  history up to the cutoff - neither is mutated, and the output is
  invariant to the order collections were inserted in. Installments of
  credits disbursed after the cutoff are excluded entirely.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// Balance returns one row per installment eligible as of the cutoff date
// (its credit disbursed on or before the cutoff), with each money field
// equal to scheduled minus collected-to-date, rounded. Rows are ordered by
// installment ID.
func (e *Engine) Balance(ctx context.Context, cutoff credit.Date) ([]credit.InstallmentBalance, error) {
	credits, err := e.Store.Credits(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	installments, err := e.Store.Installments(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	collections, err := e.Store.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	disbursed := make(map[credit.CreditID]credit.Date, len(credits))
	for _, c := range credits {
		disbursed[c.ID] = c.DisbursementDate
	}

	// Aggregate collections up to the cutoff, per installment.
	collected := make(map[credit.InstallmentID]credit.Amounts)
	for _, coll := range collections {
		if coll.Date.After(cutoff) {
			continue
		}
		collected[coll.InstallmentID] = collected[coll.InstallmentID].Add(coll.Amounts)
	}

	var rows []credit.InstallmentBalance
	for _, inst := range installments {
		date, ok := disbursed[inst.CreditID]
		if !ok || date.After(cutoff) {
			continue
		}
		rows = append(rows, credit.InstallmentBalance{
			InstallmentID: inst.ID,
			CreditID:      inst.CreditID,
			Number:        inst.Number,
			DueDate:       inst.DueDate,
			Amounts:       inst.Amounts.Sub(collected[inst.ID]).Round(),
		})
	}
	return rows, nil
}

// CreditBalance returns the pending rows (positive remaining total) of a
// single credit as of the cutoff date.
func (e *Engine) CreditBalance(ctx context.Context, id credit.CreditID, cutoff credit.Date) ([]credit.InstallmentBalance, error) {
	rows, err := e.Balance(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	var scoped []credit.InstallmentBalance
	for _, row := range rows {
		if row.CreditID == id && row.Total.IsPositive() {
			scoped = append(scoped, row)
		}
	}
	return scoped, nil
}

/*
waterfall.go - Payment waterfall split

PURPOSE:
  Partitions an ordered installment scope into the rows a payment fully
  covers, the rows it does not, and the numeric surplus left after the
  covered rows. Amounts are never modified here - the split is purely a
  partition over cumulative totals.

PROPERTIES:
  - sum(Total of covered) + surplus == amount (surplus >= 0 by construction)
  - covered rows form a strict prefix of the due-date ordering
  - a zero amount or empty scope covers nothing and returns the amount
    as surplus
*/
package engine

import (
	"sort"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// Allocation is one prospective collection row: the amounts a payment
// applies to a single installment, stamped with a collection type.
type Allocation struct {
	InstallmentID credit.InstallmentID
	CreditID      credit.CreditID
	DueDate       credit.Date
	credit.Amounts
	Type credit.CollectionType
}

// SplitPayment sorts the scope by due date ascending (stable: the caller's
// secondary ordering is preserved for ties) and walks the cumulative total.
// Rows whose cumulative total stays within the amount are returned as
// covered allocations stamped with the given type; the rest are returned
// untouched, together with the surplus.
func SplitPayment(rows []credit.InstallmentBalance, amount credit.Money, typ credit.CollectionType) (covered []Allocation, remaining []credit.InstallmentBalance, surplus credit.Money) {
	ordered := make([]credit.InstallmentBalance, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DueDate.Before(ordered[j].DueDate)
	})

	cumulative := credit.ZeroMoney()
	coveredSum := credit.ZeroMoney()
	for idx, row := range ordered {
		cumulative = cumulative.Add(row.Total)
		if cumulative.GreaterThan(amount) {
			remaining = append(remaining, ordered[idx:]...)
			break
		}
		covered = append(covered, Allocation{
			InstallmentID: row.InstallmentID,
			CreditID:      row.CreditID,
			DueDate:       row.DueDate,
			Amounts:       row.Amounts,
			Type:          typ,
		})
		coveredSum = coveredSum.Add(row.Total)
	}

	surplus = amount.Sub(coveredSum)
	return covered, remaining, surplus
}

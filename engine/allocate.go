/*
allocate.go - Partial allocation of the next pending installment

PURPOSE:
  When a payment only partially covers the next installment, this computes
  the exact Capital/Interest/Tax split applied to it. Only the earliest-due
  row of the remaining set is touched; everything else stays un-allocated.

ALLOCATION RULES:
  surplus == 0:                nothing to allocate
  surplus <  scheduled Capital: principal-only (Capital = surplus)
  surplus >= scheduled Capital: Capital fully paid; the remainder splits
                               into net interest (/1.21) and VAT

GUARANTEE:
  The resulting Total always equals the surplus exactly; Capital never
  exceeds the target installment's scheduled Capital.
*/
package engine

import (
	"github.com/JuanMCarini/Credit-Manager/credit"
)

// AllocateNext applies the surplus to the first row of the remaining set
// (which SplitPayment left in due-date order). Returns false when there is
// nothing to allocate - empty set, zero surplus, or a degenerate zero-total
// result.
func AllocateNext(remaining []credit.InstallmentBalance, surplus credit.Money, typ credit.CollectionType) (Allocation, bool) {
	if len(remaining) == 0 || surplus.IsZero() {
		return Allocation{}, false
	}

	next := remaining[0]
	var amounts credit.Amounts
	if next.Capital.GreaterThan(surplus) {
		amounts = credit.Amounts{
			Capital:  surplus,
			Interest: credit.ZeroMoney(),
			Tax:      credit.ZeroMoney(),
			Total:    surplus,
		}
	} else {
		interest, tax := credit.SplitGross(surplus.Sub(next.Capital))
		amounts = credit.Amounts{
			Capital:  next.Capital,
			Interest: interest,
			Tax:      tax,
			Total:    surplus,
		}
	}

	if amounts.Total.IsZero() {
		return Allocation{}, false
	}

	return Allocation{
		InstallmentID: next.InstallmentID,
		CreditID:      next.CreditID,
		DueDate:       next.DueDate,
		Amounts:       amounts,
		Type:          typ,
	}, true
}

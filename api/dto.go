/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing
  field renaming without breaking clients and API-specific validation.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ENCODING:
  Amounts cross the wire as JSON numbers. The engine keeps exact decimals
  internally; conversion happens only at this boundary.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// =============================================================================
// CREDITS
// =============================================================================

// CreditDTO represents a credit in API responses.
type CreditDTO struct {
	ID               int64   `json:"id"`
	ClientID         int64   `json:"client_id"`
	OrganismID       int64   `json:"organism_id"`
	Method           string  `json:"method"`
	RequestedCapital float64 `json:"requested_capital"`
	DisbursedCapital float64 `json:"disbursed_capital"`
	AnnualRate       float64 `json:"annual_rate"`
	Term             int     `json:"term"`
	DisbursementDate string  `json:"disbursement_date"`
	FirstDueDate     string  `json:"first_due_date"`
}

// CreateCreditRequest is the request to create a credit. disbursed_capital
// defaults to requested_capital and first_due_date defaults to the 28th of
// the month after disbursement when omitted.
type CreateCreditRequest struct {
	ClientID         int64   `json:"client_id"`
	OrganismID       int64   `json:"organism_id"`
	Method           string  `json:"method"`
	RequestedCapital float64 `json:"requested_capital"`
	DisbursedCapital float64 `json:"disbursed_capital"`
	AnnualRate       float64 `json:"annual_rate"`
	Term             int     `json:"term"`
	DisbursementDate string  `json:"disbursement_date"`
	FirstDueDate     string  `json:"first_due_date"`
}

func toCreditDTO(c credit.Credit) CreditDTO {
	rate, _ := c.AnnualRate.Float64()
	return CreditDTO{
		ID:               int64(c.ID),
		ClientID:         int64(c.ClientID),
		OrganismID:       int64(c.OrganismID),
		Method:           string(c.Method),
		RequestedCapital: c.RequestedCapital.Float64(),
		DisbursedCapital: c.DisbursedCapital.Float64(),
		AnnualRate:       rate,
		Term:             c.Term,
		DisbursementDate: c.DisbursementDate.String(),
		FirstDueDate:     c.FirstDueDate.String(),
	}
}

// =============================================================================
// INSTALLMENTS AND BALANCES
// =============================================================================

// InstallmentDTO represents one scheduled installment.
type InstallmentDTO struct {
	ID       int64   `json:"id"`
	CreditID int64   `json:"credit_id"`
	Number   int     `json:"number"`
	DueDate  string  `json:"due_date"`
	Capital  float64 `json:"capital"`
	Interest float64 `json:"interest"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

func toInstallmentDTO(inst credit.Installment) InstallmentDTO {
	return InstallmentDTO{
		ID:       int64(inst.ID),
		CreditID: int64(inst.CreditID),
		Number:   inst.Number,
		DueDate:  inst.DueDate.String(),
		Capital:  inst.Capital.Float64(),
		Interest: inst.Interest.Float64(),
		Tax:      inst.Tax.Float64(),
		Total:    inst.Total.Float64(),
	}
}

// BalanceRowDTO is one installment's remaining amounts as of a date.
type BalanceRowDTO struct {
	InstallmentID int64   `json:"installment_id"`
	CreditID      int64   `json:"credit_id"`
	Number        int     `json:"number"`
	DueDate       string  `json:"due_date"`
	Capital       float64 `json:"capital"`
	Interest      float64 `json:"interest"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
}

// BalanceDTO wraps the balance rows with the cutoff they were computed at.
type BalanceDTO struct {
	AsOf string          `json:"as_of"`
	Rows []BalanceRowDTO `json:"rows"`
}

func toBalanceRowDTOs(rows []credit.InstallmentBalance) []BalanceRowDTO {
	dtos := make([]BalanceRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = BalanceRowDTO{
			InstallmentID: int64(row.InstallmentID),
			CreditID:      int64(row.CreditID),
			Number:        row.Number,
			DueDate:       row.DueDate.String(),
			Capital:       row.Capital.Float64(),
			Interest:      row.Interest.Float64(),
			Tax:           row.Tax.Float64(),
			Total:         row.Total.Float64(),
		}
	}
	return dtos
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// CollectRequest is the request to apply a payment, either against one
// credit or against all credits of a client. With dry_run set, the
// resulting entries are computed and returned but nothing is persisted.
type CollectRequest struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	DryRun bool    `json:"dry_run"`
}

// CollectionDTO represents one ledger entry.
type CollectionDTO struct {
	ID            int64   `json:"id,omitempty"`
	InstallmentID int64   `json:"installment_id"`
	Date          string  `json:"date"`
	Type          string  `json:"type"`
	Capital       float64 `json:"capital"`
	Interest      float64 `json:"interest"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
}

// CollectResponseDTO carries the outcome of a collection run.
type CollectResponseDTO struct {
	Entries []CollectionDTO `json:"entries"`
	Surplus float64         `json:"surplus"`
	DryRun  bool            `json:"dry_run,omitempty"`
}

func toCollectionDTOs(entries []credit.Collection) []CollectionDTO {
	dtos := make([]CollectionDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = CollectionDTO{
			ID:            int64(entry.ID),
			InstallmentID: int64(entry.InstallmentID),
			Date:          entry.Date.String(),
			Type:          string(entry.Type),
			Capital:       entry.Capital.Float64(),
			Interest:      entry.Interest.Float64(),
			Tax:           entry.Tax.Float64(),
			Total:         entry.Total.Float64(),
		}
	}
	return dtos
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func moneyFromFloat(f float64) credit.Money {
	return credit.MoneyFromDecimal(decimal.NewFromFloat(f))
}

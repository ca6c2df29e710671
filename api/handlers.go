/*
handlers.go - HTTP API handlers for the credit management system

PURPOSE:
  Exposes the installment allocation and balance engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Credits:
    GET    /api/credits                      List all credits
    POST   /api/credits                      Create credit + generate schedule
    GET    /api/credits/{id}                 Get credit details
    GET    /api/credits/{id}/installments    Scheduled installments
    GET    /api/credits/{id}/balance         Pending rows as of a date
    POST   /api/credits/{id}/collections     Apply a payment to one credit

  Clients:
    POST   /api/clients/{id}/collections     Distribute a payment document
                                             across all credits of a client

  Balance:
    GET    /api/balance                      Full balance as of a date

  Admin:
    POST   /api/admin/rounding               Run rounding reconciliation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown types/methods
  - 404: Credit or installment not found
  - 500: Storage and internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JuanMCarini/Credit-Manager/credit"
	"github.com/JuanMCarini/Credit-Manager/engine"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  credit.Store
	Engine *engine.Engine
	Gen    *credit.Generator
	Log    *logrus.Logger
}

// NewHandler creates a new handler around the given store and engine.
func NewHandler(store credit.Store, eng *engine.Engine, log *logrus.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: eng,
		Gen:    credit.NewGenerator(store),
		Log:    log,
	}
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// ListCredits returns all credits.
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := h.Store.Credits(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list credits", err)
		return
	}

	dtos := make([]CreditDTO, len(credits))
	for i, c := range credits {
		dtos[i] = toCreditDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCredit returns a single credit.
func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.creditID(w, r)
	if !ok {
		return
	}

	c, err := h.Store.Credit(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get credit", err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditDTO(c))
}

// CreateCredit creates a credit and generates its full installment
// schedule in the same request.
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	method := credit.AmortizationMethod(req.Method)
	if !method.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown amortization method", nil)
		return
	}
	if req.Term < 1 {
		writeError(w, http.StatusBadRequest, "Term must be at least 1", nil)
		return
	}
	if req.RequestedCapital <= 0 {
		writeError(w, http.StatusBadRequest, "Requested capital must be positive", nil)
		return
	}

	disbursement, err := credit.ParseDate(req.DisbursementDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid disbursement_date format (use YYYY-MM-DD)", err)
		return
	}

	firstDue := credit.NewDate(disbursement.Year(), disbursement.Month()+1, 28)
	if req.FirstDueDate != "" {
		firstDue, err = credit.ParseDate(req.FirstDueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid first_due_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	disbursed := req.DisbursedCapital
	if disbursed == 0 {
		disbursed = req.RequestedCapital
	}

	c, err := h.Store.AddCredit(r.Context(), credit.Credit{
		ClientID:         credit.ClientID(req.ClientID),
		OrganismID:       credit.OrganismID(req.OrganismID),
		Method:           method,
		RequestedCapital: moneyFromFloat(req.RequestedCapital),
		DisbursedCapital: moneyFromFloat(disbursed),
		AnnualRate:       decimal.NewFromFloat(req.AnnualRate),
		Term:             req.Term,
		DisbursementDate: disbursement,
		FirstDueDate:     firstDue,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create credit", err)
		return
	}

	if _, err := h.Gen.EnsureSchedule(r.Context(), c.ID); err != nil {
		h.writeDomainError(w, "Failed to generate schedule", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"credit_id": c.ID,
		"client_id": c.ClientID,
		"method":    c.Method,
		"term":      c.Term,
	}).Info("credit created")

	writeJSON(w, http.StatusCreated, toCreditDTO(c))
}

// GetInstallments returns a credit's scheduled installments.
func (h *Handler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.creditID(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.Credit(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get credit", err)
		return
	}

	installments, err := h.Store.InstallmentsByCredit(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list installments", err)
		return
	}

	dtos := make([]InstallmentDTO, len(installments))
	for i, inst := range installments {
		dtos[i] = toInstallmentDTO(inst)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance returns the outstanding balance of all credits as of a date.
// The as_of query parameter defaults to today.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOfDate(w, r)
	if !ok {
		return
	}

	rows, err := h.Engine.Balance(r.Context(), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AsOf: asOf.String(), Rows: toBalanceRowDTOs(rows)})
}

// GetCreditBalance returns the pending rows of one credit as of a date.
func (h *Handler) GetCreditBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.creditID(w, r)
	if !ok {
		return
	}
	asOf, ok := h.asOfDate(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.Credit(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get credit", err)
		return
	}

	rows, err := h.Engine.CreditBalance(r.Context(), id, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AsOf: asOf.String(), Rows: toBalanceRowDTOs(rows)})
}

// =============================================================================
// COLLECTION HANDLERS
// =============================================================================

// CollectCredit applies a payment to a single credit.
func (h *Handler) CollectCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.creditID(w, r)
	if !ok {
		return
	}
	req, date, ok := h.collectRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Engine.Collect(r.Context(), id, credit.CollectionType(req.Type),
		moneyFromFloat(req.Amount), date, !req.DryRun)
	if err != nil {
		h.writeDomainError(w, "Failed to apply collection", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"credit_id": id,
		"type":      req.Type,
		"amount":    req.Amount,
		"entries":   len(res.Entries),
		"surplus":   res.Surplus.Float64(),
		"dry_run":   req.DryRun,
	}).Info("collection applied")

	writeJSON(w, http.StatusOK, CollectResponseDTO{
		Entries: toCollectionDTOs(res.Entries),
		Surplus: res.Surplus.Float64(),
		DryRun:  req.DryRun,
	})
}

// CollectClient distributes one payment document across all credits of a
// client.
func (h *Handler) CollectClient(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	clientID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client id", err)
		return
	}
	req, date, ok := h.collectRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Engine.CollectForPayer(r.Context(), credit.ClientID(clientID),
		credit.CollectionType(req.Type), moneyFromFloat(req.Amount), date, !req.DryRun)
	if err != nil {
		h.writeDomainError(w, "Failed to distribute collection", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"client_id": clientID,
		"type":      req.Type,
		"amount":    req.Amount,
		"entries":   len(res.Entries),
		"surplus":   res.Surplus.Float64(),
		"dry_run":   req.DryRun,
	}).Info("document distributed")

	writeJSON(w, http.StatusOK, CollectResponseDTO{
		Entries: toCollectionDTOs(res.Entries),
		Surplus: res.Surplus.Float64(),
		DryRun:  req.DryRun,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerRounding runs a rounding-reconciliation pass as of a date.
func (h *Handler) TriggerRounding(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOfDate(w, r)
	if !ok {
		return
	}

	entries, err := h.Engine.ReconcileRounding(r.Context(), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to reconcile rounding", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"as_of":   asOf.String(),
		"entries": len(entries),
	}).Info("rounding reconciliation complete")

	writeJSON(w, http.StatusOK, CollectResponseDTO{Entries: toCollectionDTOs(entries)})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) creditID(w http.ResponseWriter, r *http.Request) (credit.CreditID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credit id", err)
		return 0, false
	}
	return credit.CreditID(id), true
}

func (h *Handler) asOfDate(w http.ResponseWriter, r *http.Request) (credit.Date, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return credit.Today(), true
	}
	asOf, err := credit.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return credit.Date{}, false
	}
	return asOf, true
}

func (h *Handler) collectRequest(w http.ResponseWriter, r *http.Request) (CollectRequest, credit.Date, bool) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, credit.Date{}, false
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "Amount must not be negative", nil)
		return req, credit.Date{}, false
	}

	date := credit.Today()
	if req.Date != "" {
		var err error
		date, err = credit.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return req, credit.Date{}, false
		}
	}
	return req, date, true
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case credit.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case credit.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

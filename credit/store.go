/*
store.go - Persistence contract for credits, installments, and collections

PURPOSE:
  Defines the narrow interface between the domain/engine logic and storage.
  Implementations exist for in-memory (credit/store), SQLite (store/sqlite)
  and PostgreSQL (store/postgres).

APPEND-ONLY CONTRACT:
  Installments and collections are append-only from this engine's
  perspective: there are no Update or Delete methods, ever. Remaining
  balances are derived by netting, and near-zero residuals are cleared by
  appending rounding collections, not by edits.

ORDERING:
  Read methods return rows sorted by identifier ascending. Callers apply
  any further filtering and sorting (due-date order, cutoff dates).

CONCURRENCY:
  The engine is single-threaded per invocation and holds no shared state;
  serializing concurrent payments against the same credit is the storage
  layer's responsibility (per-credit lock or transactional read-modify-write).
  Schedule generation is the one operation that is idempotent without
  external locking (see schedule.go).
*/
package credit

import "context"

// Store handles persistence of the three entity kinds the engine consumes.
type Store interface {
	// AddCredit persists a new credit and returns it with its assigned ID.
	AddCredit(ctx context.Context, c Credit) (Credit, error)

	// Credit returns a single credit, or ErrCreditNotFound.
	Credit(ctx context.Context, id CreditID) (Credit, error)

	// Credits returns all credits, sorted by ID.
	Credits(ctx context.Context) ([]Credit, error)

	// CreditsByClient returns all credits owned by a client, sorted by ID.
	CreditsByClient(ctx context.Context, clientID ClientID) ([]Credit, error)

	// AppendInstallment persists a new installment row and returns it with
	// its assigned ID. Never updates an existing row.
	AppendInstallment(ctx context.Context, inst Installment) (Installment, error)

	// Installments returns all installments, sorted by ID.
	Installments(ctx context.Context) ([]Installment, error)

	// InstallmentsByCredit returns a credit's installments, sorted by ID.
	InstallmentsByCredit(ctx context.Context, id CreditID) ([]Installment, error)

	// Installment returns a single installment, or ErrInstallmentNotFound.
	Installment(ctx context.Context, id InstallmentID) (Installment, error)

	// AppendCollections appends ledger entries. Either all rows are
	// persisted or none are.
	AppendCollections(ctx context.Context, rows []Collection) error

	// Collections returns the full collection ledger, sorted by ID.
	Collections(ctx context.Context) ([]Collection, error)
}

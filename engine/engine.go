/*
Package engine implements the installment allocation & balance engine.

PURPOSE:
  Given the stored schedule and collection ledger, this package computes
  outstanding balances as of any date and allocates incoming payments
  across installments according to the collection-type rules.

PIPELINE:
  One payment application is one sequential pipeline over an immutable
  snapshot:

    balance snapshot -> waterfall split -> partial allocation ->
    policy dispatch (ordinary/advance, penalty/bonus synthesis) ->
    persistence -> rounding reconciliation

  Every step is a pure transformation returning new values; nothing is
  mutated in place. The engine holds no state between invocations, so
  serializing concurrent payments against the same credit is the storage
  layer's responsibility.

KEY FILES:
  balance.go:   Outstanding balance snapshot as of a cutoff date
  waterfall.go: Covered / remaining / surplus partition of a payment
  allocate.go:  Capital-first split for a partially covered installment
  policy.go:    Ordinary vs. advance semantics, penalty/bonus synthesis
  document.go:  Payer-level distribution across multiple credits
  rounding.go:  Near-zero residual cleanup
*/
package engine

import (
	"github.com/JuanMCarini/Credit-Manager/credit"
)

// DefaultDustThreshold is the residual total below which an installment is
// considered settled and cleared by a rounding collection.
const DefaultDustThreshold = 0.1

// Engine computes balances and applies collections on top of a Store.
type Engine struct {
	Store credit.Store
	Types credit.TypeCatalog

	// Dust is the rounding-reconciliation threshold: residual totals with
	// absolute value below it are cleared as settled.
	Dust credit.Money

	gen *credit.Generator
}

// Option configures an Engine.
type Option func(*Engine)

// WithTypeCatalog injects a collection-type catalog (tests use fixtures).
func WithTypeCatalog(tc credit.TypeCatalog) Option {
	return func(e *Engine) { e.Types = tc }
}

// WithDustThreshold overrides the rounding-reconciliation threshold.
func WithDustThreshold(m credit.Money) Option {
	return func(e *Engine) { e.Dust = m }
}

// New creates an Engine with the default catalog and dust threshold.
func New(store credit.Store, opts ...Option) *Engine {
	e := &Engine{
		Store: store,
		Types: credit.DefaultTypeCatalog(),
		Dust:  credit.NewMoney(DefaultDustThreshold),
		gen:   credit.NewGenerator(store),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a collection operation.
type Result struct {
	// Entries are the collection rows produced (persisted when the
	// operation ran with persistence enabled).
	Entries []credit.Collection

	// Surplus is the unapplied remainder of the payment. It is nonzero
	// only when persistence was disabled and no installment remained in
	// scope to absorb it; the caller is expected to provision a penalty
	// for this amount.
	Surplus credit.Money
}

// checkCollectable validates a caller-supplied collection type for a
// payment operation. Only ordinary and advance payments may be initiated
// by callers; penalty, bonus and rounding rows are synthesized internally.
func (e *Engine) checkCollectable(t credit.CollectionType) error {
	if t != credit.CollectionOrdinary && t != credit.CollectionAdvance {
		return &credit.UnknownCollectionTypeError{Type: t}
	}
	if !e.Types.Known(t) {
		return &credit.UnknownCollectionTypeError{Type: t}
	}
	return nil
}

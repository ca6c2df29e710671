/*
Package sqlite provides a SQLite-backed implementation of credit.Store.

PURPOSE:
  Persists credits, their installment schedules, and the append-only
  collection ledger using SQLite. The same patterns apply to PostgreSQL
  (store/postgres) - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Installments and collections carry no UPDATE or DELETE statements.
  Residual balances are closed by appending rounding collections, never
  by editing rows.

KEY TABLES:
  credits:          Loan terms (method, capital, rate, term, dates)
  installments:     Generated schedule rows, one per period
  collection_types: Catalog mapping collection type names to numeric codes
  collections:      Immutable ledger of applied payments

MONEY ENCODING:
  Monetary columns are TEXT holding the exact decimal string. Scanning
  floats would reintroduce the drift the 6-decimal convention exists to
  contain.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/credits.db", credit.DefaultTypeCatalog())
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - credit/store.go: Interface definition
  - credit/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// Store implements credit.Store using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	types credit.TypeCatalog
	names map[int]credit.CollectionType
}

// New creates a new SQLite store with the given database path and seeds
// the collection type catalog. Use ":memory:" for an in-memory database.
func New(dbPath string, types credit.TypeCatalog) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:    db,
		types: types,
		names: make(map[int]credit.CollectionType, len(types)),
	}
	for name, code := range types {
		store.names[code] = name
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.seedTypes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed collection types: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		organism_id INTEGER NOT NULL,
		method TEXT NOT NULL,
		requested_capital TEXT NOT NULL,
		disbursed_capital TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		term INTEGER NOT NULL,
		disbursement_date TEXT NOT NULL,
		first_due_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_credits_client
		ON credits(client_id);
	CREATE INDEX IF NOT EXISTS idx_credits_disbursement
		ON credits(disbursement_date);

	CREATE TABLE IF NOT EXISTS installments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		credit_id INTEGER NOT NULL REFERENCES credits(id),
		number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		capital TEXT NOT NULL,
		interest TEXT NOT NULL,
		tax TEXT NOT NULL,
		total TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_installments_credit
		ON installments(credit_id);
	-- Hot path: balance cutoffs scan by due date
	CREATE INDEX IF NOT EXISTS idx_installments_due
		ON installments(due_date);

	CREATE TABLE IF NOT EXISTS collection_types (
		code INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		installment_id INTEGER NOT NULL REFERENCES installments(id),
		date TEXT NOT NULL,
		type_code INTEGER NOT NULL REFERENCES collection_types(code),
		capital TEXT NOT NULL,
		interest TEXT NOT NULL,
		tax TEXT NOT NULL,
		total TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collections_installment
		ON collections(installment_id);
	CREATE INDEX IF NOT EXISTS idx_collections_date
		ON collections(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedTypes upserts the configured catalog rows.
func (s *Store) seedTypes() error {
	for name, code := range s.types {
		_, err := s.db.Exec(
			"INSERT INTO collection_types (code, name) VALUES (?, ?) ON CONFLICT(code) DO UPDATE SET name = excluded.name",
			code, string(name),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// CREDITS
// =============================================================================

// AddCredit persists a new credit and returns it with its assigned ID.
func (s *Store) AddCredit(ctx context.Context, c credit.Credit) (credit.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO credits
		(client_id, organism_id, method, requested_capital, disbursed_capital,
		 annual_rate, term, disbursement_date, first_due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		c.ClientID,
		c.OrganismID,
		string(c.Method),
		c.RequestedCapital.String(),
		c.DisbursedCapital.String(),
		c.AnnualRate.String(),
		c.Term,
		c.DisbursementDate.String(),
		c.FirstDueDate.String(),
	)
	if err != nil {
		return credit.Credit{}, fmt.Errorf("failed to insert credit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return credit.Credit{}, fmt.Errorf("failed to read credit id: %w", err)
	}
	c.ID = credit.CreditID(id)
	return c, nil
}

// Credit returns a single credit by ID.
func (s *Store) Credit(ctx context.Context, id credit.CreditID) (credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := creditSelect + " WHERE id = ?"
	rows, err := s.queryCredits(ctx, query, id)
	if err != nil {
		return credit.Credit{}, err
	}
	if len(rows) == 0 {
		return credit.Credit{}, fmt.Errorf("credit %d: %w", id, credit.ErrCreditNotFound)
	}
	return rows[0], nil
}

// Credits returns all credits, sorted by ID.
func (s *Store) Credits(ctx context.Context) ([]credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCredits(ctx, creditSelect+" ORDER BY id ASC")
}

// CreditsByClient returns all credits owned by a client, sorted by ID.
func (s *Store) CreditsByClient(ctx context.Context, clientID credit.ClientID) ([]credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCredits(ctx, creditSelect+" WHERE client_id = ? ORDER BY id ASC", clientID)
}

const creditSelect = `
	SELECT id, client_id, organism_id, method, requested_capital, disbursed_capital,
	       annual_rate, term, disbursement_date, first_due_date
	FROM credits
`

func (s *Store) queryCredits(ctx context.Context, query string, args ...any) ([]credit.Credit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()

	var credits []credit.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func scanCredit(rows *sql.Rows) (credit.Credit, error) {
	var (
		c                           credit.Credit
		method                      string
		requested, disbursed, rate  string
		disbursementDate, firstDue  string
	)

	err := rows.Scan(
		&c.ID, &c.ClientID, &c.OrganismID, &method,
		&requested, &disbursed, &rate, &c.Term,
		&disbursementDate, &firstDue,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan credit: %w", err)
	}

	c.Method = credit.AmortizationMethod(method)
	c.RequestedCapital = credit.MustParseMoney(requested)
	c.DisbursedCapital = credit.MustParseMoney(disbursed)
	c.AnnualRate, _ = decimal.NewFromString(rate)
	c.DisbursementDate, _ = credit.ParseDate(disbursementDate)
	c.FirstDueDate, _ = credit.ParseDate(firstDue)
	return c, nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

// AppendInstallment persists a new installment row and returns it with its
// assigned ID.
func (s *Store) AppendInstallment(ctx context.Context, inst credit.Installment) (credit.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO installments
		(credit_id, number, due_date, capital, interest, tax, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		inst.CreditID,
		inst.Number,
		inst.DueDate.String(),
		inst.Capital.String(),
		inst.Interest.String(),
		inst.Tax.String(),
		inst.Total.String(),
	)
	if err != nil {
		return credit.Installment{}, fmt.Errorf("failed to insert installment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return credit.Installment{}, fmt.Errorf("failed to read installment id: %w", err)
	}
	inst.ID = credit.InstallmentID(id)
	return inst, nil
}

// Installments returns all installments, sorted by ID.
func (s *Store) Installments(ctx context.Context) ([]credit.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInstallments(ctx, installmentSelect+" ORDER BY id ASC")
}

// InstallmentsByCredit returns a credit's installments, sorted by ID.
func (s *Store) InstallmentsByCredit(ctx context.Context, id credit.CreditID) ([]credit.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInstallments(ctx, installmentSelect+" WHERE credit_id = ? ORDER BY id ASC", id)
}

// Installment returns a single installment by ID.
func (s *Store) Installment(ctx context.Context, id credit.InstallmentID) (credit.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.queryInstallments(ctx, installmentSelect+" WHERE id = ?", id)
	if err != nil {
		return credit.Installment{}, err
	}
	if len(rows) == 0 {
		return credit.Installment{}, fmt.Errorf("installment %d: %w", id, credit.ErrInstallmentNotFound)
	}
	return rows[0], nil
}

const installmentSelect = `
	SELECT id, credit_id, number, due_date, capital, interest, tax, total
	FROM installments
`

func (s *Store) queryInstallments(ctx context.Context, query string, args ...any) ([]credit.Installment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var installments []credit.Installment
	for rows.Next() {
		var (
			inst                         credit.Installment
			dueDate                      string
			capital, interest, tax, total string
		)
		if err := rows.Scan(&inst.ID, &inst.CreditID, &inst.Number, &dueDate,
			&capital, &interest, &tax, &total); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		inst.DueDate, _ = credit.ParseDate(dueDate)
		inst.Capital = credit.MustParseMoney(capital)
		inst.Interest = credit.MustParseMoney(interest)
		inst.Tax = credit.MustParseMoney(tax)
		inst.Total = credit.MustParseMoney(total)
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// AppendCollections appends ledger entries atomically.
func (s *Store) AppendCollections(ctx context.Context, entries []credit.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO collections
		(installment_id, date, type_code, capital, interest, tax, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, entry := range entries {
		code, err := s.types.Code(entry.Type)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query,
			entry.InstallmentID,
			entry.Date.String(),
			code,
			entry.Capital.String(),
			entry.Interest.String(),
			entry.Tax.String(),
			entry.Total.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert collection: %w", err)
		}
	}

	return tx.Commit()
}

// Collections returns the full collection ledger, sorted by ID.
func (s *Store) Collections(ctx context.Context) ([]credit.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, installment_id, date, type_code, capital, interest, tax, total
		FROM collections
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var entries []credit.Collection
	for rows.Next() {
		var (
			entry                        credit.Collection
			date                         string
			code                         int
			capital, interest, tax, total string
		)
		if err := rows.Scan(&entry.ID, &entry.InstallmentID, &date, &code,
			&capital, &interest, &tax, &total); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		entry.Date, _ = credit.ParseDate(date)
		name, ok := s.names[code]
		if !ok {
			return nil, fmt.Errorf("collection %d: unknown type code %d: %w",
				entry.ID, code, credit.ErrUnknownCollectionType)
		}
		entry.Type = name
		entry.Capital = credit.MustParseMoney(capital)
		entry.Interest = credit.MustParseMoney(interest)
		entry.Tax = credit.MustParseMoney(tax)
		entry.Total = credit.MustParseMoney(total)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"collections", "installments", "credits"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

/*
Package postgres provides a PostgreSQL-backed implementation of credit.Store.

PURPOSE:
  Production persistence for credits, installment schedules, and the
  collection ledger. Mirrors store/sqlite with dialect differences only:
  $n placeholders, BIGSERIAL identifiers, RETURNING clauses, and no
  process-level mutex (the database serializes writers).

MONEY ENCODING:
  Monetary columns are NUMERIC scanned as strings, preserving the exact
  decimal representation end to end.

SEE ALSO:
  - credit/store.go: Interface definition
  - store/sqlite: Embedded/test implementation with the same schema shape
*/
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// Store implements credit.Store using PostgreSQL.
type Store struct {
	db    *sql.DB
	types credit.TypeCatalog
	names map[int]credit.CollectionType
}

// New connects with the given DSN, migrates the schema, and seeds the
// collection type catalog.
func New(dsn string, types credit.TypeCatalog) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credits (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL,
		organism_id BIGINT NOT NULL,
		method TEXT NOT NULL,
		requested_capital NUMERIC(20,6) NOT NULL,
		disbursed_capital NUMERIC(20,6) NOT NULL,
		annual_rate NUMERIC(12,8) NOT NULL,
		term INTEGER NOT NULL,
		disbursement_date DATE NOT NULL,
		first_due_date DATE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_credits_client
		ON credits(client_id);
	CREATE INDEX IF NOT EXISTS idx_credits_disbursement
		ON credits(disbursement_date);

	CREATE TABLE IF NOT EXISTS installments (
		id BIGSERIAL PRIMARY KEY,
		credit_id BIGINT NOT NULL REFERENCES credits(id),
		number INTEGER NOT NULL,
		due_date DATE NOT NULL,
		capital NUMERIC(20,6) NOT NULL,
		interest NUMERIC(20,6) NOT NULL,
		tax NUMERIC(20,6) NOT NULL,
		total NUMERIC(20,6) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_installments_credit
		ON installments(credit_id);
	CREATE INDEX IF NOT EXISTS idx_installments_due
		ON installments(due_date);

	CREATE TABLE IF NOT EXISTS collection_types (
		code INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS collections (
		id BIGSERIAL PRIMARY KEY,
		installment_id BIGINT NOT NULL REFERENCES installments(id),
		date DATE NOT NULL,
		type_code INTEGER NOT NULL REFERENCES collection_types(code),
		capital NUMERIC(20,6) NOT NULL,
		interest NUMERIC(20,6) NOT NULL,
		tax NUMERIC(20,6) NOT NULL,
		total NUMERIC(20,6) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collections_installment
		ON collections(installment_id);
	CREATE INDEX IF NOT EXISTS idx_collections_date
		ON collections(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) seedTypes() error {
	for name, code := range s.types {
		_, err := s.db.Exec(
			"INSERT INTO collection_types (code, name) VALUES ($1, $2) ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name",
			code, string(name),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// AddCredit persists a new credit and returns it with its assigned ID.
func (s *Store) AddCredit(ctx context.Context, c credit.Credit) (credit.Credit, error) {
	query := `
		INSERT INTO credits
		(client_id, organism_id, method, requested_capital, disbursed_capital,
		 annual_rate, term, disbursement_date, first_due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		c.ClientID,
		c.OrganismID,
		string(c.Method),
		c.RequestedCapital.String(),
		c.DisbursedCapital.String(),
		c.AnnualRate.String(),
		c.Term,
		c.DisbursementDate.String(),
		c.FirstDueDate.String(),
	).Scan(&id)
	if err != nil {
		return credit.Credit{}, fmt.Errorf("failed to insert credit: %w", err)
	}
	c.ID = credit.CreditID(id)
	return c, nil
}

const creditSelect = `
	SELECT id, client_id, organism_id, method, requested_capital, disbursed_capital,
	       annual_rate, term, to_char(disbursement_date, 'YYYY-MM-DD'), to_char(first_due_date, 'YYYY-MM-DD')
	FROM credits
`

// Credit returns a single credit by ID.
func (s *Store) Credit(ctx context.Context, id credit.CreditID) (credit.Credit, error) {
	rows, err := s.queryCredits(ctx, creditSelect+" WHERE id = $1", id)
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
	return s.queryCredits(ctx, creditSelect+" ORDER BY id ASC")
}

// CreditsByClient returns all credits owned by a client, sorted by ID.
func (s *Store) CreditsByClient(ctx context.Context, clientID credit.ClientID) ([]credit.Credit, error) {
	return s.queryCredits(ctx, creditSelect+" WHERE client_id = $1 ORDER BY id ASC", clientID)
}

func (s *Store) queryCredits(ctx context.Context, query string, args ...any) ([]credit.Credit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()

	var credits []credit.Credit
	for rows.Next() {
		var (
			c                          credit.Credit
			method                     string
			requested, disbursed, rate string
			disbursementDate, firstDue string
		)
		if err := rows.Scan(&c.ID, &c.ClientID, &c.OrganismID, &method,
			&requested, &disbursed, &rate, &c.Term,
			&disbursementDate, &firstDue); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		c.Method = credit.AmortizationMethod(method)
		c.RequestedCapital = credit.MustParseMoney(requested)
		c.DisbursedCapital = credit.MustParseMoney(disbursed)
		c.AnnualRate, _ = decimal.NewFromString(rate)
		c.DisbursementDate, _ = credit.ParseDate(disbursementDate)
		c.FirstDueDate, _ = credit.ParseDate(firstDue)
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// AppendInstallment persists a new installment row and returns it with its
// assigned ID.
func (s *Store) AppendInstallment(ctx context.Context, inst credit.Installment) (credit.Installment, error) {
	query := `
		INSERT INTO installments
		(credit_id, number, due_date, capital, interest, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		inst.CreditID,
		inst.Number,
		inst.DueDate.String(),
		inst.Capital.String(),
		inst.Interest.String(),
		inst.Tax.String(),
		inst.Total.String(),
	).Scan(&id)
	if err != nil {
		return credit.Installment{}, fmt.Errorf("failed to insert installment: %w", err)
	}
	inst.ID = credit.InstallmentID(id)
	return inst, nil
}

const installmentSelect = `
	SELECT id, credit_id, number, to_char(due_date, 'YYYY-MM-DD'), capital, interest, tax, total
	FROM installments
`

// Installments returns all installments, sorted by ID.
func (s *Store) Installments(ctx context.Context) ([]credit.Installment, error) {
	return s.queryInstallments(ctx, installmentSelect+" ORDER BY id ASC")
}

// InstallmentsByCredit returns a credit's installments, sorted by ID.
func (s *Store) InstallmentsByCredit(ctx context.Context, id credit.CreditID) ([]credit.Installment, error) {
	return s.queryInstallments(ctx, installmentSelect+" WHERE credit_id = $1 ORDER BY id ASC", id)
}

// Installment returns a single installment by ID.
func (s *Store) Installment(ctx context.Context, id credit.InstallmentID) (credit.Installment, error) {
	rows, err := s.queryInstallments(ctx, installmentSelect+" WHERE id = $1", id)
	if err != nil {
		return credit.Installment{}, err
	}
	if len(rows) == 0 {
		return credit.Installment{}, fmt.Errorf("installment %d: %w", id, credit.ErrInstallmentNotFound)
	}
	return rows[0], nil
}

func (s *Store) queryInstallments(ctx context.Context, query string, args ...any) ([]credit.Installment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var installments []credit.Installment
	for rows.Next() {
		var (
			inst                          credit.Installment
			dueDate                       string
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

// AppendCollections appends ledger entries atomically.
func (s *Store) AppendCollections(ctx context.Context, entries []credit.Collection) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, entry := range entries {
		code, err := s.types.Code(entry.Type)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			entry.InstallmentID,
			entry.Date.String(),
			code,
			entry.Capital.String(),
			entry.Interest.String(),
			entry.Tax.String(),
			entry.Total.String(),
		); err != nil {
			return fmt.Errorf("failed to insert collection: %w", err)
		}
	}

	return tx.Commit()
}

// Collections returns the full collection ledger, sorted by ID.
func (s *Store) Collections(ctx context.Context) ([]credit.Collection, error) {
	query := `
		SELECT id, installment_id, to_char(date, 'YYYY-MM-DD'), type_code, capital, interest, tax, total
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
			entry                         credit.Collection
			date                          string
			code                          int
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
	_, err := s.db.ExecContext(ctx, "TRUNCATE collections, installments, credits RESTART IDENTITY")
	return err
}

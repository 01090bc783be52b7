// Package store persists accounts and their role profiles over database/sql.
// The same queries run against Postgres (lib/pq) in production and SQLite
// (modernc) for local development and tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/digibiomics/LungSense-main/config"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	ErrNotFound    = errors.New("store: not found")
	ErrConflict    = errors.New("store: unique constraint violated")
	ErrUnavailable = errors.New("store: unavailable")
	ErrTimeout     = errors.New("store: timeout")
)

// ConflictError names the column whose uniqueness was violated.
type ConflictError struct {
	Table  string
	Column string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: duplicate %s.%s", e.Table, e.Column)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

type Dialect string

const (
	DialectPostgres Dialect = config.DriverPostgres
	DialectSQLite   Dialect = config.DriverSQLite
)

// rebind rewrites ? placeholders into $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a DBTX to its dialect and per-call deadline.
type conn struct {
	db      DBTX
	dialect Dialect
	timeout time.Duration
	now     func() time.Time
}

func (c conn) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.dialect.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.dialect.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

// Store owns the database handle. It is safe for concurrent use.
type Store struct {
	sqlDB *sql.DB
	conn
}

func New(db *sql.DB, dialect Dialect, queryTimeout time.Duration) (*Store, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &Store{
		sqlDB: db,
		conn:  conn{db: db, dialect: dialect, timeout: queryTimeout, now: time.Now},
	}, nil
}

// Open connects to the configured database and applies bundled migrations.
func Open(cfg config.Database) (*Store, error) {
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(db, Dialect(cfg.Driver), cfg.QueryTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// SetClock overrides the timestamp source used for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return classify(ctx, s.sqlDB.PingContext(ctx))
}

func (s *Store) Accounts() *AccountStore {
	return &AccountStore{conn: s.conn}
}

func (s *Store) Profiles() *ProfileStore {
	return &ProfileStore{conn: s.conn}
}

// Tx exposes both stores bound to one transaction.
type Tx struct {
	Accounts *AccountStore
	Profiles *ProfileStore
}

// WithTx runs fn in a single transaction bound to ctx and the store's query
// timeout. fn must use the context it is given. Any error from fn, or a
// panic, rolls back every write made through tx.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify(ctx, fmt.Errorf("start transaction: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	c := s.conn
	c.db = sqlTx
	if err = fn(ctx, &Tx{Accounts: &AccountStore{conn: c}, Profiles: &ProfileStore{conn: c}}); err != nil {
		return txErr(ctx, err)
	}
	if err = sqlTx.Commit(); err != nil {
		return classify(ctx, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// txErr reports a statement that failed because the transaction's deadline
// passed as ErrTimeout, whatever the driver said.
func txErr(ctx context.Context, err error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, sql.ErrTxDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// classify maps driver errors onto the store's sentinel errors so callers
// never see driver types.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if conflict := uniqueViolation(err); conflict != nil {
		return conflict
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func uniqueViolation(err error) *ConflictError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return conflictFromConstraint(pqErr.Table, pqErr.Constraint)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return conflictFromMessage(sqliteErr.Error())
		}
	}
	return nil
}

// conflictFromConstraint derives the column from Postgres' <table>_<column>_key
// naming convention.
func conflictFromConstraint(table, constraint string) *ConflictError {
	column := strings.TrimSuffix(strings.TrimPrefix(constraint, table+"_"), "_key")
	if column == "pkey" {
		column = "id"
	}
	return &ConflictError{Table: table, Column: column}
}

// conflictFromMessage parses "UNIQUE constraint failed: accounts.email".
func conflictFromMessage(msg string) *ConflictError {
	const marker = "constraint failed: "
	idx := strings.LastIndex(msg, marker)
	if idx < 0 {
		return &ConflictError{}
	}
	target := msg[idx+len(marker):]
	target, _, _ = strings.Cut(target, ",")
	target, _, _ = strings.Cut(target, " ")
	table, column, _ := strings.Cut(strings.TrimSpace(target), ".")
	return &ConflictError{Table: table, Column: column}
}

// timePrecision matches what toMillis keeps, so returned structs equal what a
// later read would produce.
const timePrecision = time.Millisecond

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

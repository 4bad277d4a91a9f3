package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// DB owns the connection pool.
type DB struct {
	conn *sql.DB
	*Store
}

// NewDB opens the SQLite database at path and applies pending migrations.
// ":memory:" gives a private in-memory database.
func NewDB(path string) (*DB, error) {
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")

	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if !memory {
		pragmas += "&_pragma=journal_mode(WAL)"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	conn, err := sql.Open("sqlite", path+sep+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// every new connection would be a fresh empty database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, Store: &Store{q: conn}}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Acquire checks a dedicated connection out of the pool for the lifetime of
// one request. The caller must Release it.
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	c, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Scope{Store: &Store{q: c}, conn: c}, nil
}

// Scope is a Store bound to a single connection.
type Scope struct {
	*Store
	conn *sql.Conn
}

// Release returns the connection to the pool. Safe to call more than once.
func (s *Scope) Release() error {
	err := s.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Store runs queries against a pool, a dedicated connection or a transaction.
type Store struct {
	q querier
}

// WithTx runs fn inside a transaction. Any error from fn rolls it back.
// Calling WithTx on a Store that is already transactional reuses the
// current transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	b, ok := s.q.(txBeginner)
	if !ok {
		return fn(s)
	}

	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TimeRange is a half-open interval [From, To). Zero bounds are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) where(column string, args []any) (string, []any) {
	var clause string
	if !r.From.IsZero() {
		clause += " AND " + column + " >= ?"
		args = append(args, utc(r.From))
	}
	if !r.To.IsZero() {
		clause += " AND " + column + " < ?"
		args = append(args, utc(r.To))
	}
	return clause, args
}

// Times are stored in UTC so that their text form sorts chronologically.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

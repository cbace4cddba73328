package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/spec-kit/records-service/internal/storage"
)

// executor is the narrow statement surface a Store needs from a driver.
type executor interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Scanner
	Query(ctx context.Context, query string, args []any, each func(Scanner) error) error
	Close()
}

// dialect captures what differs between engines: placeholders and how
// driver errors are recognized.
type dialect interface {
	Name() string
	Placeholder(n int) string
	IsNoRows(err error) bool
	IsUniqueViolation(err error) bool
	IsAlreadyExists(err error) bool
	IsUnavailable(err error) bool
}

// Driver pairs a dialect with a way to dial its executor.
type Driver struct {
	dialect dialect
	dial    storage.DialFunc[executor]
}

// Postgres builds a driver over a pgx pool.
func Postgres(dial func(ctx context.Context) (*pgxpool.Pool, error)) Driver {
	return Driver{
		dialect: postgresDialect{},
		dial: func(ctx context.Context) (executor, error) {
			pool, err := dial(ctx)
			if err != nil {
				return nil, err
			}
			return pgxExecutor{pool: pool}, nil
		},
	}
}

// SQLite builds a driver over a database/sql handle opened with the
// modernc.org/sqlite driver.
func SQLite(dial func(ctx context.Context) (*sql.DB, error)) Driver {
	return Driver{
		dialect: sqliteDialect{},
		dial: func(ctx context.Context) (executor, error) {
			db, err := dial(ctx)
			if err != nil {
				return nil, err
			}
			return sqlExecutor{db: db}, nil
		},
	}
}

type pgxExecutor struct {
	pool *pgxpool.Pool
}

func (e pgxExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := e.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (e pgxExecutor) QueryRow(ctx context.Context, query string, args ...any) Scanner {
	return e.pool.QueryRow(ctx, query, args...)
}

func (e pgxExecutor) Query(ctx context.Context, query string, args []any, each func(Scanner) error) error {
	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (e pgxExecutor) Close() {
	e.pool.Close()
}

type sqlExecutor struct {
	db *sql.DB
}

func (e sqlExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e sqlExecutor) QueryRow(ctx context.Context, query string, args ...any) Scanner {
	return e.db.QueryRowContext(ctx, query, args...)
}

func (e sqlExecutor) Query(ctx context.Context, query string, args []any, each func(Scanner) error) error {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (e sqlExecutor) Close() {
	_ = e.db.Close()
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsAlreadyExists covers duplicate_table, duplicate_object and the pg_type
// race two concurrent CREATE TABLE IF NOT EXISTS statements can hit.
func (postgresDialect) IsAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42P07", "42710":
		return true
	case "23505":
		return pgErr.ConstraintName == "pg_type_typname_nsp_index"
	}
	return false
}

func (postgresDialect) IsUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 connection exceptions, shutdowns, too many connections
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03", pgErr.Code == "53300":
			return true
		}
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	return isNetworkError(err) || strings.Contains(err.Error(), "closed pool")
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(n int) string { return fmt.Sprintf("?%d", n) }

func (sqliteDialect) IsNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func (sqliteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (sqliteDialect) IsAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func (sqliteDialect) IsUnavailable(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return true
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_IOERR:
			return true
		}
		return false
	}
	return isNetworkError(err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

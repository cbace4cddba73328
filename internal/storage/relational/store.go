// Package relational implements the storage capability on a single SQL table,
// one parameterized autocommit statement per operation.
package relational

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/persistence"
	"github.com/spec-kit/records-service/internal/storage"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

//go:embed schema
var schemaFS embed.FS

type queries struct {
	insert string
	get    string
	list   string
	update string
	delete string
}

// Store is a relational storage adapter for one table.
type Store[T any] struct {
	table   Table[T]
	dialect dialect
	conn    *storage.Conn[executor]
	queries queries
	logger  *zap.Logger
}

var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

// New builds a store; the connection is dialed on first use.
func New[T any](table Table[T], driver Driver, logger *zap.Logger) *Store[T] {
	return &Store[T]{
		table:   table,
		dialect: driver.dialect,
		conn:    storage.NewConn(driver.dial, func(e executor) { e.Close() }),
		queries: buildQueries(table, driver.dialect),
		logger:  logger.With(zap.String("table", table.Name), zap.String("dialect", driver.dialect.Name())),
	}
}

func buildQueries[T any](t Table[T], d dialect) queries {
	cols := strings.Join(t.Columns, ", ")

	values := make([]string, len(t.Columns))
	for i := range t.Columns {
		values[i] = d.Placeholder(i + 1)
	}

	sets := make([]string, len(t.Mutable))
	for i, col := range t.Mutable {
		sets[i] = fmt.Sprintf("%s = %s", col, d.Placeholder(i+1))
	}

	return queries{
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			t.Name, cols, strings.Join(values, ", "), cols),
		get: fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			cols, t.Name, t.Key, d.Placeholder(1)),
		list: fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
			cols, t.Name, t.OrderBy),
		update: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING %s",
			t.Name, strings.Join(sets, ", "), t.Key, d.Placeholder(len(t.Mutable)+1), cols),
		delete: fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			t.Name, t.Key, d.Placeholder(1)),
	}
}

// Initialize creates the table when missing. A table that already exists is
// not an error.
func (s *Store[T]) Initialize(ctx context.Context) error {
	db, gen, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	dir := path.Join("schema", s.dialect.Name(), s.table.Name)
	err = persistence.ApplySchema(ctx, schemaFS, dir, func(ctx context.Context, stmt string) error {
		if _, err := db.Exec(ctx, stmt); err != nil && !s.dialect.IsAlreadyExists(err) {
			return err
		}
		return nil
	}, s.logger)
	if err != nil {
		return s.fail(ctx, gen, "initialize", err)
	}
	return nil
}

func (s *Store[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	db, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, err
	}
	created, err := s.table.Scan(db.QueryRow(ctx, s.queries.insert, s.table.Values(record)...))
	if err != nil {
		return zero, s.fail(ctx, gen, "create", err)
	}
	return created, nil
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	db, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, false, err
	}
	record, err := s.table.Scan(db.QueryRow(ctx, s.queries.get, id))
	if err != nil {
		if s.dialect.IsNoRows(err) {
			return zero, false, nil
		}
		return zero, false, s.fail(ctx, gen, "get", err)
	}
	return record, true, nil
}

func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	db, gen, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}
	records := []T{}
	err = db.Query(ctx, s.queries.list, nil, func(row Scanner) error {
		record, err := s.table.Scan(row)
		if err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, gen, "list", err)
	}
	return records, nil
}

// Update writes only the mutable columns; the key comes from id.
func (s *Store[T]) Update(ctx context.Context, id string, record T) (T, bool, error) {
	var zero T
	db, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, false, err
	}
	args := s.mutableValues(record)
	args = append(args, id)
	updated, err := s.table.Scan(db.QueryRow(ctx, s.queries.update, args...))
	if err != nil {
		if s.dialect.IsNoRows(err) {
			return zero, false, nil
		}
		return zero, false, s.fail(ctx, gen, "update", err)
	}
	return updated, true, nil
}

func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	db, gen, err := s.conn.Get(ctx)
	if err != nil {
		return false, err
	}
	affected, err := db.Exec(ctx, s.queries.delete, id)
	if err != nil {
		return false, s.fail(ctx, gen, "delete", err)
	}
	return affected > 0, nil
}

func (s *Store[T]) Close() error {
	return s.conn.Close()
}

func (s *Store[T]) mutableValues(record T) []any {
	all := s.table.Values(record)
	index := make(map[string]int, len(s.table.Columns))
	for i, col := range s.table.Columns {
		index[col] = i
	}
	out := make([]any, 0, len(s.table.Mutable)+1)
	for _, col := range s.table.Mutable {
		out = append(out, all[index[col]])
	}
	return out
}

// fail classifies a driver error and drops the connection of generation gen
// when the engine could not be reached. An expired or cancelled ctx is
// reported as Unavailable but keeps the connection.
func (s *Store[T]) fail(ctx context.Context, gen uint64, op string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", op, s.table.Name, err)
	switch {
	case s.dialect.IsUniqueViolation(err):
		return apperrors.NewConflict(fmt.Sprintf("%s already exists", strings.TrimSuffix(s.table.Name, "s")), wrapped)
	case ctx.Err() != nil:
		return apperrors.NewUnavailable(wrapped)
	case s.dialect.IsUnavailable(err):
		s.logger.Warn("backend unreachable; dropping connection", zap.String("op", op), zap.Error(err))
		return s.conn.Observe(ctx, gen, apperrors.NewUnavailable(wrapped))
	default:
		return apperrors.NewBackendError(wrapped)
	}
}

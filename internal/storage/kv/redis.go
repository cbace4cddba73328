// Package kv implements the storage capability on key-value engines. Records
// are stored whole, keyed by the schema key, and listings are sorted in
// process.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/storage"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

const maxUpdateAttempts = 5

// RedisStore keeps one hash per table: field is the record key, value its
// JSON encoding.
type RedisStore[T any] struct {
	schema domain.Schema[T]
	conn   *storage.Conn[*redis.Client]
	prefix string
	table  string
	logger *zap.Logger
}

var _ storage.Store[struct{}] = (*RedisStore[struct{}])(nil)

// NewRedisStore builds a store; the client is dialed on first use.
func NewRedisStore[T any](schema domain.Schema[T], dial storage.DialFunc[*redis.Client], prefix, table string, logger *zap.Logger) *RedisStore[T] {
	return &RedisStore[T]{
		schema: schema,
		conn:   storage.NewConn(dial, func(c *redis.Client) { _ = c.Close() }),
		prefix: prefix,
		table:  table,
		logger: logger.With(zap.String("table", table), zap.String("backend", "redis")),
	}
}

func (s *RedisStore[T]) hashKey() string {
	return s.prefix + ":" + s.table
}

func (s *RedisStore[T]) tablesKey() string {
	return s.prefix + ":tables"
}

// Initialize verifies the server answers and registers the table.
func (s *RedisStore[T]) Initialize(ctx context.Context) error {
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return s.fail(ctx, gen, "initialize", err)
	}
	if err := client.SAdd(ctx, s.tablesKey(), s.table).Err(); err != nil {
		return s.fail(ctx, gen, "initialize", err)
	}
	s.logger.Info("table ready")
	return nil
}

func (s *RedisStore[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return zero, apperrors.NewInternalError(fmt.Errorf("encode %s: %w", s.schema.Resource(), err))
	}
	ok, err := client.HSetNX(ctx, s.hashKey(), s.schema.Key(record), raw).Result()
	if err != nil {
		return zero, s.fail(ctx, gen, "create", err)
	}
	if !ok {
		return zero, apperrors.NewConflict(fmt.Sprintf("%s already exists", s.schema.Resource()), nil)
	}
	return record, nil
}

func (s *RedisStore[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, false, err
	}
	raw, err := client.HGet(ctx, s.hashKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, s.fail(ctx, gen, "get", err)
	}
	record, err := s.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return record, true, nil
}

func (s *RedisStore[T]) List(ctx context.Context) ([]T, error) {
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}
	values, err := client.HVals(ctx, s.hashKey()).Result()
	if err != nil {
		return nil, s.fail(ctx, gen, "list", err)
	}
	records := make([]T, 0, len(values))
	for _, raw := range values {
		record, err := s.decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool { return s.schema.Less(records[i], records[j]) })
	return records, nil
}

// Update replaces the stored record under WATCH so a concurrent delete is
// never resurrected. Immutable fields come from the stored copy.
func (s *RedisStore[T]) Update(ctx context.Context, id string, record T) (T, bool, error) {
	var zero T
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, false, err
	}

	var (
		merged T
		found  bool
	)
	txn := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, s.hashKey(), id).Bytes()
		if errors.Is(err, redis.Nil) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		stored, err := s.decode(raw)
		if err != nil {
			return err
		}
		merged = s.schema.Merge(stored, record)
		encoded, err := json.Marshal(merged)
		if err != nil {
			return apperrors.NewInternalError(fmt.Errorf("encode %s: %w", s.schema.Resource(), err))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.hashKey(), id, encoded)
			return nil
		})
		if err == nil {
			found = true
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = client.Watch(ctx, txn, s.hashKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}
	if errors.Is(err, redis.TxFailedErr) {
		return zero, false, apperrors.NewConflict(fmt.Sprintf("%s is being modified concurrently", s.schema.Resource()), err)
	}
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return zero, false, err
		}
		return zero, false, s.fail(ctx, gen, "update", err)
	}
	if !found {
		return zero, false, nil
	}
	return merged, true, nil
}

func (s *RedisStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return false, err
	}
	removed, err := client.HDel(ctx, s.hashKey(), id).Result()
	if err != nil {
		return false, s.fail(ctx, gen, "delete", err)
	}
	return removed > 0, nil
}

func (s *RedisStore[T]) Close() error {
	return s.conn.Close()
}

func (s *RedisStore[T]) decode(raw []byte) (T, error) {
	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return record, apperrors.NewBackendError(fmt.Errorf("decode %s: %w", s.schema.Resource(), err))
	}
	return record, nil
}

func (s *RedisStore[T]) fail(ctx context.Context, gen uint64, op string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", op, s.table, err)
	if ctx.Err() != nil {
		return apperrors.NewUnavailable(wrapped)
	}
	if isRedisUnavailable(err) {
		s.logger.Warn("backend unreachable; dropping connection", zap.String("op", op), zap.Error(err))
		return s.conn.Observe(ctx, gen, apperrors.NewUnavailable(wrapped))
	}
	return apperrors.NewBackendError(wrapped)
}

func isRedisUnavailable(err error) bool {
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "LOADING") || strings.Contains(msg, "connection pool timeout")
}

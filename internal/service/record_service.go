package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/events"
	"github.com/spec-kit/records-service/internal/storage"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

// RecordService coordinates validation and persistence for one record type.
type RecordService[T any] struct {
	schema     domain.Schema[T]
	store      storage.Store[T]
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// RecordDependencies bundles collaborators for the record service.
type RecordDependencies[T any] struct {
	Schema     domain.Schema[T]
	Store      storage.Store[T]
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewRecordService creates the service.
func NewRecordService[T any](deps RecordDependencies[T]) *RecordService[T] {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &RecordService[T]{
		schema:     deps.Schema,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Resource returns the singular resource name.
func (s *RecordService[T]) Resource() string {
	return s.schema.Resource()
}

// Create validates fields and persists a new record.
func (s *RecordService[T]) Create(ctx context.Context, fields map[string]any) (T, error) {
	var zero T
	record, err := s.schema.Decode(fields, s.now())
	if err != nil {
		return zero, validationFailure(err)
	}
	created, err := s.store.Create(ctx, record)
	if err != nil {
		return zero, err
	}
	s.publish(ctx, events.EventRecordCreated, s.schema.Key(created), created)
	return created, nil
}

// Get returns the record identified by id.
func (s *RecordService[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	key := s.schema.NormalizeKey(id)
	record, found, err := s.store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, s.notFound(key)
	}
	return record, nil
}

// List returns every record in the variant's order.
func (s *RecordService[T]) List(ctx context.Context) ([]T, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Update replaces the mutable fields of the record identified by id. The body
// is validated before the record is looked up.
func (s *RecordService[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	var zero T
	key := s.schema.NormalizeKey(id)
	record, err := s.schema.DecodeUpdate(key, fields, s.now())
	if err != nil {
		return zero, validationFailure(err)
	}
	updated, found, err := s.store.Update(ctx, key, record)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, s.notFound(key)
	}
	s.publish(ctx, events.EventRecordUpdated, key, updated)
	return updated, nil
}

// Delete removes the record identified by id.
func (s *RecordService[T]) Delete(ctx context.Context, id string) error {
	key := s.schema.NormalizeKey(id)
	deleted, err := s.store.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !deleted {
		return s.notFound(key)
	}
	s.publish(ctx, events.EventRecordDeleted, key, nil)
	return nil
}

func (s *RecordService[T]) notFound(key string) error {
	return apperrors.NewNotFound(s.schema.Resource(), map[string]string{s.schema.KeyField(): key})
}

func (s *RecordService[T]) publish(ctx context.Context, eventType events.EventType, key string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Resource:  s.schema.Resource(),
		RecordID:  key,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func validationFailure(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return apperrors.NewValidationError("validation failed", verr.Fields)
	}
	return apperrors.ToDomainError(err)
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/events"
)

// AuditService writes record lifecycle events to the log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventRecordCreated, a.handle)
	a.dispatcher.Subscribe(events.EventRecordUpdated, a.handle)
	a.dispatcher.Subscribe(events.EventRecordDeleted, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("resource", event.Resource),
		zap.String("record_id", event.RecordID),
		zap.Time("timestamp", event.Timestamp),
	)
	return nil
}

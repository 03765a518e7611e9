package service

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/storefront/internal/events"
)

// AuditService writes one structured log line per account event.
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
	for _, t := range []events.EventType{
		events.EventUserRegistered,
		events.EventUserLoggedIn,
		events.EventProfileUpdated,
		events.EventProfileImageReplaced,
		events.EventProfileImageRemoved,
	} {
		a.dispatcher.Subscribe(t, a.record(zapcore.InfoLevel))
	}
	a.dispatcher.Subscribe(events.EventLoginFailed, a.record(zapcore.WarnLevel))
}

func (a *AuditService) record(level zapcore.Level) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		if ce := a.logger.Check(level, string(event.Type)); ce != nil {
			ce.Write(
				zap.String("event_id", event.ID),
				zap.String("user_id", event.UserID),
				zap.Time("at", event.Timestamp),
				zap.Any("payload", event.Payload),
			)
		}
		return nil
	}
}

package service

import (
	"context"
	"log/slog"

	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/audit"
	"otapproval/pkg/platform/device"
	"otapproval/pkg/requestcontext"
)

// auditEmitter forwards lifecycle facts to the platform audit publisher.
// The request's own audit log is authoritative, so publish failures are
// logged and never fail the operation.
type auditEmitter struct {
	publisher AuditPublisher
	logger    *slog.Logger
}

func (e *auditEmitter) emit(ctx context.Context, event audit.AuditEvent, requestID id.RequestID, actor, decision, reason string) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.Emit(ctx, audit.Event{
		Category:      event.Category(),
		RequestID:     requestID,
		Actor:         actor,
		Action:        string(event),
		Decision:      decision,
		Reason:        reason,
		CorrelationID: requestcontext.RequestID(ctx),
		ClientIP:      requestcontext.ClientIP(ctx),
		Device:        device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	})
	if err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "failed to publish audit event",
			"request_id", requestcontext.RequestID(ctx),
			"event", string(event),
			"error", err,
		)
	}
}

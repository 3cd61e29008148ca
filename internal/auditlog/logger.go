package auditlog

import (
	"context"

	"go.uber.org/zap"
)

// Appender persists log entries.
type Appender interface {
	Append(ctx context.Context, e Entry) (Entry, error)
}

// Logger records payment lifecycle events. A failed write is reported to
// zap and swallowed so the payment flow continues.
type Logger struct {
	store Appender
	log   *zap.Logger
}

// NewLogger creates a Logger.
func NewLogger(store Appender, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{store: store, log: log}
}

// Record appends one entry.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.store == nil {
		return
	}
	if _, err := l.store.Append(ctx, e); err != nil {
		l.log.Error("payment log write failed",
			zap.Error(err),
			zap.String("correlation_id", e.CorrelationID),
			zap.String("gateway_order_id", e.GatewayOrderID),
			zap.String("event_type", string(e.EventType)),
		)
	}
}

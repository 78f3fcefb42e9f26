package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger writes structured audit entries for mutations of the catalog and
// order book. Entries go through the application logger; shipping them to a
// durable sink is the log pipeline's job.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates an audit logger
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

type requestIDKey struct{}

// WithRequestID attaches a request ID for audit entries to pick up
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID, or "" when absent
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// LogAction records a single audited action
func (al *Logger) LogAction(ctx context.Context, username, action, resource string, resourceID int64, status, details string) {
	requestID := RequestIDFromContext(ctx)

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.Int64("resource_id", resourceID),
		slog.String("username", username),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

// LogOrderPlaced records a successful or rejected order placement
func (al *Logger) LogOrderPlaced(ctx context.Context, username string, orderID int64, status, details string) {
	al.LogAction(ctx, username, "place_order", "order", orderID, status, details)
}

// LogProductMutation records a create, update or delete of a catalog entry
func (al *Logger) LogProductMutation(ctx context.Context, username, action string, productID int64, status string) {
	al.LogAction(ctx, username, action, "product", productID, status, "")
}

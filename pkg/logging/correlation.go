package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type correlationKey struct{}

// CorrelationHeader is the transport header carrying the correlation id.
const CorrelationHeader = "X-Correlation-ID"

// WithCorrelationID attaches a correlation id to the context, generating
// one when id is empty. The id lives only for the request that created it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id bound to the context, or ""
// when none was attached.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// WithRequest returns a logger tagged with the context's correlation id so
// every event for one request carries the same identifier.
func WithRequest(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := CorrelationID(ctx); id != "" {
		return logger.With().Str("correlation_id", id).Logger()
	}
	return logger
}

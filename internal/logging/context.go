package logging

import "context"

type requestIDKey struct{}

// WithRequestID attaches id to ctx so events emitted further down carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// KeyGenerated records that a key was drawn for cipher while serving the
// request in ctx. The key itself is never logged.
func (l *AuditLogger) KeyGenerated(ctx context.Context, cipher string) {
	if l == nil {
		return
	}
	_ = l.Emit(AuditEvent{
		RequestID: RequestIDFromContext(ctx),
		EventType: EventKeyGenerated,
		Decision:  DecisionInfo,
		Metadata:  map[string]any{"cipher": cipher},
	})
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/RowanDark/cipherlab/internal/logging"
	"github.com/RowanDark/cipherlab/internal/observability/metrics"
)

// RequestIDHeader carries the request ID in both directions. A client may
// supply its own UUID; anything else is replaced.
const RequestIDHeader = "X-Request-ID"

const unmatchedEndpoint = "unmatched"

type stateKey struct{}

// requestState is filled in by handlers so the outer middleware can report
// how the request ended.
type requestState struct {
	err  error
	kind string
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey{}).(*requestState)
	return st
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestID(r *http.Request) string {
	if id, err := uuid.Parse(r.Header.Get(RequestIDHeader)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func (s *Server) endpointLabel(path string) string {
	if _, ok := s.endpoints[path]; ok {
		return path
	}
	return unmatchedEndpoint
}

// quiet reports endpoints that are scraped often and not worth auditing.
func quiet(endpoint string) bool {
	return endpoint == "/healthz" || endpoint == "/metrics"
}

// track assigns the request ID, recovers panics and records metrics and one
// audit event per request.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestID(r)
		w.Header().Set(RequestIDHeader, id)
		endpoint := s.endpointLabel(r.URL.Path)
		done := metrics.TrackInflight(transport)

		st := &requestState{}
		ctx := context.WithValue(r.Context(), stateKey{}, st)
		ctx = logging.WithRequestID(ctx, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					done()
					panic(p)
				}
				st.err = fmt.Errorf("panic: %v", p)
				st.kind = "internal"
				if !rec.wroteHeader {
					s.writeJSON(rec, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"})
				}
			}
			done()
			metrics.RecordRequest(transport, endpoint, strconv.Itoa(rec.status))
			metrics.ObserveRequestDuration(transport, endpoint, time.Since(start))
			if st.err != nil {
				metrics.RecordError(transport, endpoint, st.kind)
			}
			if !quiet(endpoint) {
				s.logger.Request(id, endpoint, rec.status, st.err, map[string]any{
					"method":      r.Method,
					"transport":   transport,
					"duration_ms": time.Since(start).Milliseconds(),
				})
			}
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// rateLimit applies the shared token bucket to everything except health
// and metrics scrapes.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if quiet(r.URL.Path) || s.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		metrics.RecordRateLimited(transport)
		if s.logger != nil {
			_ = s.logger.Emit(logging.AuditEvent{
				RequestID: logging.RequestIDFromContext(r.Context()),
				EventType: logging.EventRateLimited,
				Decision:  logging.DecisionDeny,
				Metadata:  map[string]any{"endpoint": r.URL.Path, "transport": transport},
			})
		}
		w.Header().Set("Retry-After", "1")
		s.writeError(w, r, newStatusError(http.StatusTooManyRequests, kindRateLimited, "rate limit exceeded"))
	})
}

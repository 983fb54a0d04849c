package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/RowanDark/cipherlab/internal/cipher"
	"github.com/RowanDark/cipherlab/internal/logging"
	"github.com/RowanDark/cipherlab/internal/service"
)

const (
	transport = "http"

	defaultMaxBodyBytes    = 1 << 20
	defaultShutdownTimeout = 5 * time.Second
)

// Config configures the REST API server.
type Config struct {
	Addr            string
	Service         *service.Service
	Logger          *logging.AuditLogger
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// RateLimit is the sustained requests per second across all clients;
	// zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server exposes the cipher engine over HTTP/JSON.
type Server struct {
	cfg       Config
	svc       *service.Service
	logger    *logging.AuditLogger
	limiter   *rate.Limiter
	endpoints map[string]struct{}
	handler   http.Handler
}

// NewServer constructs a REST API server using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("api address must be provided")
	}
	if cfg.Service == nil {
		return nil, errors.New("cipher service is required")
	}
	if cfg.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("max body bytes must not be negative, got %d", cfg.MaxBodyBytes)
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return nil, errors.New("rate limit settings must not be negative")
	}

	s := &Server{
		cfg:       cfg,
		svc:       cfg.Service,
		logger:    cfg.Logger,
		endpoints: make(map[string]struct{}),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})
	s.handler = s.track(corsHandler.Handler(s.rateLimit(s.routes())))
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and blocks until ctx is cancelled
// or a fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled, then drains
// in-flight requests for up to the shutdown timeout. Cleartext HTTP/2 is
// accepted alongside HTTP/1.1.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	httpServer := &http.Server{
		Handler:           h2c.NewHandler(s.handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := httpServer.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		if s.logger != nil {
			_ = s.logger.Emit(logging.AuditEvent{EventType: logging.EventRequestRejected, Decision: logging.DecisionDeny, Reason: err.Error()})
		}
	}
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Transport-level error kinds, alongside the cipher taxonomy.
const (
	kindNotFound         = "not_found"
	kindMethodNotAllowed = "method_not_allowed"
	kindPayloadTooLarge  = "payload_too_large"
	kindRateLimited      = "rate_limited"
	kindCanceled         = "canceled"
	kindTimeout          = "timeout"
)

// statusError carries an HTTP status decided before the service was called.
type statusError struct {
	status int
	kind   string
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }

func (e *statusError) Unwrap() error { return e.err }

func newStatusError(status int, kind, format string, args ...any) error {
	return &statusError{status: status, kind: kind, err: fmt.Errorf(format, args...)}
}

// classify maps err onto an HTTP status, a wire kind and a client-safe
// message.
func classify(err error) (int, string, string) {
	var se *statusError
	if errors.As(err, &se) {
		return se.status, se.kind, se.Error()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, kindCanceled, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, kindTimeout, "request timeout"
	}
	kind := cipher.KindOf(err)
	switch kind {
	case cipher.KindInvalidParameter, cipher.KindMalformedInput:
		return http.StatusBadRequest, string(kind), err.Error()
	case cipher.KindInvalidKey:
		return http.StatusUnprocessableEntity, string(kind), err.Error()
	default:
		return http.StatusInternalServerError, string(cipher.KindInternal), "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, msg := classify(err)
	if st := stateFrom(r.Context()); st != nil {
		st.err = err
		st.kind = kind
	}
	s.writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

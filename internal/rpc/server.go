// Package rpc serves the cipher service over gRPC. Each HTTP operation has a
// unary method on cipherlab.v1.CipherEngine whose request and response are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cipherlab/internal/logging"
	"github.com/RowanDark/cipherlab/internal/observability/metrics"
	"github.com/RowanDark/cipherlab/internal/service"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "cipherlab.v1.CipherEngine"

	// RequestIDMetadata is the metadata key carrying the request ID.
	RequestIDMetadata = "x-request-id"

	transport = "grpc"

	defaultShutdownTimeout = 5 * time.Second
)

// Method names, as they appear after the service name in the full method.
const (
	MethodCaesarEncrypt         = "CaesarEncrypt"
	MethodCaesarDecrypt         = "CaesarDecrypt"
	MethodCaesarAttack          = "CaesarAttack"
	MethodMonoalphabeticEncrypt = "MonoalphabeticEncrypt"
	MethodMonoalphabeticDecrypt = "MonoalphabeticDecrypt"
	MethodMonoalphabeticAttack  = "MonoalphabeticAttack"
	MethodDESEncrypt            = "DESEncrypt"
	MethodDESDecrypt            = "DESDecrypt"
	MethodGenerateKey           = "GenerateKey"
	MethodListOperations        = "ListOperations"
	MethodRunPipeline           = "RunPipeline"
)

// Config configures the gRPC server.
type Config struct {
	Service         *service.Service
	Logger          *logging.AuditLogger
	MaxMessageBytes int
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
}

// Server owns a grpc.Server with the cipher engine and health services
// registered.
type Server struct {
	cfg     Config
	svc     *service.Service
	logger  *logging.AuditLogger
	limiter *rate.Limiter
	grpc    *grpc.Server
	health  *health.Server
}

type unaryFunc func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// engineServer is the handler type recorded in the service descriptor.
type engineServer interface {
	method(name string) (unaryFunc, bool)
}

// NewServer builds the gRPC server and registers its services.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("cipher service is required")
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return nil, errors.New("rate limit settings must not be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		cfg:    cfg,
		svc:    cfg.Service,
		logger: cfg.Logger,
		health: health.NewServer(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.observeUnary, s.recoverUnary)}
	if cfg.MaxMessageBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.MaxMessageBytes))
	}
	s.grpc = grpc.NewServer(opts...)
	s.grpc.RegisterService(s.serviceDesc(), s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

func (s *Server) method(name string) (unaryFunc, bool) {
	switch name {
	case MethodCaesarEncrypt:
		return bind(s.svc.CaesarEncrypt), true
	case MethodCaesarDecrypt:
		return bind(s.svc.CaesarDecrypt), true
	case MethodCaesarAttack:
		return bind(s.svc.CaesarAttack), true
	case MethodMonoalphabeticEncrypt:
		return bind(s.svc.SubstitutionEncrypt), true
	case MethodMonoalphabeticDecrypt:
		return bind(s.svc.SubstitutionDecrypt), true
	case MethodMonoalphabeticAttack:
		return bind(s.svc.SubstitutionAttack), true
	case MethodDESEncrypt:
		return bind(s.svc.DESEncrypt), true
	case MethodDESDecrypt:
		return bind(s.svc.DESDecrypt), true
	case MethodGenerateKey:
		return bind(s.svc.GenerateKey), true
	case MethodListOperations:
		return bind(s.listOperations), true
	case MethodRunPipeline:
		return bind(s.svc.RunPipeline), true
	}
	return nil, false
}

var methodNames = []string{
	MethodCaesarEncrypt, MethodCaesarDecrypt, MethodCaesarAttack,
	MethodMonoalphabeticEncrypt, MethodMonoalphabeticDecrypt, MethodMonoalphabeticAttack,
	MethodDESEncrypt, MethodDESDecrypt,
	MethodGenerateKey, MethodListOperations, MethodRunPipeline,
}

func (s *Server) listOperations(_ context.Context, _ struct{}) (map[string]any, error) {
	return map[string]any{"operations": s.svc.Operations()}, nil
}

// bind adapts a typed service call to the Struct-in, Struct-out shape.
func bind[Req, Resp any](call func(context.Context, Req) (Resp, error)) unaryFunc {
	return func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		var req Req
		if err := fromStruct(in, &req); err != nil {
			return nil, err
		}
		resp, err := call(ctx, req)
		if err != nil {
			return nil, err
		}
		return toStruct(resp)
	}
}

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*engineServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "cipherlab/v1/cipher_engine.proto",
	}
	for _, name := range methodNames {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    methodHandler(name),
		})
	}
	return desc
}

func methodHandler(name string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call, ok := srv.(engineServer).method(name)
		if !ok {
			return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", name)
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCServer exposes the underlying server, e.g. for registering extra
// services in tests.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpc
}

// Serve accepts connections on lis until ctx is cancelled. Shutdown marks
// the health service NOT_SERVING, then drains calls for up to the shutdown
// timeout before forcing the server closed.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.health.Shutdown()

		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(s.cfg.ShutdownTimeout):
			s.grpc.Stop()
		}
	}()

	err := s.grpc.Serve(lis)
	close(stopped)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return handler(ctx, req)
}

// observeUnary assigns the request ID, applies the rate limit, converts
// errors to status codes and records metrics and the audit event.
func (s *Server) observeUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	method := path.Base(info.FullMethod)
	id := incomingRequestID(ctx)
	ctx = logging.WithRequestID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadata, id))

	done := metrics.TrackInflight(transport)
	defer done()

	var (
		resp any
		err  error
	)
	if s.limiter != nil && !s.limiter.Allow() {
		metrics.RecordRateLimited(transport)
		if s.logger != nil {
			_ = s.logger.Emit(logging.AuditEvent{
				RequestID: id,
				EventType: logging.EventRateLimited,
				Decision:  logging.DecisionDeny,
				Metadata:  map[string]any{"endpoint": method, "transport": transport},
			})
		}
		err = status.Error(codes.ResourceExhausted, "rate limit exceeded")
	} else {
		resp, err = handler(ctx, req)
	}

	kind, statusErr := toStatus(err)
	code := status.Code(statusErr)
	metrics.RecordRequest(transport, method, code.String())
	metrics.ObserveRequestDuration(transport, method, time.Since(start))
	if err != nil {
		metrics.RecordError(transport, method, kind)
	}
	s.logger.Request(id, method, int(code), err, map[string]any{
		"transport":   transport,
		"code":        code.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if statusErr != nil {
		return nil, statusErr
	}
	return resp, nil
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, v := range md.Get(RequestIDMetadata) {
			if id, err := uuid.Parse(v); err == nil {
				return id.String()
			}
		}
	}
	return uuid.NewString()
}

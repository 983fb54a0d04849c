package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/RowanDark/cipherlab/internal/api"
	"github.com/RowanDark/cipherlab/internal/config"
	"github.com/RowanDark/cipherlab/internal/logging"
	"github.com/RowanDark/cipherlab/internal/rpc"
	"github.com/RowanDark/cipherlab/internal/service"
)

var version = "dev"

type options struct {
	configPath string
	quiet      bool
}

func main() {
	configPath := flag.String("config", "", "additional config file (.toml, .yml or .yaml) applied after the defaults")
	addr := flag.String("addr", "", "address for the HTTP API to listen on (overrides config)")
	grpcAddr := flag.String("grpc-addr", "", "address for the gRPC server; \"off\" disables it (overrides config)")
	auditLog := flag.String("audit-log", "", "append audit events to this file (overrides config)")
	quiet := flag.Bool("quiet", false, "do not write audit events to stdout")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(options{configPath: *configPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = strings.TrimSpace(*addr)
		case "grpc-addr":
			cfg.GRPCAddr = strings.TrimSpace(*grpcAddr)
			if strings.EqualFold(cfg.GRPCAddr, "off") {
				cfg.GRPCAddr = ""
			}
		case "audit-log":
			cfg.AuditLogPath = strings.TrimSpace(*auditLog)
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, options{quiet: *quiet}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if path := strings.TrimSpace(opts.configPath); path != "" {
		if err := config.LoadFile(&cfg, path); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	httpLis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	defer closeListener(httpLis)

	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
		}
		defer closeListener(grpcLis)
	}

	logger, err := newAuditLogger(cfg, opts.quiet)
	if err != nil {
		return fmt.Errorf("configure audit logger: %w", err)
	}
	defer logger.Close()

	return serve(ctx, cfg, logger, httpLis, grpcLis)
}

// serve runs the HTTP API on httpLis and, when grpcLis is non-nil, the gRPC
// server beside it. Both stop when ctx is cancelled or either one fails.
func serve(ctx context.Context, cfg config.Config, logger *logging.AuditLogger, httpLis, grpcLis net.Listener) error {
	svc, err := service.New(service.Options{
		DefaultShift:   cfg.Caesar.DefaultShift,
		Padding:        cfg.Padding(),
		Workers:        cfg.Analysis.Workers,
		OnKeyGenerated: logger.WithComponent("service").KeyGenerated,
	})
	if err != nil {
		return fmt.Errorf("configure cipher service: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		Addr:            httpLis.Addr().String(),
		Service:         svc,
		Logger:          logger.WithComponent("api"),
		MaxBodyBytes:    cfg.MaxBodyBytes,
		ShutdownTimeout: cfg.ShutdownTimeout,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		RateLimit:       cfg.RateLimit.RPS,
		RateBurst:       cfg.RateLimit.Burst,
	})
	if err != nil {
		return fmt.Errorf("configure api server: %w", err)
	}

	var rpcServer *rpc.Server
	if grpcLis != nil {
		rpcServer, err = rpc.NewServer(rpc.Config{
			Service:         svc,
			Logger:          logger.WithComponent("rpc"),
			MaxMessageBytes: int(cfg.MaxBodyBytes),
			ShutdownTimeout: cfg.ShutdownTimeout,
			RateLimit:       cfg.RateLimit.RPS,
			RateBurst:       cfg.RateLimit.Burst,
		})
		if err != nil {
			return fmt.Errorf("configure grpc server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := apiServer.Serve(gctx, httpLis); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	listening := map[string]any{"phase": "started", "version": version, "http_addr": httpLis.Addr().String()}
	if rpcServer != nil {
		g.Go(func() error {
			if err := rpcServer.Serve(gctx, grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		listening["grpc_addr"] = grpcLis.Addr().String()
	}

	log.Printf("cipherlab %s listening on http://%s", version, httpLis.Addr())
	emitAudit(logger, logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Metadata:  listening,
	})

	err = g.Wait()
	emitAudit(logger, logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"phase": "stopped"},
	})
	return err
}

func closeListener(lis net.Listener) {
	if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("failed to close listener: %v", err)
	}
}

func newAuditLogger(cfg config.Config, quiet bool) (*logging.AuditLogger, error) {
	opts := []logging.Option{}
	path := strings.TrimSpace(cfg.AuditLogPath)
	if quiet {
		opts = append(opts, logging.WithoutStdout())
		if path == "" {
			opts = append(opts, logging.WithWriter(io.Discard))
		}
	}
	if path != "" {
		opts = append(opts, logging.WithFile(path))
	}
	return logging.NewAuditLogger("cipherlabd", opts...)
}

func emitAudit(logger *logging.AuditLogger, event logging.AuditEvent) {
	if logger == nil {
		return
	}
	if err := logger.Emit(event); err != nil {
		fmt.Fprintf(os.Stderr, "audit log error: %v\n", err)
	}
}

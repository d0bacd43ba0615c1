// Package grpc exposes the prediction service over gRPC, next to the
// standard health and reflection services.
package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

const defaultReadinessInterval = 15 * time.Second

var keepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               time.Second,
}

var keepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// Option configures the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger            logging.Logger
	metrics           *prometheus.FormulaMetrics
	tlsConfig         *tls.Config
	listener          net.Listener
	readiness         func(context.Context) error
	readinessInterval time.Duration
}

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics records per-call counters and latencies.
func WithMetrics(m *prometheus.FormulaMetrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithTLSConfig serves TLS instead of plaintext.
func WithTLSConfig(tc *tls.Config) Option {
	return func(o *serverOptions) { o.tlsConfig = tc }
}

// WithListener serves on l instead of binding cfg.Host:cfg.Port.
func WithListener(l net.Listener) Option {
	return func(o *serverOptions) { o.listener = l }
}

// WithReadinessCheck polls check every interval and mirrors the outcome in
// the health service.
func WithReadinessCheck(check func(context.Context) error, interval time.Duration) Option {
	return func(o *serverOptions) {
		o.readiness = check
		if interval > 0 {
			o.readinessInterval = interval
		}
	}
}

// Server owns the gRPC listener and its lifecycle.
type Server struct {
	grpcServer      *grpc.Server
	listener        net.Listener
	health          *health.Server
	opts            *serverOptions
	gracefulTimeout time.Duration

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewServer binds the listener and registers FormulaService, health and,
// when cfg.Debug is set, reflection.
func NewServer(cfg config.GRPCConfig, svc sumformula.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.InvalidParam("prediction service is required")
	}
	o := &serverOptions{readinessInterval: defaultReadinessInterval}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	o.logger = o.logger.Named("grpc")

	lis := o.listener
	if lis == nil {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		var err error
		if lis, err = net.Listen("tcp", addr); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "grpc listen failed").WithDetail(addr)
		}
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(keepalivePolicy),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(o.logger),
			loggingUnaryInterceptor(o.logger),
			metricsUnaryInterceptor(o.metrics),
		),
	}
	if cfg.MaxRecvMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize))
	}
	if o.tlsConfig != nil {
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(o.tlsConfig)))
	}

	gs := grpc.NewServer(serverOpts...)
	gs.RegisterService(&FormulaServiceDesc, NewFormulaServer(svc))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(FormulaServiceName, healthpb.HealthCheckResponse_SERVING)

	if cfg.Debug {
		reflection.Register(gs)
		o.logger.Info("reflection service registered")
	}

	return &Server{
		grpcServer:      gs,
		listener:        lis,
		health:          hs,
		opts:            o,
		gracefulTimeout: cfg.GracefulTimeout,
		stopCh:          make(chan struct{}),
	}, nil
}

// Start serves until Stop.  It blocks.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeConflict, "grpc server already started")
	}
	s.started = true
	s.mu.Unlock()

	if s.opts.readiness != nil {
		go s.watchReadiness()
	}
	s.opts.logger.Info("grpc server starting", logging.String("addr", s.Addr()))
	return s.grpcServer.Serve(s.listener)
}

func (s *Server) watchReadiness() {
	ticker := time.NewTicker(s.opts.readinessInterval)
	defer ticker.Stop()
	for {
		s.probe()
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.readinessInterval)
	defer cancel()
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.opts.readiness(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.opts.logger.Warn("readiness check failed", logging.Err(err))
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(FormulaServiceName, st)
}

// Stop drains in-flight calls, forcing a stop once ctx or the graceful
// timeout expires.  Health reports NOT_SERVING from the start of the drain.
func (s *Server) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.health.Shutdown()

		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if !started {
			_ = s.listener.Close()
			return
		}

		if s.gracefulTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.gracefulTimeout)
			defer cancel()
		}

		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			s.opts.logger.Info("grpc server stopped")
		case <-ctx.Done():
			s.opts.logger.Warn("graceful stop timed out, forcing")
			s.grpcServer.Stop()
		}
	})
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprint(r)),
					logging.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []logging.Field{
			logging.String("method", info.FullMethod),
			logging.String("code", status.Code(err).String()),
			logging.Duration("latency", time.Since(start)),
		}
		if err != nil {
			logger.Warn("grpc request failed", append(fields, logging.Err(err))...)
		} else {
			logger.Info("grpc request", fields...)
		}
		return resp, err
	}
}

func metricsUnaryInterceptor(m *prometheus.FormulaMetrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if m == nil || isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		service, method := splitMethodName(info.FullMethod)
		prometheus.RecordGRPCRequest(m, service, method, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

// splitMethodName splits "/pkg.Service/Method".
func splitMethodName(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "unknown", fullMethod
}

//Personal.AI order the ending

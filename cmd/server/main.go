package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asakaida/propaccess/internal/handlers"
	"github.com/asakaida/propaccess/internal/infrastructure/config"
	"github.com/asakaida/propaccess/internal/infrastructure/database"
	"github.com/asakaida/propaccess/internal/infrastructure/logging"
	"github.com/asakaida/propaccess/internal/infrastructure/metrics"
	"github.com/asakaida/propaccess/internal/repositories/postgres"
	"github.com/asakaida/propaccess/internal/services"
	"github.com/asakaida/propaccess/internal/services/authorization"
	"github.com/asakaida/propaccess/pkg/cache"
	"github.com/asakaida/propaccess/pkg/cache/memorycache"
	"github.com/asakaida/propaccess/pkg/cache/rediscache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultEnv      = "dev"
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()

	logger.Info("connected to database",
		zap.String("user", cfg.Database.User),
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Database))

	// Initialize repositories
	userRepo := postgres.NewPostgresUserRepository(pg.DB)
	memberRepo := postgres.NewPostgresTeamMemberRepository(pg.DB)
	taskRepo := postgres.NewPostgresTaskRepository(pg.DB)
	propertyRepo := postgres.NewPostgresPropertyRepository(pg.DB)

	// Session store
	checks := map[string]metrics.HealthCheck{"database": pg.HealthCheck}
	store, err := newSessionStore(cfg, checks)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize services
	celEngine, err := authorization.NewCELEngine()
	if err != nil {
		return fmt.Errorf("failed to create CEL engine: %w", err)
	}
	sessionService := services.NewSessionService(userRepo, store, []byte(cfg.Session.SigningKey), cfg.Session.TTL, cfg.Session.AllowSwitchUser, logger)
	accessService := services.NewAccessService(taskRepo, memberRepo, propertyRepo, celEngine, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector()
	collector.SetSessionStore(store)
	exporter := metrics.NewPrometheusExporter(collector, registry)

	// Create gRPC server. Recovery is innermost so recovered panics are logged and counted.
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handlers.LoggingInterceptor(logger),
		metrics.UnaryServerInterceptor(collector, exporter),
		handlers.RecoveryInterceptor(logger),
	))
	handlers.RegisterAccessServiceServer(grpcServer, handlers.NewAccessHandler(sessionService, accessService, logger))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handlers.AccessServiceName, healthpb.HealthCheckResponse_SERVING)

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	opsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metrics.NewOpsRouter(registry, checks, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start servers in goroutines
	serverErrors := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(listener); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		logger.Info("ops server listening", zap.String("addr", opsServer.Addr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("ops server error: %w", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		grpcServer.Stop()
		_ = opsServer.Close()
		return err
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down ops server", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// newSessionStore builds the configured session backend and registers its readiness check
func newSessionStore(cfg *config.Config, checks map[string]metrics.HealthCheck) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		store, err := rediscache.New(ctx, &rediscache.Config{
			Addr:          cfg.Cache.RedisAddr,
			Password:      cfg.Cache.RedisPassword,
			DB:            cfg.Cache.RedisDB,
			Prefix:        "propaccess:",
			DefaultTTL:    cfg.Session.TTL,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		checks["session_store"] = store.Ping
		return store, nil
	default:
		store, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    cfg.Session.TTL,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create memory session store: %w", err)
		}
		return store, nil
	}
}

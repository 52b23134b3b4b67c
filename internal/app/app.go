package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ai360store-ux/Digimarket/internal/auth"
	"github.com/ai360store-ux/Digimarket/internal/config"
	"github.com/ai360store-ux/Digimarket/internal/event"
	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/gateway/postgres"
	"github.com/ai360store-ux/Digimarket/internal/gateway/rest"
	handler "github.com/ai360store-ux/Digimarket/internal/handler/http"
	"github.com/ai360store-ux/Digimarket/internal/localstore"
	"github.com/ai360store-ux/Digimarket/internal/storage"
	"github.com/ai360store-ux/Digimarket/internal/storage/memory"
	"github.com/ai360store-ux/Digimarket/internal/store"
	"github.com/ai360store-ux/Digimarket/pkg/database"
	"github.com/ai360store-ux/Digimarket/pkg/health"
	pkgkafka "github.com/ai360store-ux/Digimarket/pkg/kafka"
	"github.com/ai360store-ux/Digimarket/pkg/middleware"
	"github.com/ai360store-ux/Digimarket/pkg/tracing"
)

// Version is stamped at build time.
var Version = "dev"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	store          *store.Store
	httpServer     *http.Server
	stopBackground context.CancelFunc
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Tracing.
	a.shutdownTracer, err = tracing.InitTracer(ctx, cfg.TracingConfig(Version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	// Durable local slots.
	var slots localstore.Slots = localstore.NewMemory()
	if cfg.Redis.Enabled() {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		rs := localstore.NewRedis(a.redis)
		healthHandler.Register("redis", rs.Ping)
		slots = rs
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))
	} else {
		logger.Info("REDIS_HOST not set, local slots kept in memory")
	}

	// Remote gateway.
	gw := gateway.NewClient(gateway.Options{
		EndpointTemplate: cfg.GatewayEndpointTemplate,
		Factory:          rest.Factory(cfg.RestConfig(), logger),
		Slots:            slots,
		Logger:           logger,
	})
	assets, err := a.initGateway(ctx, gw)
	if err != nil {
		return nil, err
	}
	healthHandler.RegisterOptional("gateway", func(ctx context.Context) error {
		if !gw.IsConnected() {
			return nil
		}
		return gw.Check(ctx, gateway.Products)
	})

	// Kafka producer.
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("KAFKA_BROKERS not set, catalog events disabled")
	}

	// Admin auth.
	keys, err := auth.NewKeyring(cfg.AdminKey, cfg.AdminKeyHash)
	if err != nil {
		return nil, fmt.Errorf("init admin keyring: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.AdminTokenSecret, cfg.AdminTokenTTL)

	// Application state.
	a.store = store.New(store.Options{
		Gateway: gw,
		Slots:   slots,
		Events:  event.NewProducer(a.producer, logger),
		Keys:    keys,
		Logger:  logger,
	})
	if err := a.store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info("catalog loaded",
		slog.Bool("connected", a.store.IsConnected()),
		slog.Bool("live", a.store.IsLive()),
		slog.Int("products", len(a.store.Products())),
	)

	// HTTP router.
	bg, stop := context.WithCancel(context.Background())
	a.stopBackground = stop
	router := handler.NewRouter(bg, handler.Deps{
		Store:             a.store,
		Gateway:           gw,
		Tokens:            tokens,
		Checkout:          cfg.Checkout(),
		Assets:            assets,
		Health:            healthHandler,
		Logger:            logger,
		ServiceName:       config.ServiceName,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		LoginRatePerMin:   cfg.LoginRatePerMin,
		APIRatePerMin:     cfg.APIRatePerMin,
		TrustedProxyCIDRs: cfg.TrustedProxyCIDRs,
		CORSOrigins:       middleware.ParseOrigins(cfg.CORSAllowedOrigins),
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// initGateway installs the direct Postgres backend when a database URL is
// configured; otherwise it applies environment or persisted credentials to
// the hosted backend. It returns the local asset storage, if any.
func (a *App) initGateway(ctx context.Context, gw *gateway.Client) (storage.Storage, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.Postgres.Enabled() {
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		database.RegisterPoolMetrics(pool, config.ServiceName)
		database.SetSlowQueryLogging(cfg.Postgres.SlowQueryThreshold, logger)

		assets := memory.New(cfg.BaseURL(), cfg.MaxUploadBytes)
		backend := postgres.New(pool, assets, logger)
		if err := backend.Provision(ctx); err != nil {
			return nil, fmt.Errorf("provision catalog tables: %w", err)
		}
		cc := pool.Config().ConnConfig
		endpoint := fmt.Sprintf("postgres://%s:%d/%s", cc.Host, cc.Port, cc.Database)
		gw.UseBackend(backend, endpoint)
		logger.Info("using direct postgres gateway backend", slog.String("endpoint", endpoint))
		return assets, nil
	}

	if creds, ok := cfg.GatewayCredentials(); ok {
		if err := gw.Configure(ctx, creds); err != nil {
			return nil, fmt.Errorf("configure gateway: %w", err)
		}
		return nil, nil
	}
	if err := gw.Restore(ctx); err != nil {
		logger.Warn("ignoring persisted gateway credentials", slog.String("error", err.Error()))
	}
	if !gw.IsConnected() {
		logger.Info("gateway not configured, serving bundled catalog until credentials are set")
	}
	return nil, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases everything NewApp acquired. It is safe on a partial App.
func (a *App) close() {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/accounts"
	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/config"
	"github.com/noah-isme/mercadito/internal/db"
	"github.com/noah-isme/mercadito/internal/health"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/lock"
	"github.com/noah-isme/mercadito/internal/notes"
	"github.com/noah-isme/mercadito/internal/obs"
	"github.com/noah-isme/mercadito/internal/offers"
	"github.com/noah-isme/mercadito/internal/ratelimit"
	"github.com/noah-isme/mercadito/internal/resilience"
	"github.com/noah-isme/mercadito/internal/sales"
)

const metricsNamespace = "mercadito"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		Enabled:       cfg.EnableTracing,
		ServiceName:   cfg.ServiceName,
		Endpoint:      cfg.OTLPEndpoint,
		SamplingRatio: 1.0,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		shutdownTracer = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{
		Tracer: obs.PGXTracer{SlowQuery: 200 * time.Millisecond},
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisClient := connectRedis(cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	policy, err := inventory.ParsePolicy(cfg.TabStockPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse tab stock policy")
	}

	deps := buildDeps(cfg, logger, pool, redisClient, policy)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("tab_stock_policy", string(policy)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")
	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; every Redis backed feature has
// an in-process fallback.
func connectRedis(cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, using in-process locks and rate limits")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("ping redis, continuing without it")
		_ = client.Close()
		return nil
	}
	return client
}

func buildDeps(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, policy inventory.StockPolicy) routerDeps {
	storeMetrics := obs.NewStoreMetrics(metricsNamespace, nil)
	debug := cfg.Debug()

	var (
		guard   lock.Guard = &lock.Local{}
		limiter ratelimit.Allower = ratelimit.NewMemoryFixedWindow("mercadito:rl")
		cmd     redis.Cmdable
	)
	readiness := []health.Check{{Name: "postgres", Ping: pool.Ping}}
	if rdb != nil {
		cmd = rdb
		guard = lock.Locker{R: rdb, Prefix: "mercadito:lock:"}
		limiter = ratelimit.Limiter{Client: rdb, Prefix: "mercadito:rl:"}
		readiness = append(readiness, health.Check{
			Name:     "redis",
			Optional: true,
			Ping:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	cacheBreaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:      "offer_cache",
		MinRequests: 5,
		OpenFor:     30 * time.Second,
		Metrics:     resilience.NewBreakerMetrics(metricsNamespace, nil),
		Logger:      &logger,
	})
	offerService := offers.NewService(offers.ServiceConfig{
		Store: offers.NewStore(pool),
		Cache: offers.NewCache(cmd, cfg.OfferCacheTTL, storeMetrics).WithBreaker(cacheBreaker),
		Guard: guard,
	})
	salesService := sales.NewService(sales.ServiceConfig{
		Store:   sales.NewStore(pool),
		Offers:  offerService,
		Metrics: storeMetrics,
	})
	accountService := accounts.NewService(accounts.ServiceConfig{
		Store:       accounts.NewStore(pool),
		StockPolicy: policy,
		Metrics:     storeMetrics,
	})
	idem := common.Idem{R: cmd, TTL: cfg.IdempotencyTTL}

	return routerDeps{
		cfg:         cfg,
		logger:      logger,
		httpMetrics: obs.NewHTTPMetrics(metricsNamespace, nil, nil),
		limiter:     limiter,
		health:      health.Handler{Checks: readiness},
		products: inventory.NewHandler(inventory.HandlerConfig{
			Service: inventory.NewService(inventory.ServiceConfig{Store: inventory.NewStore(pool)}),
			Debug:   debug,
		}),
		offers: offers.NewHandler(offers.HandlerConfig{Service: offerService, Debug: debug}),
		sales: sales.NewHandler(sales.HandlerConfig{
			Service:         salesService,
			Debug:           debug,
			WriteMiddleware: []func(http.Handler) http.Handler{idem.Middleware},
		}),
		accounts: accounts.NewHandler(accounts.HandlerConfig{Service: accountService, Debug: debug}),
		notes:    notes.NewHandler(notes.NewService(notes.NewStore(pool)), debug),
	}
}

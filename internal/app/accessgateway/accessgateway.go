package accessgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/pro-access/internal/cache"
	"github.com/magabrotheeeer/pro-access/internal/config"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/pro-access/internal/lib/jwt"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/metrics"
	"github.com/magabrotheeeer/pro-access/internal/migrations"
	"github.com/magabrotheeeer/pro-access/internal/rabbitmq"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
	"github.com/magabrotheeeer/pro-access/internal/services/entitlement"
	"github.com/magabrotheeeer/pro-access/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	redis  *cache.Redis
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилища, применяет миграции и собирает маршруты.
// RabbitMQ необязателен: без него события об изменении прав не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "accessgateway.New"
	a := &App{logger: logger}

	features, err := access.NewFeatureSet(cfg.FeaturesAccountant, cfg.FeaturesMember)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.db, err = repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(a.db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var c access.Cache
	switch cfg.CacheDriver {
	case "memory":
		c = cache.NewMemory(cfg.MemoryCacheSize, max(cfg.RoleCacheTTL, cfg.DecisionCacheTTL))
		logger.Warn("memory cache driver selected, invalidation is local to this instance")
	default:
		a.redis, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c = a.redis
	}

	var pub entitlement.Publisher
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetAccessQueues())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pub = rabbitmq.NewPublisher(a.ch, rabbitmq.ExchangeNotifications)
	} else {
		logger.Warn("rabbitmq url is empty, entitlement events are not published")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	roles := access.NewRoleResolver(a.db, c, cfg.RoleCacheTTL, logger, m)
	evaluator := access.NewEvaluator(a.db, c, features, cfg.DecisionCacheTTL, logger, m)
	gate := access.NewGate(roles, evaluator, a.db, logger, m)
	invalidator := access.NewInvalidator(c, logger, m)
	entitlements := entitlement.New(a.db, invalidator, pub, logger)

	checks := map[string]health.Check{
		"postgres": a.db.DB.PingContext,
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Db.Ping(ctx).Err()
		}
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Store:         a.db,
		Gate:          gate,
		Pro:           evaluator,
		Roles:         roles,
		Entitlements:  entitlements,
		HealthChecks:  checks,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		WebhookSecret: cfg.WebhookSecret,
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run обслуживает запросы до отмены ctx, затем мягко останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}

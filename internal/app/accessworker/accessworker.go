// Package accessworker содержит фоновый процесс контроля доступа: обработку
// событий инвалидации из очереди и сброс доступа по истёкшим пробным периодам.
package accessworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/pro-access/internal/cache"
	"github.com/magabrotheeeer/pro-access/internal/config"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/rabbitmq"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
	"github.com/magabrotheeeer/pro-access/internal/services/trialsweeper"
	"github.com/magabrotheeeer/pro-access/internal/storage/repository"
)

// App фоновый процесс.
type App struct {
	sweeper     *trialsweeper.Sweeper
	invalidator *access.Invalidator
	schedule    string
	db          *repository.Storage
	redis       *cache.Redis
	conn        *amqp.Connection
	ch          *amqp.Channel
	logger      *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(ctx, db)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает фоновый процесс. Требует Redis: локальный кеш одного процесса
// инвалидировать из другого нельзя.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "accessworker.New"
	if cfg.CacheDriver != "redis" {
		return nil, fmt.Errorf("%s: worker requires redis cache driver, got %q", op, cfg.CacheDriver)
	}
	if cfg.RabbitMQURL == "" {
		return nil, errors.New(op + ": rabbitmq url is required")
	}

	a := &App{logger: logger, schedule: cfg.Schedule}
	var err error

	a.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetAccessQueues())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	a.db, err = repository.New(cfg.StorageConnectionString)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = waitForDB(ctx, a.db); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.redis, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	a.invalidator = access.NewInvalidator(a.redis, logger, nil)
	pub := rabbitmq.NewPublisher(a.ch, rabbitmq.ExchangeNotifications)
	a.sweeper = trialsweeper.New(a.db, a.invalidator, pub, logger, cfg.Lookback)
	return a, nil
}

// Run запускает потребителя очереди инвалидации и планировщик пробных периодов
// и работает до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	const op = "accessworker.Run"
	defer a.close()

	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueInvalidate, InvalidationHandler(a.invalidator))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	stop, err := a.sweeper.Start(ctx, a.schedule)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	<-ctx.Done()

	a.logger.Info("shutting down access worker")
	stop()
	return nil
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

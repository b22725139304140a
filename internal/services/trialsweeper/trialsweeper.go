// Package trialsweeper периодически находит пользователей с закончившимся пробным
// периодом, сбрасывает их кеш доступа и публикует уведомление trial.expired.
package trialsweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
)

// RoutingKeyExpired ключ маршрутизации уведомления об окончании пробного периода.
const RoutingKeyExpired = "trial.expired"

// ExpiredEvent уведомление об окончании пробного периода.
type ExpiredEvent struct {
	UserUID   string    `json:"user_uid"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	ExpiredAt time.Time `json:"expired_at"`
}

// Repository ищет истёкшие пробные периоды.
type Repository interface {
	FindTrialsExpiredBetween(ctx context.Context, from, to time.Time) ([]*models.User, error)
}

// Invalidator сбрасывает кеш пользователя.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userUID string) error
}

// Publisher отправляет уведомления.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Sweeper обходит полуинтервал (lastRun, now] при каждом запуске.
type Sweeper struct {
	repo Repository
	inv  Invalidator
	pub  Publisher
	log  *slog.Logger
	now  func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// New создает Sweeper. Первый запуск захватывает lookback до момента создания.
func New(repo Repository, inv Invalidator, pub Publisher, log *slog.Logger, lookback time.Duration) *Sweeper {
	s := &Sweeper{
		repo: repo,
		inv:  inv,
		pub:  pub,
		log:  log,
		now:  time.Now,
	}
	s.lastRun = s.now().Add(-lookback)
	return s
}

// Sweep обрабатывает пробные периоды, закончившиеся с прошлого запуска, и возвращает
// число обработанных пользователей. Если сброс кеша хотя бы одного пользователя
// не удался, граница не сдвигается и интервал повторится в следующий раз.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	const op = "trialsweeper.Sweep"
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))
	from, to := s.lastRun, s.now()

	users, err := s.repo.FindTrialsExpiredBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var firstErr error
	done := 0
	for _, u := range users {
		if err := s.inv.InvalidateUser(ctx, u.UUID); err != nil {
			log.Error("failed to invalidate expired trial", sl.Subject(u.UUID, ""), sl.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
		if s.pub == nil || u.ProTrialUntil == nil {
			continue
		}
		ev := ExpiredEvent{UserUID: u.UUID, Email: u.Email, Username: u.Username, ExpiredAt: u.ProTrialUntil.UTC()}
		if err := s.pub.Publish(ctx, RoutingKeyExpired, ev); err != nil {
			log.Warn("failed to publish trial expiration", sl.Subject(u.UUID, ""), sl.Err(err))
		}
	}
	if firstErr != nil {
		return done, fmt.Errorf("%s: %w", op, firstErr)
	}

	s.lastRun = to
	if done > 0 {
		log.Info("expired trials processed", slog.Int("users", done), slog.Time("to", to))
	}
	return done, nil
}

// Start запускает Sweep по cron-расписанию schedule. Возвращённая функция
// останавливает планировщик и ждёт завершения текущего запуска.
func (s *Sweeper) Start(ctx context.Context, schedule string) (func(), error) {
	const op = "trialsweeper.Start"
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("trial sweep failed", slog.String("op", op), sl.Err(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: invalid schedule %q: %w", op, schedule, err)
	}
	c.Start()
	s.log.Info("trial sweeper started", slog.String("schedule", schedule))

	return func() {
		<-c.Stop().Done()
	}, nil
}

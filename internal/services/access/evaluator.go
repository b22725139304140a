package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// Grant источник права, по которому выдан Pro-доступ.
type Grant string

const (
	GrantNone            Grant = ""
	GrantGlobal          Grant = "global"
	GrantTrial           Grant = "trial"
	GrantOrganizationPro Grant = "organization_plan"
	GrantAccountantFlag  Grant = "accountant_membership"
	GrantFeatureList     Grant = "feature_list"
)

// Evaluator вычисляет, есть ли у пользователя Pro-доступ.
type Evaluator struct {
	repo     MembershipRepository
	cache    Cache
	features FeatureSet
	ttl      time.Duration
	log      *slog.Logger
	obs      Observer
	now      func() time.Time
}

// NewEvaluator создает Evaluator. Нулевой ttl заменяется на DefaultCacheTTL.
func NewEvaluator(repo MembershipRepository, cache Cache, features FeatureSet, ttl time.Duration, log *slog.Logger, obs Observer) *Evaluator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Evaluator{
		repo:     repo,
		cache:    cache,
		features: features,
		ttl:      ttl,
		log:      log,
		obs:      observerOrNop(obs),
		now:      time.Now,
	}
}

// HasProAccess сообщает, доступна ли пользователю Pro-функциональность.
// org может быть nil, пустой feature означает проверку без конкретной функции.
// Результат кешируется по ключу (пользователь, организация или global, функция или её отсутствие).
func (e *Evaluator) HasProAccess(ctx context.Context, user *models.User, org *models.Organization, feature models.Feature) (bool, error) {
	const op = "access.Evaluator.HasProAccess"
	key := decisionKey(user.UUID, org, feature)

	var cached bool
	hit, err := e.cache.Get(ctx, key, &cached)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	e.obs.ObserveCache("decision", hit)
	if hit {
		return cached, nil
	}

	now := e.now()
	grant, err := e.evaluate(ctx, user, org, feature, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	allowed := grant != GrantNone

	ttl := e.ttl
	if grant == GrantTrial {
		// закешированный доступ не должен пережить пробный период
		if left := user.ProTrialUntil.Sub(now); left < ttl {
			ttl = left
		}
	}
	if err := e.cache.Set(ctx, key, allowed, ttl); err != nil {
		e.log.Warn("failed to cache pro access decision", slog.String("op", op), slog.String("key", key), sl.Err(err))
	}

	e.log.Debug("pro access evaluated",
		slog.String("op", op),
		sl.Subject(user.UUID, orgID(org)),
		slog.String("feature", string(feature)),
		slog.String("grant", string(grant)),
		slog.Bool("allowed", allowed),
	)
	return allowed, nil
}

// evaluate проверяет источники права по убыванию приоритета; срабатывает первый подходящий.
func (e *Evaluator) evaluate(ctx context.Context, user *models.User, org *models.Organization, feature models.Feature, now time.Time) (Grant, error) {
	if user.ProFeatures {
		return GrantGlobal, nil
	}
	if user.TrialActive(now) {
		return GrantTrial, nil
	}
	if org != nil && org.Plan == models.PlanPro {
		if feature == "" || e.features.Allows(user.AccountType, feature) {
			return GrantOrganizationPro, nil
		}
	}
	if org != nil {
		m, err := e.repo.GetMembership(ctx, user.UUID, org.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return GrantNone, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		case m.ProFeaturesForAccountant:
			return GrantAccountantFlag, nil
		}
	}
	if feature != "" && user.HasFeature(feature) {
		return GrantFeatureList, nil
	}
	return GrantNone, nil
}

func orgID(org *models.Organization) string {
	if org == nil {
		return ""
	}
	return org.ID
}

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// roleEntry значение в кеше ролей. Member == false означает закешированное отсутствие членства.
type roleEntry struct {
	Role   models.Role `json:"role"`
	Member bool        `json:"member"`
}

// RoleResolver определяет роль пользователя в организации с кешированием.
type RoleResolver struct {
	repo  MembershipRepository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
	obs   Observer
	group singleflight.Group
}

// NewRoleResolver создает RoleResolver. Нулевой ttl заменяется на DefaultCacheTTL.
func NewRoleResolver(repo MembershipRepository, cache Cache, ttl time.Duration, log *slog.Logger, obs Observer) *RoleResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RoleResolver{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
		obs:   observerOrNop(obs),
	}
}

// RoleOf возвращает роль пользователя в организации. found == false, если пользователь
// не состоит в организации; это не ошибка. Результат кешируется, включая отсутствие роли.
func (r *RoleResolver) RoleOf(ctx context.Context, userUID, organizationID string) (models.Role, bool, error) {
	const op = "access.RoleResolver.RoleOf"
	key := roleKey(userUID, organizationID)

	var cached roleEntry
	hit, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	r.obs.ObserveCache("role", hit)
	if hit {
		return cached.Role, cached.Member, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		entry, err := r.lookup(ctx, userUID, organizationID)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, key, entry, r.ttl); err != nil {
			r.log.Warn("failed to cache role", slog.String("op", op), slog.String("key", key), sl.Err(err))
		}
		return entry, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	entry := v.(roleEntry)
	return entry.Role, entry.Member, nil
}

func (r *RoleResolver) lookup(ctx context.Context, userUID, organizationID string) (roleEntry, error) {
	m, err := r.repo.GetMembership(ctx, userUID, organizationID)
	if errors.Is(err, storage.ErrNotFound) {
		return roleEntry{}, nil
	}
	if err != nil {
		return roleEntry{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return roleEntry{Role: m.Role, Member: true}, nil
}

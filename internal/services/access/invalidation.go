package access

import (
	"context"
	"fmt"
	"log/slog"
)

// Scope область инвалидации кеша.
type Scope string

const (
	ScopeUser         Scope = "user"
	ScopeOrganization Scope = "organization"
	ScopeMembership   Scope = "membership"
)

// Invalidator удаляет закешированные роли и решения после изменения
// пользователя, тарифа организации или членства.
type Invalidator struct {
	cache Cache
	log   *slog.Logger
	obs   Observer
}

// NewInvalidator создает Invalidator.
func NewInvalidator(cache Cache, log *slog.Logger, obs Observer) *Invalidator {
	return &Invalidator{cache: cache, log: log, obs: observerOrNop(obs)}
}

// InvalidateUser сбрасывает все роли и решения пользователя. Вызывается при изменении
// Pro-статуса, пробного периода, списка функций или типа учётной записи.
func (i *Invalidator) InvalidateUser(ctx context.Context, userUID string) error {
	const op = "access.Invalidator.InvalidateUser"
	if userUID == "" {
		return fmt.Errorf("%s: empty user uid", op)
	}
	return i.removePatterns(ctx, op, ScopeUser,
		keyPrefixDecision+userUID+":*",
		keyPrefixRole+userUID+":*",
	)
}

// InvalidateOrganization сбрасывает решения и роли всех пользователей в организации.
// Вызывается при смене тарифа.
func (i *Invalidator) InvalidateOrganization(ctx context.Context, organizationID string) error {
	const op = "access.Invalidator.InvalidateOrganization"
	if organizationID == "" {
		return fmt.Errorf("%s: empty organization id", op)
	}
	return i.removePatterns(ctx, op, ScopeOrganization,
		keyPrefixDecision+"*:"+organizationID+":*",
		keyPrefixRole+"*:"+organizationID,
	)
}

// InvalidateMembership сбрасывает роль и решения пользователя в одной организации.
// Вызывается при смене роли или флага pro_features_for_accountant.
func (i *Invalidator) InvalidateMembership(ctx context.Context, userUID, organizationID string) error {
	const op = "access.Invalidator.InvalidateMembership"
	if userUID == "" || organizationID == "" {
		return fmt.Errorf("%s: empty user uid or organization id", op)
	}
	if err := i.cache.Invalidate(ctx, roleKey(userUID, organizationID)); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	return i.removePatterns(ctx, op, ScopeMembership,
		keyPrefixDecision+userUID+":"+organizationID+":*",
	)
}

// Invalidate выбирает область по scope. Используется обработчиком событий из очереди.
func (i *Invalidator) Invalidate(ctx context.Context, scope Scope, userUID, organizationID string) error {
	switch scope {
	case ScopeUser:
		return i.InvalidateUser(ctx, userUID)
	case ScopeOrganization:
		return i.InvalidateOrganization(ctx, organizationID)
	case ScopeMembership:
		return i.InvalidateMembership(ctx, userUID, organizationID)
	}
	return fmt.Errorf("access.Invalidator.Invalidate: unknown scope %q", scope)
}

func (i *Invalidator) removePatterns(ctx context.Context, op string, scope Scope, patterns ...string) error {
	total := 0
	for _, p := range patterns {
		n, err := i.cache.InvalidatePattern(ctx, p)
		total += n
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
		}
	}
	i.obs.ObserveInvalidation(string(scope), total)
	i.log.Info("access cache invalidated", slog.String("op", op), slog.String("scope", string(scope)), slog.Int("keys", total))
	return nil
}

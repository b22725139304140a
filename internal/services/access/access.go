// Package access реализует ядро контроля доступа к Pro-функциям:
// определение роли пользователя в организации, вычисление Pro-доступа
// по упорядоченным источникам права и шлюз, который объединяет эти проверки
// в решение для защищённой операции.
//
// Ядро только читает пользователей, организации и членства. Кеш ролей и решений
// инвалидируется явными вызовами Invalidator со стороны тех, кто эти записи меняет.
package access

import (
	"context"
	"errors"
	"time"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

// ErrStorageUnavailable оборачивает любые сбои хранилища членств или кеша.
// Ошибка не обрабатывается внутри ядра и доходит до границы запроса.
var ErrStorageUnavailable = errors.New("access storage unavailable")

// DefaultCacheTTL время жизни закешированных ролей и решений по умолчанию.
const DefaultCacheTTL = 5 * time.Minute

// Cache хранилище с TTL и удалением по шаблону.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
}

// MembershipRepository даёт доступ к членствам пользователей в организациях.
type MembershipRepository interface {
	// GetMembership возвращает членство или ошибку, удовлетворяющую errors.Is(err, storage.ErrNotFound).
	GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error)
	// ListUserOrganizations возвращает все организации, где состоит пользователь.
	ListUserOrganizations(ctx context.Context, userUID string) ([]models.OrganizationRef, error)
}

// Observer принимает события для метрик.
type Observer interface {
	ObserveDecision(outcome, reason string)
	ObserveCache(kind string, hit bool)
	ObserveInvalidation(scope string, keys int)
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(string, string) {}
func (nopObserver) ObserveCache(string, bool) {}
func (nopObserver) ObserveInvalidation(string, int) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

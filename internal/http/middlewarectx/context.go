// Package middlewarectx содержит HTTP middleware аутентификации, загрузки пользователя,
// выбора организации, проверки доступа и ограничения частоты запросов.
// Результаты сохраняются в контексте запроса и читаются обработчиками через функции *FromContext.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID: ключ для UID пользователя из токена
	UserUID Key = "user_uid"
	// User: ключ для загруженной записи пользователя
	User Key = "user"
	// Organization: ключ для текущей организации
	Organization Key = "organization"
	// Decision: ключ для решения шлюза доступа
	Decision Key = "access_decision"
)

// HeaderOrganizationID заголовок с явным выбором организации.
const HeaderOrganizationID = "X-Organization-ID"

// UserUIDFromContext возвращает UID пользователя.
func UserUIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserUID).(string)
	return uid, ok && uid != ""
}

// UserFromContext возвращает пользователя, загруженного UserMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(User).(*models.User)
	return u, ok && u != nil
}

// OrganizationFromContext возвращает текущую организацию или nil.
func OrganizationFromContext(ctx context.Context) *models.Organization {
	org, _ := ctx.Value(Organization).(*models.Organization)
	return org
}

// DecisionFromContext возвращает решение, принятое RequireAccess.
func DecisionFromContext(ctx context.Context) (access.Decision, bool) {
	d, ok := ctx.Value(Decision).(access.Decision)
	return d, ok
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u *models.User) context.Context {
	ctx = context.WithValue(ctx, UserUID, u.UUID)
	return context.WithValue(ctx, User, u)
}

// WithOrganization кладёт организацию в контекст.
func WithOrganization(ctx context.Context, org *models.Organization) context.Context {
	return context.WithValue(ctx, Organization, org)
}

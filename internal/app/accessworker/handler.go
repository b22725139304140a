package accessworker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/pro-access/internal/rabbitmq"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
)

// InvalidationMessage событие об изменении записей, от которых зависят решения о доступе.
// Публикуется сервисами, которые меняют пользователей, тарифы и членства.
type InvalidationMessage struct {
	Scope          access.Scope `json:"scope"`
	UserUID        string       `json:"user_uid,omitempty"`
	OrganizationID string       `json:"organization_id,omitempty"`
}

// Invalidator сбрасывает кеш по области.
type Invalidator interface {
	Invalidate(ctx context.Context, scope access.Scope, userUID, organizationID string) error
}

// InvalidationHandler разбирает сообщение и сбрасывает соответствующую область кеша.
// Сообщения, которые невозможно обработать, помечаются rabbitmq.ErrMalformed.
func InvalidationHandler(inv Invalidator) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		const op = "accessworker.InvalidationHandler"
		var msg InvalidationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrMalformed, err)
		}
		if err := msg.validate(); err != nil {
			return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrMalformed, err)
		}
		if err := inv.Invalidate(ctx, msg.Scope, msg.UserUID, msg.OrganizationID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

// validate проверяет область и идентификаторы. Идентификаторы подставляются
// в шаблоны удаления ключей, поэтому принимаются только UUID.
func (m InvalidationMessage) validate() error {
	var needUser, needOrg bool
	switch m.Scope {
	case access.ScopeUser:
		needUser = true
	case access.ScopeOrganization:
		needOrg = true
	case access.ScopeMembership:
		needUser, needOrg = true, true
	default:
		return fmt.Errorf("unknown scope %q", m.Scope)
	}
	if needUser {
		if _, err := uuid.Parse(m.UserUID); err != nil {
			return fmt.Errorf("invalid user_uid %q for scope %q: %w", m.UserUID, m.Scope, err)
		}
	}
	if needOrg {
		if _, err := uuid.Parse(m.OrganizationID); err != nil {
			return fmt.Errorf("invalid organization_id %q for scope %q: %w", m.OrganizationID, m.Scope, err)
		}
	}
	return nil
}

// Package entitlement изменяет права доступа: тариф организации, роли и флаги членств,
// пробные периоды и списки функций пользователей. После каждой записи сбрасывается
// кеш контроля доступа и публикуется событие entitlement.changed.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
)

// ErrInvalidArgument неверные входные данные операции.
var ErrInvalidArgument = errors.New("invalid argument")

// Kind тип изменения прав.
type Kind string

const (
	KindPlan           Kind = "plan"
	KindAccountantPro  Kind = "accountant_pro"
	KindRole           Kind = "role"
	KindTrial          Kind = "trial"
	KindUserPro        Kind = "user_pro"
	KindFeatureGranted Kind = "feature_granted"
	KindFeatureRevoked Kind = "feature_revoked"
)

// RoutingKeyChanged ключ маршрутизации события об изменении прав.
const RoutingKeyChanged = "entitlement.changed"

// ChangedEvent сообщение об изменении прав.
type ChangedEvent struct {
	Kind           Kind      `json:"kind"`
	UserUID        string    `json:"user_uid,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Value          string    `json:"value"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Repository записи, которые меняет сервис.
type Repository interface {
	UpdateOrganizationPlan(ctx context.Context, organizationID string, plan models.Plan) error
	UpdateMembershipAccountantFlag(ctx context.Context, userUID, organizationID string, enabled bool) error
	UpdateMembershipRole(ctx context.Context, userUID, organizationID string, role models.Role) error
	UpdateUserTrial(ctx context.Context, userUID string, until *time.Time) error
	UpdateUserProFeatures(ctx context.Context, userUID string, enabled bool) error
	AddUserFeature(ctx context.Context, userUID string, feature models.Feature) error
	RemoveUserFeature(ctx context.Context, userUID string, feature models.Feature) error
}

// Invalidator сбрасывает кеш ролей и решений.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userUID string) error
	InvalidateOrganization(ctx context.Context, organizationID string) error
	InvalidateMembership(ctx context.Context, userUID, organizationID string) error
}

// Publisher отправляет события в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service изменяет права и поддерживает кеш доступа в согласованном состоянии.
type Service struct {
	repo Repository
	inv  Invalidator
	pub  Publisher
	log  *slog.Logger
	now  func() time.Time
}

// New создает Service. pub может быть nil, тогда события не публикуются.
func New(repo Repository, inv Invalidator, pub Publisher, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		inv:  inv,
		pub:  pub,
		log:  log,
		now:  time.Now,
	}
}

// ChangePlan меняет тариф организации.
func (s *Service) ChangePlan(ctx context.Context, organizationID string, plan models.Plan) error {
	const op = "entitlement.ChangePlan"
	if !plan.Valid() {
		return fmt.Errorf("%s: %w: unknown plan %q", op, ErrInvalidArgument, plan)
	}
	if err := s.repo.UpdateOrganizationPlan(ctx, organizationID, plan); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateOrganization(ctx, organizationID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{Kind: KindPlan, OrganizationID: organizationID, Value: string(plan)})
	return nil
}

// SetAccountantPro включает или выключает pro_features_for_accountant у членства.
func (s *Service) SetAccountantPro(ctx context.Context, organizationID, userUID string, enabled bool) error {
	const op = "entitlement.SetAccountantPro"
	if err := s.repo.UpdateMembershipAccountantFlag(ctx, userUID, organizationID, enabled); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateMembership(ctx, userUID, organizationID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{
		Kind: KindAccountantPro, UserUID: userUID, OrganizationID: organizationID, Value: fmt.Sprint(enabled),
	})
	return nil
}

// ChangeRole меняет роль участника организации.
func (s *Service) ChangeRole(ctx context.Context, organizationID, userUID string, role models.Role) error {
	const op = "entitlement.ChangeRole"
	if !role.Valid() {
		return fmt.Errorf("%s: %w: unknown role %q", op, ErrInvalidArgument, role)
	}
	if err := s.repo.UpdateMembershipRole(ctx, userUID, organizationID, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateMembership(ctx, userUID, organizationID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{Kind: KindRole, UserUID: userUID, OrganizationID: organizationID, Value: string(role)})
	return nil
}

// GrantTrial выдаёт пробный период до момента until. Момент должен быть в будущем.
func (s *Service) GrantTrial(ctx context.Context, userUID string, until time.Time) error {
	const op = "entitlement.GrantTrial"
	if !until.After(s.now()) {
		return fmt.Errorf("%s: %w: trial end %s is not in the future", op, ErrInvalidArgument, until.Format(time.RFC3339))
	}
	until = until.UTC()
	if err := s.repo.UpdateUserTrial(ctx, userUID, &until); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateUser(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{Kind: KindTrial, UserUID: userUID, Value: until.Format(time.RFC3339)})
	return nil
}

// SetUserPro включает или выключает глобальный Pro-доступ пользователя.
func (s *Service) SetUserPro(ctx context.Context, userUID string, enabled bool) error {
	const op = "entitlement.SetUserPro"
	if err := s.repo.UpdateUserProFeatures(ctx, userUID, enabled); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateUser(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{Kind: KindUserPro, UserUID: userUID, Value: fmt.Sprint(enabled)})
	return nil
}

// GrantFeature добавляет функцию в личный список пользователя.
func (s *Service) GrantFeature(ctx context.Context, userUID string, feature models.Feature) error {
	const op = "entitlement.GrantFeature"
	if feature == "" {
		return fmt.Errorf("%s: %w: empty feature", op, ErrInvalidArgument)
	}
	if err := s.repo.AddUserFeature(ctx, userUID, feature); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateUser(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{Kind: KindFeatureGranted, UserUID: userUID, Value: string(feature)})
	return nil
}

// RevokeFeature удаляет функцию из личного списка пользователя.
func (s *Service) RevokeFeature(ctx context.Context, userUID string, feature models.Feature) error {
	const op = "entitlement.RevokeFeature"
	if feature == "" {
		return fmt.Errorf("%s: %w: empty feature", op, ErrInvalidArgument)
	}
	if err := s.repo.RemoveUserFeature(ctx, userUID, feature); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.inv.InvalidateUser(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, op, ChangedEvent{Kind: KindFeatureRevoked, UserUID: userUID, Value: string(feature)})
	return nil
}

// publish отправляет событие; ошибка только логируется.
func (s *Service) publish(ctx context.Context, op string, ev ChangedEvent) {
	if s.pub == nil {
		return
	}
	ev.OccurredAt = s.now().UTC()
	if err := s.pub.Publish(ctx, RoutingKeyChanged, ev); err != nil {
		s.log.Warn("failed to publish entitlement change",
			slog.String("op", op),
			slog.String("kind", string(ev.Kind)),
			sl.Subject(ev.UserUID, ev.OrganizationID),
			sl.Err(err))
	}
}

package repository

import (
	"context"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

// GetMembership возвращает членство пользователя в организации.
// Если его нет, возвращается ошибка storage.ErrNotFound.
func (s *Storage) GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error) {
	const op = "storage.GetMembership"
	var m models.Membership
	err := s.DB.QueryRowContext(ctx, `
		SELECT user_uid, organization_id, role, pro_features_for_accountant
		FROM memberships
		WHERE user_uid = $1 AND organization_id = $2`, userUID, organizationID).
		Scan(&m.UserUID, &m.OrganizationID, &m.Role, &m.ProFeaturesForAccountant)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &m, nil
}

// UpdateMembershipAccountantFlag меняет флаг pro_features_for_accountant.
func (s *Storage) UpdateMembershipAccountantFlag(ctx context.Context, userUID, organizationID string, enabled bool) error {
	const op = "storage.UpdateMembershipAccountantFlag"
	res, err := s.DB.ExecContext(ctx, `
		UPDATE memberships SET pro_features_for_accountant = $1
		WHERE user_uid = $2 AND organization_id = $3`, enabled, userUID, organizationID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

// UpdateMembershipRole меняет роль участника.
func (s *Storage) UpdateMembershipRole(ctx context.Context, userUID, organizationID string, role models.Role) error {
	const op = "storage.UpdateMembershipRole"
	res, err := s.DB.ExecContext(ctx, `
		UPDATE memberships SET role = $1
		WHERE user_uid = $2 AND organization_id = $3`, string(role), userUID, organizationID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

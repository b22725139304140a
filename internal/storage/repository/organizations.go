package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

// GetOrganization возвращает организацию по ID.
func (s *Storage) GetOrganization(ctx context.Context, organizationID string) (*models.Organization, error) {
	const op = "storage.GetOrganization"
	var o models.Organization
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, plan FROM organizations WHERE id = $1`, organizationID).
		Scan(&o.ID, &o.Name, &o.Plan)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &o, nil
}

// UpdateOrganizationPlan меняет тариф организации.
func (s *Storage) UpdateOrganizationPlan(ctx context.Context, organizationID string, plan models.Plan) error {
	const op = "storage.UpdateOrganizationPlan"
	res, err := s.DB.ExecContext(ctx, `UPDATE organizations SET plan = $1 WHERE id = $2`, string(plan), organizationID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

// ListUserOrganizations возвращает организации пользователя, отсортированные по имени.
func (s *Storage) ListUserOrganizations(ctx context.Context, userUID string) ([]models.OrganizationRef, error) {
	const op = "storage.ListUserOrganizations"
	rows, err := s.DB.QueryContext(ctx, `
		SELECT o.id, o.name
		FROM organizations o
		JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_uid = $1
		ORDER BY o.name, o.id`, userUID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.OrganizationRef, 0)
	for rows.Next() {
		var ref models.OrganizationRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountMembers возвращает число участников организации.
func (s *Storage) CountMembers(ctx context.Context, organizationID string) (int, error) {
	const op = "storage.CountMembers"
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships WHERE organization_id = $1`, organizationID).Scan(&n)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return n, nil
}

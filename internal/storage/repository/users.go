package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

const userColumns = `uid, email, username, account_type, pro_features, pro_trial_until,
			      pro_features_list, is_sponsor`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		trial    sql.NullTime
		features []string
	)
	if err := row.Scan(&u.UUID, &u.Email, &u.Username, &u.AccountType, &u.ProFeatures,
		&trial, pq.Array(&features), &u.IsSponsor); err != nil {
		return nil, err
	}
	if trial.Valid {
		t := trial.Time
		u.ProTrialUntil = &t
	}
	u.ProFeaturesList = make([]models.Feature, 0, len(features))
	for _, f := range features {
		u.ProFeaturesList = append(u.ProFeaturesList, models.Feature(f))
	}
	return &u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, userUID)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

// UpdateUserProFeatures включает или выключает глобальный Pro-доступ пользователя.
func (s *Storage) UpdateUserProFeatures(ctx context.Context, userUID string, enabled bool) error {
	const op = "storage.UpdateUserProFeatures"
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET pro_features = $1 WHERE uid = $2`, enabled, userUID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

// UpdateUserTrial устанавливает момент окончания пробного периода; nil снимает его.
func (s *Storage) UpdateUserTrial(ctx context.Context, userUID string, until *time.Time) error {
	const op = "storage.UpdateUserTrial"
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET pro_trial_until = $1 WHERE uid = $2`, until, userUID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

// AddUserFeature добавляет функцию в список пользователя, если её там ещё нет.
func (s *Storage) AddUserFeature(ctx context.Context, userUID string, feature models.Feature) error {
	const op = "storage.AddUserFeature"
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users
		SET pro_features_list = CASE
			WHEN $1 = ANY(pro_features_list) THEN pro_features_list
			ELSE array_append(pro_features_list, $1)
		END
		WHERE uid = $2`, string(feature), userUID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

// RemoveUserFeature удаляет функцию из списка пользователя.
func (s *Storage) RemoveUserFeature(ctx context.Context, userUID string, feature models.Feature) error {
	const op = "storage.RemoveUserFeature"
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET pro_features_list = array_remove(pro_features_list, $1)
		WHERE uid = $2`, string(feature), userUID)
	if err != nil {
		return wrapErr(op, err)
	}
	return checkAffected(op, res)
}

// FindTrialsExpiredBetween находит пользователей, чей пробный период закончился
// в полуинтервале (from, to].
func (s *Storage) FindTrialsExpiredBetween(ctx context.Context, from, to time.Time) ([]*models.User, error) {
	const op = "storage.FindTrialsExpiredBetween"
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+`
			  FROM users
			  WHERE pro_trial_until > $1 AND pro_trial_until <= $2
			  ORDER BY pro_trial_until`, from, to)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

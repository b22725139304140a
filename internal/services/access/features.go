package access

import (
	"fmt"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

// FeatureSet списки Pro-функций, доступных по тарифу организации, для каждого типа учётной записи.
type FeatureSet map[models.AccountType]map[models.Feature]struct{}

// NewFeatureSet строит FeatureSet из списков для бухгалтеров и для обычных участников.
// Списки не должны пересекаться.
func NewFeatureSet(accountant, member []string) (FeatureSet, error) {
	const op = "access.NewFeatureSet"
	fs := FeatureSet{
		models.AccountAccountant: make(map[models.Feature]struct{}, len(accountant)),
		models.AccountPersonal:   make(map[models.Feature]struct{}, len(member)),
	}
	for _, f := range accountant {
		fs[models.AccountAccountant][models.Feature(f)] = struct{}{}
	}
	for _, f := range member {
		if _, dup := fs[models.AccountAccountant][models.Feature(f)]; dup {
			return nil, fmt.Errorf("%s: feature %q is in both accountant and member lists", op, f)
		}
		fs[models.AccountPersonal][models.Feature(f)] = struct{}{}
	}
	return fs, nil
}

// Allows сообщает, входит ли функция в список для данного типа учётной записи.
// Для неизвестного типа ни одна функция не разрешена.
func (fs FeatureSet) Allows(accountType models.AccountType, feature models.Feature) bool {
	_, ok := fs[accountType][feature]
	return ok
}

package access

import (
	"github.com/magabrotheeeer/pro-access/internal/models"
)

const (
	keyPrefixRole     = "access:role:"
	keyPrefixDecision = "access:pro:"

	globalScope   = "global"
	noFeature     = "none"
	featureMarker = "f:"
)

func roleKey(userUID, organizationID string) string {
	return keyPrefixRole + userUID + ":" + organizationID
}

// decisionKey строит ключ решения. Проверка без функции заканчивается на ":none",
// проверка функции на ":f:<feature>", поэтому функция с именем "none" не совпадает
// с проверкой без функции. Оба вида попадают под шаблоны "<user>:<scope>:*".
func decisionKey(userUID string, org *models.Organization, feature models.Feature) string {
	scope := globalScope
	if org != nil {
		scope = org.ID
	}
	f := noFeature
	if feature != "" {
		f = featureMarker + string(feature)
	}
	return keyPrefixDecision + userUID + ":" + scope + ":" + f
}

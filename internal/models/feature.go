package models

// Feature идентификатор платной функции.
type Feature string

// Функции, на которые ссылается HTTP-слой. Сами списки разрешённых функций задаются в конфиге.
const (
	FeatureAdvancedReports Feature = "advanced_reports"
	FeatureMultiOrgPanel   Feature = "multi_org_panel"
)

package models

// Plan тарифный план организации.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Valid сообщает, является ли значение известным тарифом.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Organization представляет организацию с её тарифом.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Plan Plan   `json:"plan"`
}

// OrganizationRef краткое описание организации для выбора пользователем.
type OrganizationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

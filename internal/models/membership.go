package models

// Role роль пользователя внутри организации.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleMember     Role = "member"
	RoleAccountant Role = "accountant"
	RoleBookkeeper Role = "bookkeeper"
	RoleAdvisor    Role = "advisor"
)

// Valid сообщает, является ли значение известной ролью.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleAccountant, RoleBookkeeper, RoleAdvisor:
		return true
	}
	return false
}

// Membership связывает пользователя с организацией. На пару (пользователь, организация)
// существует не более одной записи.
type Membership struct {
	UserUID                  string `json:"user_uid"`
	OrganizationID           string `json:"organization_id"`
	Role                     Role   `json:"role"`
	ProFeaturesForAccountant bool   `json:"pro_features_for_accountant"`
}

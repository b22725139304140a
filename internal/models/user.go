// Package models содержит доменные структуры, которые читает ядро контроля доступа:
// пользователя, организацию, членство и идентификатор Pro-функции.
// Эти записи создаются и изменяются внешними сценариями (приглашения, смена тарифа,
// выдача пробного периода), ядро их только читает.
package models

import "time"

// AccountType тип учётной записи пользователя.
type AccountType string

const (
	// AccountPersonal обычная личная учётная запись.
	AccountPersonal AccountType = "personal"
	// AccountAccountant учётная запись бухгалтера.
	AccountAccountant AccountType = "accountant"
)

// Valid сообщает, является ли значение известным типом учётной записи.
func (t AccountType) Valid() bool {
	return t == AccountPersonal || t == AccountAccountant
}

// User представляет пользователя с атрибутами, влияющими на доступ к Pro-функциям.
type User struct {
	UUID            string      `json:"uid"`
	Email           string      `json:"email"`
	Username        string      `json:"username"`
	AccountType     AccountType `json:"account_type"`
	ProFeatures     bool        `json:"pro_features"`              // Глобальный Pro-доступ
	ProTrialUntil   *time.Time  `json:"pro_trial_until,omitempty"` // Момент окончания пробного периода (не включительно)
	ProFeaturesList []Feature   `json:"pro_features_list"`         // Функции, выданные пользователю поштучно
	IsSponsor       bool        `json:"is_sponsor"`
}

// TrialActive сообщает, активен ли пробный период в момент now.
// Сравнение строгое: период, истекающий ровно в now, уже неактивен.
func (u *User) TrialActive(now time.Time) bool {
	return u.ProTrialUntil != nil && u.ProTrialUntil.After(now)
}

// HasFeature сообщает, выдана ли функция пользователю индивидуально.
func (u *User) HasFeature(feature Feature) bool {
	for _, f := range u.ProFeaturesList {
		if f == feature {
			return true
		}
	}
	return false
}

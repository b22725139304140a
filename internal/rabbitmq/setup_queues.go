package rabbitmq

const (
	ExchangeAccess        = "access"
	ExchangeNotifications = "notifications"

	QueueInvalidate      = "access.invalidate"
	RoutingKeyInvalidate = "invalidate"

	QueueEntitlementChanged      = "notifications.entitlement"
	RoutingKeyEntitlementChanged = "entitlement.changed"

	QueueTrialExpired      = "notifications.trial"
	RoutingKeyTrialExpired = "trial.expired"
)

// QueueConfig описывает очередь и её привязку к обменнику.
type QueueConfig struct {
	Exchange   string
	QueueName  string
	RoutingKey string
}

// GetAccessQueues возвращает очереди, которые объявляют сервисы контроля доступа.
func GetAccessQueues() []QueueConfig {
	return []QueueConfig{
		{Exchange: ExchangeAccess, QueueName: QueueInvalidate, RoutingKey: RoutingKeyInvalidate},
		{Exchange: ExchangeNotifications, QueueName: QueueEntitlementChanged, RoutingKey: RoutingKeyEntitlementChanged},
		{Exchange: ExchangeNotifications, QueueName: QueueTrialExpired, RoutingKey: RoutingKeyTrialExpired},
	}
}

// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель: упростить формирование структурированных полей лога,
// например, для передачи информации об ошибках и участниках проверки доступа.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Subject возвращает группу "subject" с пользователем и организацией запроса.
// Пустая организация выводится как "-".
func Subject(userUID, organizationID string) slog.Attr {
	if organizationID == "" {
		organizationID = "-"
	}
	return slog.Group("subject",
		slog.String("user_uid", userUID),
		slog.String("organization_id", organizationID),
	)
}

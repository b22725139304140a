// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков, включая отказы контроля доступа.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse: структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// AccessDeniedResponse отказ шлюза доступа с машинно-читаемой причиной.
type AccessDeniedResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"pro required"`
	Reason string `json:"reason" example:"pro_required"`
}

// OrganizationRequiredResponse просьба выбрать организацию из списка.
type OrganizationRequiredResponse struct {
	Status        string                   `json:"status" example:"Error"`
	Error         string                   `json:"error" example:"organization required"`
	Organizations []models.OrganizationRef `json:"organizations"`
}

const (
	// StatusOK: значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError: значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// AccessDenied формирует отказ с причиной reason.
func AccessDenied(reason, msg string) AccessDeniedResponse {
	return AccessDeniedResponse{
		Status: StatusError,
		Error:  msg,
		Reason: reason,
	}
}

// OrganizationRequired формирует ответ со списком организаций пользователя.
func OrganizationRequired(orgs []models.OrganizationRef) OrganizationRequiredResponse {
	if orgs == nil {
		orgs = []models.OrganizationRef{}
	}
	return OrganizationRequiredResponse{
		Status:        StatusError,
		Error:         "organization required",
		Organizations: orgs,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

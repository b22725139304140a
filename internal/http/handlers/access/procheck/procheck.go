// Package procheck реализует HTTP-обработчик запроса Pro-доступа текущего пользователя.
//
// Обработчик не проходит через шлюз: он только сообщает результат вычисления
// Pro-доступа для организации из контекста (если она есть) и функции из параметра feature.
package procheck

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
)

// ProChecker вычисляет Pro-доступ.
type ProChecker interface {
	HasProAccess(ctx context.Context, user *models.User, org *models.Organization, feature models.Feature) (bool, error)
}

// Result тело успешного ответа.
type Result struct {
	HasProAccess   bool   `json:"has_pro_access"`
	Feature        string `json:"feature,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Handler отвечает на запрос проверки Pro-доступа текущего пользователя.
type Handler struct {
	log     *slog.Logger
	service ProChecker
}

// New создает Handler поверх вычислителя Pro-доступа.
func New(log *slog.Logger, service ProChecker) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка Pro-доступа
// @Tags access
// @Produce json
// @Param feature query string false "Функция"
// @Param X-Organization-ID header string false "Организация"
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /access/pro [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.procheck"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	u, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}
	org := middlewarectx.OrganizationFromContext(r.Context())
	feature := models.Feature(r.URL.Query().Get("feature"))

	has, err := h.service.HasProAccess(r.Context(), u, org, feature)
	if err != nil {
		log.Error("failed to evaluate pro access", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("access check unavailable"))
		return
	}

	res := Result{HasProAccess: has, Feature: string(feature)}
	if org != nil {
		res.OrganizationID = org.ID
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}

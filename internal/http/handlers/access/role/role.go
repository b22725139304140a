// Package role реализует HTTP-обработчик запроса роли пользователя в текущей организации.
package role

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

// RoleSource определяет роль пользователя в организации.
type RoleSource interface {
	RoleOf(ctx context.Context, userUID, organizationID string) (models.Role, bool, error)
}

// Result тело успешного ответа.
type Result struct {
	OrganizationID string      `json:"organization_id"`
	Role           models.Role `json:"role,omitempty"`
	Member         bool        `json:"member"`
}

// Handler возвращает роль пользователя в текущей организации.
type Handler struct {
	log     *slog.Logger
	service RoleSource
}

// New создает Handler.
func New(log *slog.Logger, service RoleSource) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Роль в текущей организации
// @Tags access
// @Produce json
// @Param X-Organization-ID header string false "Организация"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.OrganizationRequiredResponse
// @Failure 403 {object} response.AccessDeniedResponse
// @Security BearerAuth
// @Router /access/role [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.role"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	u, ok := middlewarectx.UserFromContext(r.Context())
	org := middlewarectx.OrganizationFromContext(r.Context())
	if !ok || org == nil {
		log.Error("user or organization missing in context")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	role, member, err := h.service.RoleOf(r.Context(), u.UUID, org.ID)
	if err != nil {
		log.Error("failed to resolve role", sl.Subject(u.UUID, org.ID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("access check unavailable"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Result{OrganizationID: org.ID, Role: role, Member: member}))
}

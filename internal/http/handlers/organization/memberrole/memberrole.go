// Package memberrole реализует HTTP-обработчик смены роли участника текущей организации.
package memberrole

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// Request тело запроса.
type Request struct {
	Role string `json:"role" validate:"required,oneof=owner admin member accountant bookkeeper advisor"`
}

// Service меняет роль участника.
type Service interface {
	ChangeRole(ctx context.Context, organizationID, userUID string, role models.Role) error
}

// Handler меняет роль участника организации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена роли участника
// @Tags organization
// @Accept json
// @Produce json
// @Param userID path string true "UID участника"
// @Param request body Request true "Роль"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /organization/members/{userID}/role [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.organization.memberrole"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	if err := h.validate.Var(userID, "required,uuid"); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	org := middlewarectx.OrganizationFromContext(r.Context())
	if org == nil {
		log.Error("organization missing in context")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	if err := h.service.ChangeRole(r.Context(), org.ID, userID, models.Role(req.Role)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("membership not found"))
			return
		}
		log.Error("failed to change role", sl.Subject(userID, org.ID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change role"))
		return
	}

	log.Info("member role changed", sl.Subject(userID, org.ID), slog.String("role", req.Role))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_uid":        userID,
		"organization_id": org.ID,
		"role":            req.Role,
	}))
}

// Package plan реализует HTTP-обработчик смены тарифа текущей организации.
package plan

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/services/entitlement"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// Request тело запроса.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=free pro enterprise"`
}

// Service меняет тариф организации.
type Service interface {
	ChangePlan(ctx context.Context, organizationID string, plan models.Plan) error
}

// Handler меняет тарифный план текущей организации.
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
// @Summary Смена тарифа организации
// @Tags organization
// @Accept json
// @Produce json
// @Param X-Organization-ID header string false "Организация"
// @Param request body Request true "Тариф"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.AccessDeniedResponse
// @Security BearerAuth
// @Router /organization/plan [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.organization.plan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	org := middlewarectx.OrganizationFromContext(r.Context())
	if org == nil {
		log.Error("organization missing in context")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	err := h.service.ChangePlan(r.Context(), org.ID, models.Plan(req.Plan))
	switch {
	case err == nil:
	case errors.Is(err, entitlement.ErrInvalidArgument):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid plan"))
		return
	case errors.Is(err, storage.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("organization not found"))
		return
	default:
		log.Error("failed to change plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change plan"))
		return
	}

	log.Info("organization plan changed", slog.String("organization_id", org.ID), slog.String("plan", req.Plan))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"organization_id": org.ID,
		"plan":            req.Plan,
	}))
}

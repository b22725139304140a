// Package accountantpro реализует HTTP-обработчик, который включает или выключает
// Pro-функции для бухгалтера в текущей организации.
package accountantpro

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
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// Request тело запроса.
type Request struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Service меняет флаг членства.
type Service interface {
	SetAccountantPro(ctx context.Context, organizationID, userUID string, enabled bool) error
}

// Handler включает и выключает Pro-функции для бухгалтера организации.
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
// @Summary Pro-функции для бухгалтера
// @Tags organization
// @Accept json
// @Produce json
// @Param userID path string true "UID участника"
// @Param request body Request true "Флаг"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /organization/members/{userID}/accountant-pro [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.organization.accountantpro"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	if err := h.validate.Var(userID, "required,uuid"); err != nil {
		log.Warn("invalid user id", slog.String("user_id", userID))
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

	if err := h.service.SetAccountantPro(r.Context(), org.ID, userID, *req.Enabled); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("membership not found"))
			return
		}
		log.Error("failed to update membership", sl.Subject(userID, org.ID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update membership"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_uid":                    userID,
		"organization_id":             org.ID,
		"pro_features_for_accountant": *req.Enabled,
	}))
}

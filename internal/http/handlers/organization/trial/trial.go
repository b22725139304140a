// Package trial реализует HTTP-обработчик выдачи пробного Pro-периода участнику
// текущей организации. Выдавать пробный период могут только спонсоры.
package trial

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
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

// Request тело запроса: длительность пробного периода в днях.
type Request struct {
	Days int `json:"days" validate:"required,min=1,max=90"`
}

// Service выдаёт пробный период.
type Service interface {
	GrantTrial(ctx context.Context, userUID string, until time.Time) error
}

// Members проверяет, что получатель состоит в организации.
type Members interface {
	GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error)
}

// Handler выдаёт пробный Pro-период участнику организации.
type Handler struct {
	log      *slog.Logger
	service  Service
	members  Members
	validate *validator.Validate
	now      func() time.Time
}

// New создает Handler. members используется для проверки, что получатель состоит в организации.
func New(log *slog.Logger, service Service, members Members) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		members:  members,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ServeHTTP godoc
// @Summary Выдача пробного периода
// @Tags organization
// @Accept json
// @Produce json
// @Param userID path string true "UID участника"
// @Param request body Request true "Длительность"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.AccessDeniedResponse
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /organization/members/{userID}/trial [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.organization.trial"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	if err := h.validate.Var(userID, "required,uuid"); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
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

	if _, err := h.members.GetMembership(r.Context(), userID, org.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership not found"))
			return
		}
		log.Error("failed to load membership", sl.Subject(userID, org.ID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	until := h.now().UTC().Add(time.Duration(req.Days) * 24 * time.Hour)
	if err := h.service.GrantTrial(r.Context(), userID, until); err != nil {
		switch {
		case errors.Is(err, entitlement.ErrInvalidArgument):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid trial period"))
		case errors.Is(err, storage.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to grant trial", sl.Subject(userID, org.ID), sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not grant trial"))
		}
		return
	}

	log.Info("trial granted", sl.Subject(userID, org.ID), slog.Time("until", until))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_uid":        userID,
		"pro_trial_until": until,
	}))
}

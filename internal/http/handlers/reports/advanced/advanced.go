// Package advanced реализует расширенный отчёт организации, доступный по Pro-доступу
// или бухгалтеру с флагом pro_features_for_accountant.
package advanced

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
)

// Report содержимое отчёта.
type Report struct {
	OrganizationID   string    `json:"organization_id"`
	Plan             string    `json:"plan"`
	Members          int       `json:"members"`
	GeneratedAt      time.Time `json:"generated_at"`
	AccountantBypass bool      `json:"accountant_bypass"`
}

// Service собирает данные отчёта.
type Service interface {
	CountMembers(ctx context.Context, organizationID string) (int, error)
}

// Handler формирует расширенный отчёт по организации.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Расширенный отчёт
// @Tags reports
// @Produce json
// @Param X-Organization-ID header string false "Организация"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.AccessDeniedResponse
// @Security BearerAuth
// @Router /reports/advanced [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reports.advanced"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	org := middlewarectx.OrganizationFromContext(r.Context())
	if org == nil {
		log.Error("organization missing in context")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	d, _ := middlewarectx.DecisionFromContext(r.Context())

	members, err := h.service.CountMembers(r.Context(), org.ID)
	if err != nil {
		log.Error("failed to build report", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build report"))
		return
	}

	report := Report{
		OrganizationID:   org.ID,
		Plan:             string(org.Plan),
		Members:          members,
		GeneratedAt:      h.now().UTC(),
		AccountantBypass: d.AccountantBypass,
	}
	log.Info("advanced report built", slog.String("organization_id", org.ID), slog.Bool("accountant_bypass", d.AccountantBypass))
	render.JSON(w, r, response.StatusOKWithData(report))
}

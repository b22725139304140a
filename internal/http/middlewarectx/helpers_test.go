package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
)

const (
	userUID = "9f1d2c3b-0000-4000-8000-000000000001"
	orgA    = "1b7e0c7a-0000-4000-8000-0000000000a1"
	orgB    = "1b7e0c7a-0000-4000-8000-0000000000b2"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type StoreMock struct{ mock.Mock }

func (m *StoreMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *StoreMock) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Organization)
	return o, args.Error(1)
}

func (m *StoreMock) GetMembership(ctx context.Context, uid, orgID string) (*models.Membership, error) {
	args := m.Called(ctx, uid, orgID)
	ms, _ := args.Get(0).(*models.Membership)
	return ms, args.Error(1)
}

func (m *StoreMock) ListUserOrganizations(ctx context.Context, uid string) ([]models.OrganizationRef, error) {
	args := m.Called(ctx, uid)
	refs, _ := args.Get(0).([]models.OrganizationRef)
	return refs, args.Error(1)
}

type GateMock struct{ mock.Mock }

func (m *GateMock) Check(ctx context.Context, req access.Request, p access.Policy) (access.Decision, error) {
	args := m.Called(ctx, req, p)
	return args.Get(0).(access.Decision), args.Error(1)
}

// okHandler отвечает 200 и передаёт запрос в inspect.
func okHandler(inspect func(*http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

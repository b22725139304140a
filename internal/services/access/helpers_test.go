package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/pro-access/internal/cache"
	"github.com/magabrotheeeer/pro-access/internal/models"
)

const (
	userUID = "9f1d2c3b-0000-4000-8000-000000000001"
	orgA    = "5a000000-0000-4000-8000-00000000000a"
	orgB    = "5b000000-0000-4000-8000-00000000000b"
)

var errDB = errors.New("connection refused")

// mockRepo реализует MembershipRepository
type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error) {
	args := m.Called(ctx, userUID, organizationID)
	if res := args.Get(0); res != nil {
		return res.(*models.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListUserOrganizations(ctx context.Context, userUID string) ([]models.OrganizationRef, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.([]models.OrganizationRef), args.Error(1)
	}
	return nil, args.Error(1)
}

// brokenCache имитирует недоступный Redis
type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) { return false, errDB }
func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errDB
}
func (brokenCache) Invalidate(context.Context, string) error { return errDB }
func (brokenCache) InvalidatePattern(context.Context, string) (int, error) {
	return 0, errDB
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newMemoryCache() *cache.Memory {
	return cache.NewMemory(1000, time.Hour)
}

func testFeatures() FeatureSet {
	fs, err := NewFeatureSet(
		[]string{"multi_org_panel", "bulk_reconcile"},
		[]string{"advanced_reports", "budget_forecast"},
	)
	if err != nil {
		panic(err)
	}
	return fs
}

func membership(role models.Role, accountantPro bool) *models.Membership {
	return &models.Membership{UserUID: userUID, OrganizationID: orgA, Role: role, ProFeaturesForAccountant: accountantPro}
}

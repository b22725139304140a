package memberfeature

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

const memberUID = "9f1d2c3b-0000-4000-8000-000000000002"

type MockService struct{ mock.Mock }

func (m *MockService) GrantFeature(ctx context.Context, userUID string, feature models.Feature) error {
	return m.Called(ctx, userUID, feature).Error(0)
}

func (m *MockService) RevokeFeature(ctx context.Context, userUID string, feature models.Feature) error {
	return m.Called(ctx, userUID, feature).Error(0)
}

type MockMembers struct{ mock.Mock }

func (m *MockMembers) GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error) {
	args := m.Called(ctx, userUID, organizationID)
	ms, _ := args.Get(0).(*models.Membership)
	return ms, args.Error(1)
}

func TestMemberFeatureHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	member := &models.Membership{UserUID: memberUID, OrganizationID: "o1", Role: models.RoleMember}

	tests := []struct {
		name       string
		method     string
		userID     string
		feature    string
		setupMock  func(*MockService, *MockMembers)
		wantStatus int
		wantBody   string
	}{
		{
			name:    "выдача функции",
			method:  http.MethodPut,
			userID:  memberUID,
			feature: "export_pdf",
			setupMock: func(s *MockService, m *MockMembers) {
				m.On("GetMembership", mock.Anything, memberUID, "o1").Return(member, nil)
				s.On("GrantFeature", mock.Anything, memberUID, models.Feature("export_pdf")).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"granted":true`,
		},
		{
			name:    "отзыв функции",
			method:  http.MethodDelete,
			userID:  memberUID,
			feature: "export_pdf",
			setupMock: func(s *MockService, m *MockMembers) {
				m.On("GetMembership", mock.Anything, memberUID, "o1").Return(member, nil)
				s.On("RevokeFeature", mock.Anything, memberUID, models.Feature("export_pdf")).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"granted":false`,
		},
		{
			name:       "неверный uid",
			method:     http.MethodPut,
			userID:     "42",
			feature:    "export_pdf",
			setupMock:  func(*MockService, *MockMembers) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid user id",
		},
		{
			name:    "получатель не в организации",
			method:  http.MethodPut,
			userID:  memberUID,
			feature: "export_pdf",
			setupMock: func(_ *MockService, m *MockMembers) {
				m.On("GetMembership", mock.Anything, memberUID, "o1").Return(nil, storage.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "membership not found",
		},
		{
			name:    "ошибка сервиса",
			method:  http.MethodDelete,
			userID:  memberUID,
			feature: "export_pdf",
			setupMock: func(s *MockService, m *MockMembers) {
				m.On("GetMembership", mock.Anything, memberUID, "o1").Return(member, nil)
				s.On("RevokeFeature", mock.Anything, memberUID, models.Feature("export_pdf")).Return(errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "could not change feature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, members := new(MockService), new(MockMembers)
			tt.setupMock(svc, members)

			req := httptest.NewRequest(tt.method, "/organization/members/"+tt.userID+"/features/"+tt.feature, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("userID", tt.userID)
			rctx.URLParams.Add("feature", tt.feature)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = middlewarectx.WithOrganization(ctx, &models.Organization{ID: "o1"})
			rec := httptest.NewRecorder()
			New(logger, svc, members).ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
			members.AssertExpectations(t)
		})
	}
}

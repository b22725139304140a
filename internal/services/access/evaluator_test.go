package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

var evalNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestEvaluator(repo MembershipRepository, c Cache) *Evaluator {
	e := NewEvaluator(repo, c, testFeatures(), DefaultCacheTTL, newNoopLogger(), nil)
	e.now = func() time.Time { return evalNow }
	return e
}

func at(d time.Duration) *time.Time {
	t := evalNow.Add(d)
	return &t
}

func TestEvaluator_HasProAccess(t *testing.T) {
	freeOrg := &models.Organization{ID: orgA, Name: "Acme", Plan: models.PlanFree}
	proOrg := &models.Organization{ID: orgA, Name: "Acme", Plan: models.PlanPro}
	enterpriseOrg := &models.Organization{ID: orgA, Name: "Acme", Plan: models.PlanEnterprise}

	notMember := func(m *mockRepo) {
		m.On("GetMembership", mock.Anything, userUID, orgA).Return(nil, storage.ErrNotFound)
	}
	memberWith := func(flag bool) func(*mockRepo) {
		return func(m *mockRepo) {
			m.On("GetMembership", mock.Anything, userUID, orgA).Return(membership(models.RoleAccountant, flag), nil)
		}
	}
	noRepo := func(*mockRepo) {}

	tests := []struct {
		name      string
		user      models.User
		org       *models.Organization
		feature   models.Feature
		setupMock func(*mockRepo)
		want      bool
	}{
		{
			name:      "глобальный Pro без организации и функции",
			user:      models.User{ProFeatures: true, AccountType: models.AccountPersonal},
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "глобальный Pro не фильтруется списками функций",
			user:      models.User{ProFeatures: true, AccountType: models.AccountAccountant},
			org:       freeOrg,
			feature:   "not_in_any_list",
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "активный пробный период",
			user:      models.User{ProTrialUntil: at(time.Second), AccountType: models.AccountPersonal},
			feature:   "not_in_any_list",
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "пробный период истекает ровно сейчас",
			user:      models.User{ProTrialUntil: at(0), AccountType: models.AccountPersonal},
			setupMock: noRepo,
			want:      false,
		},
		{
			name:      "пробный период истёк",
			user:      models.User{ProTrialUntil: at(-time.Hour), AccountType: models.AccountPersonal},
			setupMock: noRepo,
			want:      false,
		},
		{
			name:      "тариф pro без функции",
			user:      models.User{AccountType: models.AccountPersonal},
			org:       proOrg,
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "тариф pro и функция из списка участника",
			user:      models.User{AccountType: models.AccountPersonal},
			org:       proOrg,
			feature:   "advanced_reports",
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "тариф pro и функция бухгалтера для личного аккаунта",
			user:      models.User{AccountType: models.AccountPersonal},
			org:       proOrg,
			feature:   "multi_org_panel",
			setupMock: notMember,
			want:      false,
		},
		{
			name:      "тариф pro и функция бухгалтера для бухгалтера",
			user:      models.User{AccountType: models.AccountAccountant},
			org:       proOrg,
			feature:   "multi_org_panel",
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "тариф pro и функция вне списков для бухгалтера",
			user:      models.User{AccountType: models.AccountAccountant},
			org:       proOrg,
			feature:   "not_in_any_list",
			setupMock: memberWith(false),
			want:      false,
		},
		{
			name:      "тариф pro и функция вне списков для участника",
			user:      models.User{AccountType: models.AccountPersonal},
			org:       proOrg,
			feature:   "not_in_any_list",
			setupMock: notMember,
			want:      false,
		},
		{
			name:      "тариф enterprise не даёт доступ сам по себе",
			user:      models.User{AccountType: models.AccountPersonal},
			org:       enterpriseOrg,
			setupMock: notMember,
			want:      false,
		},
		{
			name:      "флаг бухгалтера в бесплатной организации",
			user:      models.User{AccountType: models.AccountAccountant},
			org:       freeOrg,
			feature:   "multi_org_panel",
			setupMock: memberWith(true),
			want:      true,
		},
		{
			name:      "флаг бухгалтера не зависит от функции",
			user:      models.User{AccountType: models.AccountAccountant},
			org:       proOrg,
			feature:   "not_in_any_list",
			setupMock: memberWith(true),
			want:      true,
		},
		{
			name:      "функция выдана пользователю",
			user:      models.User{AccountType: models.AccountPersonal, ProFeaturesList: []models.Feature{"export_pdf"}},
			org:       freeOrg,
			feature:   "export_pdf",
			setupMock: notMember,
			want:      true,
		},
		{
			name:      "функция выдана пользователю, без организации",
			user:      models.User{AccountType: models.AccountPersonal, ProFeaturesList: []models.Feature{"export_pdf"}},
			feature:   "export_pdf",
			setupMock: noRepo,
			want:      true,
		},
		{
			name:      "список функций без запрошенной функции",
			user:      models.User{AccountType: models.AccountPersonal, ProFeaturesList: []models.Feature{"export_pdf"}},
			setupMock: noRepo,
			want:      false,
		},
		{
			name:      "ничего не выдано",
			user:      models.User{AccountType: models.AccountPersonal},
			org:       freeOrg,
			setupMock: notMember,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			tt.setupMock(repo)
			e := newTestEvaluator(repo, newMemoryCache())

			user := tt.user
			user.UUID = userUID
			got, err := e.HasProAccess(context.Background(), &user, tt.org, tt.feature)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

// Пример из описания продукта: бухгалтер без личного Pro в бесплатной организации
// с флагом pro_features_for_accountant получает доступ.
func TestEvaluator_AccountantScenario(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetMembership", mock.Anything, userUID, orgA).Return(membership(models.RoleAccountant, true), nil)
	e := newTestEvaluator(repo, newMemoryCache())

	u := &models.User{UUID: userUID, AccountType: models.AccountAccountant}
	o := &models.Organization{ID: orgA, Plan: models.PlanFree}

	ok, err := e.HasProAccess(context.Background(), u, o, models.FeatureMultiOrgPanel)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluator_FeatureListRemovalFlipsResult(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetMembership", mock.Anything, userUID, orgA).Return(nil, storage.ErrNotFound)
	c := newMemoryCache()
	e := newTestEvaluator(repo, c)
	inv := NewInvalidator(c, newNoopLogger(), nil)
	ctx := context.Background()

	u := &models.User{UUID: userUID, AccountType: models.AccountPersonal, ProFeaturesList: []models.Feature{"export_pdf"}}
	o := &models.Organization{ID: orgA, Plan: models.PlanFree}

	ok, err := e.HasProAccess(ctx, u, o, "export_pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	u.ProFeaturesList = nil
	require.NoError(t, inv.InvalidateUser(ctx, userUID))

	ok, err = e.HasProAccess(ctx, u, o, "export_pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluator_CachedWithinTTL(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetMembership", mock.Anything, userUID, orgA).Return(membership(models.RoleAccountant, true), nil).Once()
	e := newTestEvaluator(repo, newMemoryCache())
	ctx := context.Background()

	u := &models.User{UUID: userUID, AccountType: models.AccountAccountant}
	o := &models.Organization{ID: orgA, Plan: models.PlanFree}

	for range 3 {
		ok, err := e.HasProAccess(ctx, u, o, "")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	repo.AssertNumberOfCalls(t, "GetMembership", 1)

	// без явной инвалидации изменение записи не видно до истечения TTL
	u.AccountType = models.AccountPersonal
	ok, err := e.HasProAccess(ctx, u, o, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluator_KeysSeparateFeaturesAndScopes(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetMembership", mock.Anything, userUID, orgA).Return(nil, storage.ErrNotFound)
	e := newTestEvaluator(repo, newMemoryCache())
	ctx := context.Background()

	u := &models.User{UUID: userUID, AccountType: models.AccountPersonal}
	pro := &models.Organization{ID: orgA, Plan: models.PlanPro}

	ok, err := e.HasProAccess(ctx, u, pro, "advanced_reports")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.HasProAccess(ctx, u, pro, "multi_org_panel")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.HasProAccess(ctx, u, nil, "advanced_reports")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluator_FeatureNamedNoneDoesNotShadowPlainCheck(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetMembership", mock.Anything, userUID, orgA).Return(nil, storage.ErrNotFound)
	e := newTestEvaluator(repo, newMemoryCache())
	ctx := context.Background()

	u := &models.User{UUID: userUID, AccountType: models.AccountPersonal}
	pro := &models.Organization{ID: orgA, Plan: models.PlanPro}

	ok, err := e.HasProAccess(ctx, u, pro, "none")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.HasProAccess(ctx, u, pro, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDecisionKey_Distinct(t *testing.T) {
	org := &models.Organization{ID: orgA}
	assert.NotEqual(t, decisionKey(userUID, org, ""), decisionKey(userUID, org, "none"))
	assert.NotEqual(t, decisionKey(userUID, nil, ""), decisionKey(userUID, nil, "none"))
	assert.Equal(t, "access:pro:"+userUID+":"+orgA+":none", decisionKey(userUID, org, ""))
	assert.Equal(t, "access:pro:"+userUID+":global:f:export_pdf", decisionKey(userUID, nil, "export_pdf"))
}

func TestEvaluator_TrialGrantNotCachedPastExpiry(t *testing.T) {
	c := &recordingCache{Cache: newMemoryCache()}
	e := newTestEvaluator(new(mockRepo), c)

	u := &models.User{UUID: userUID, ProTrialUntil: at(30 * time.Second)}
	ok, err := e.HasProAccess(context.Background(), u, nil, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, c.lastTTL)
}

func TestEvaluator_StorageUnavailable(t *testing.T) {
	t.Run("кеш", func(t *testing.T) {
		e := newTestEvaluator(new(mockRepo), brokenCache{})
		_, err := e.HasProAccess(context.Background(), &models.User{UUID: userUID, ProFeatures: true}, nil, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("членства", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetMembership", mock.Anything, userUID, orgA).Return(nil, errDB)
		e := newTestEvaluator(repo, newMemoryCache())

		_, err := e.HasProAccess(context.Background(),
			&models.User{UUID: userUID, AccountType: models.AccountPersonal},
			&models.Organization{ID: orgA, Plan: models.PlanFree}, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, errDB)
	})
}

// recordingCache запоминает TTL последней записи
type recordingCache struct {
	Cache
	lastTTL time.Duration
}

func (c *recordingCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	c.lastTTL = expiration
	return c.Cache.Set(ctx, key, value, expiration)
}

package access

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/storage"
)

type pipelineFixture struct {
	clock   *fakeClock
	maker   *jwt.MakerImpl
	store   *AccountStoreMock
	metrics *Metrics
	authz   *Authorizer
}

func newPipelineFixture() *pipelineFixture {
	clock := newClock()
	maker := newMaker(clock)
	store := new(AccountStoreMock)
	metrics := NewMetrics(prometheus.NewRegistry())
	log := newNoopLogger()

	authz := NewAuthorizer(
		NewResolver(log, maker, store),
		NewSubscriptionGate(log, store, nil, clock.Now),
		metrics,
	)
	return &pipelineFixture{clock: clock, maker: maker, store: store, metrics: metrics, authz: authz}
}

func (f *pipelineFixture) bearer(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	token, err := f.maker.GenerateToken(id, role)
	require.NoError(t, err)
	return "Bearer " + token
}

var createGym = Policy{Name: "gyms.create", Role: models.RoleGymOwner, RequireSubscription: true}

func TestPipeline_ExpiredTrialOnCreateGym(t *testing.T) {
	f := newPipelineFixture()
	owner := gymOwner(7, true, f.clock.Now().AddDate(0, 0, -1))

	f.store.On("GetPrincipal", mock.Anything, int64(7)).Return(owner, nil).Once()
	f.store.On("SetSubscriptionActive", mock.Anything, int64(7), false).Return(nil).Once()

	d := f.authz.Pipeline(createGym).Evaluate(t.Context(), f.bearer(t, 7, models.RoleGymOwner))

	assert.False(t, d.Allowed)
	assert.Equal(t, SubscriptionInactive, d.Failure)
	assert.NotEqual(t, RoleMismatch, d.Failure)
	assert.False(t, owner.IsSubscriptionActive)
	f.store.AssertExpectations(t)

	assert.InDelta(t, 1, testutil.ToFloat64(
		f.metrics.decisions.WithLabelValues("gyms.create", "subscription_inactive")), 0)
}

func TestPipeline_MissingHeaderShortCircuits(t *testing.T) {
	f := newPipelineFixture()

	d := f.authz.Pipeline(createGym).Evaluate(t.Context(), "")

	assert.False(t, d.Allowed)
	assert.Equal(t, MissingCredential, d.Failure)
	assert.Equal(t, 401, d.Failure.HTTPStatus())
	assert.Nil(t, d.Principal)
	f.store.AssertNotCalled(t, "GetPrincipal", mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "SetSubscriptionActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_StageOrder(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		principal *models.Principal
		wantKind  Kind
		wantWrite bool
	}{
		{
			name:      "role mismatch stops before subscription check",
			policy:    createGym,
			principal: &models.Principal{ID: 3, Role: models.RoleUser},
			wantKind:  RoleMismatch,
		},
		{
			name:      "admin is not a gym owner",
			policy:    createGym,
			principal: &models.Principal{ID: 4, Role: models.RoleAdmin, IsSubscriptionActive: true},
			wantKind:  RoleMismatch,
		},
		{
			name:      "active trial passes",
			policy:    createGym,
			principal: gymOwner(7, true, time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)),
			wantKind:  KindNone,
		},
		{
			name:      "authenticated only",
			policy:    Policy{},
			principal: &models.Principal{ID: 5, Role: models.RoleUser},
			wantKind:  KindNone,
		},
		{
			name:      "admin only",
			policy:    Policy{Name: "users.list", Role: models.RoleAdmin},
			principal: &models.Principal{ID: 6, Role: models.RoleAdmin},
			wantKind:  KindNone,
		},
		{
			name:      "subscription without role requirement",
			policy:    Policy{Name: "reports", RequireSubscription: true},
			principal: &models.Principal{ID: 8, Role: models.RoleUser},
			wantKind:  RoleMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			f.store.On("GetPrincipal", mock.Anything, tt.principal.ID).Return(tt.principal, nil).Once()

			d := f.authz.Pipeline(tt.policy).Evaluate(t.Context(), f.bearer(t, tt.principal.ID, tt.principal.Role))

			assert.Equal(t, tt.wantKind, d.Failure)
			assert.Equal(t, tt.wantKind == KindNone, d.Allowed)
			if d.Allowed {
				assert.Same(t, tt.principal, d.Principal)
			}
			f.store.AssertExpectations(t)
			f.store.AssertNotCalled(t, "SetSubscriptionActive", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPipeline_TokenFailuresBeforeRole(t *testing.T) {
	f := newPipelineFixture()

	expired := jwt.NewJWTMaker(testSecret, time.Minute, jwt.WithClock(func() time.Time {
		return f.clock.Now().Add(-time.Hour)
	}))
	token, err := expired.GenerateToken(3, models.RoleUser)
	require.NoError(t, err)

	d := f.authz.Pipeline(createGym).Evaluate(t.Context(), "Bearer "+token)
	assert.Equal(t, Expired, d.Failure)

	d = f.authz.Pipeline(createGym).Evaluate(t.Context(), "Bearer "+token+"x")
	assert.Equal(t, SignatureInvalid, d.Failure)

	f.store.AssertNotCalled(t, "GetPrincipal", mock.Anything, mock.Anything)
}

func TestPipeline_DeletedAccount(t *testing.T) {
	f := newPipelineFixture()
	f.store.On("GetPrincipal", mock.Anything, int64(11)).Return(nil, storage.ErrNotFound).Once()

	d := f.authz.Pipeline(Policy{Role: models.RoleUser}).Evaluate(t.Context(), f.bearer(t, 11, models.RoleUser))

	assert.Equal(t, PrincipalNotFound, d.Failure)
	assert.Equal(t, 401, d.Failure.HTTPStatus())
	assert.Equal(t, "authenticated", f.authz.Pipeline(Policy{}).Policy().Name)
}

func TestPipeline_NilMetrics(t *testing.T) {
	clock := newClock()
	store := new(AccountStoreMock)
	log := newNoopLogger()
	authz := NewAuthorizer(NewResolver(log, newMaker(clock), store), NewSubscriptionGate(log, store, nil, clock.Now), nil)

	assert.NotPanics(t, func() {
		d := authz.Pipeline(Policy{}).Evaluate(t.Context(), "")
		assert.Equal(t, MissingCredential, d.Failure)
	})
}

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/lib/password"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/services/auth"
	"github.com/gymly/gymly/internal/storage"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreatePrincipal(ctx context.Context, p models.Principal) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

type EventsMock struct {
	mock.Mock
}

func (m *EventsMock) AccountRegistered(ctx context.Context, p *models.Principal, at time.Time) error {
	return m.Called(ctx, p.ID, at).Error(0)
}

var testNow = time.Date(2025, 11, 26, 5, 0, 0, 0, time.UTC)

func newService(repo *UserRepoMock, opts ...auth.Option) (*auth.Service, *jwt.MakerImpl) {
	clock := func() time.Time { return testNow }
	maker := jwt.NewJWTMaker("test_secret", time.Hour, jwt.WithClock(clock))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]auth.Option{auth.WithClock(clock)}, opts...)
	return auth.New(log, repo, password.NewHasher(4), maker, 30*24*time.Hour, opts...), maker
}

func TestService_Signup(t *testing.T) {
	repo := &UserRepoMock{}
	svc, _ := newService(repo)
	ctx := context.Background()

	repo.On("CreatePrincipal", ctx, mock.MatchedBy(func(p models.Principal) bool {
		return p.Email == "alice@example.com" &&
			p.Name == "Alice" &&
			p.Role == models.RoleUser &&
			!p.IsSubscriptionActive &&
			p.TrialStartedAt == nil &&
			p.TrialEndsAt == nil &&
			p.IsActive &&
			p.PasswordHash != "" && p.PasswordHash != "secret123"
	})).Return(int64(1), nil).Once()

	p, err := svc.Signup(ctx, auth.SignupInput{Name: " Alice ", Email: "  Alice@Example.COM ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.NoError(t, password.CompareHash(p.PasswordHash, "secret123"))
	repo.AssertExpectations(t)
}

func TestService_SignupGymOwner(t *testing.T) {
	repo := &UserRepoMock{}
	events := &EventsMock{}
	svc, _ := newService(repo, auth.WithEvents(events))
	ctx := context.Background()

	repo.On("CreatePrincipal", ctx, mock.AnythingOfType("models.Principal")).Return(int64(7), nil).Once()
	events.On("AccountRegistered", ctx, int64(7), testNow).Return(errors.New("broker down")).Once()

	p, err := svc.SignupGymOwner(ctx, auth.SignupInput{Name: "Owner", Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err, "publish failure must not fail signup")

	assert.Equal(t, models.RoleGymOwner, p.Role)
	assert.True(t, p.IsSubscriptionActive)
	require.NotNil(t, p.TrialStartedAt)
	require.NotNil(t, p.TrialEndsAt)
	assert.True(t, testNow.Equal(*p.TrialStartedAt))
	assert.True(t, testNow.AddDate(0, 0, 30).Equal(*p.TrialEndsAt))
	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestService_Signup_EmailTaken(t *testing.T) {
	repo := &UserRepoMock{}
	svc, _ := newService(repo)
	ctx := context.Background()

	repo.On("CreatePrincipal", ctx, mock.Anything).
		Return(int64(0), errors.Join(errors.New("storage.CreatePrincipal"), storage.ErrEmailTaken))

	_, err := svc.Signup(ctx, auth.SignupInput{Name: "A", Email: "a@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
	assert.ErrorContains(t, err, "auth.Signup")
}

func TestService_Login(t *testing.T) {
	hash, err := password.NewHasher(4).Hash("secret123")
	require.NoError(t, err)

	active := &models.Principal{ID: 7, Email: "owner@example.com", Role: models.RoleGymOwner, PasswordHash: hash, IsActive: true}
	disabled := &models.Principal{ID: 8, Email: "blocked@example.com", Role: models.RoleUser, PasswordHash: hash, IsActive: false}

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(repo *UserRepoMock)
		wantErr  error
		wantID   int64
	}{
		{
			name:     "success with normalized email",
			email:    " Owner@Example.com",
			password: "secret123",
			setup: func(repo *UserRepoMock) {
				repo.On("GetPrincipalByEmail", mock.Anything, "owner@example.com").Return(active, nil)
			},
			wantID: 7,
		},
		{
			name:     "unknown email",
			email:    "ghost@example.com",
			password: "secret123",
			setup: func(repo *UserRepoMock) {
				repo.On("GetPrincipalByEmail", mock.Anything, "ghost@example.com").Return(nil, storage.ErrNotFound)
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "owner@example.com",
			password: "wrong",
			setup: func(repo *UserRepoMock) {
				repo.On("GetPrincipalByEmail", mock.Anything, "owner@example.com").Return(active, nil)
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "disabled account",
			email:    "blocked@example.com",
			password: "secret123",
			setup: func(repo *UserRepoMock) {
				repo.On("GetPrincipalByEmail", mock.Anything, "blocked@example.com").Return(disabled, nil)
			},
			wantErr: auth.ErrAccountDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &UserRepoMock{}
			tt.setup(repo)
			svc, maker := newService(repo)

			res, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.User.ID)

			claims, err := maker.ParseToken(res.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, claims.UserID)
			assert.Equal(t, models.RoleGymOwner, claims.Role)
		})
	}
}

type countingHasher struct {
	*password.Hasher
	digests []string
}

func (h *countingHasher) Verify(pw, digest string) bool {
	h.digests = append(h.digests, digest)
	return h.Hasher.Verify(pw, digest)
}

func TestService_Login_UnknownEmailStillComparesPassword(t *testing.T) {
	repo := &UserRepoMock{}
	repo.On("GetPrincipalByEmail", mock.Anything, "ghost@example.com").Return(nil, storage.ErrNotFound).Twice()

	hasher := &countingHasher{Hasher: password.NewHasher(4)}
	maker := jwt.NewJWTMaker("test_secret", time.Hour)
	svc := auth.New(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, hasher, maker, time.Hour)

	for range 2 {
		_, err := svc.Login(context.Background(), "ghost@example.com", "secret123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	require.Len(t, hasher.digests, 2)
	assert.True(t, strings.HasPrefix(hasher.digests[0], "$2a$04$"), hasher.digests[0])
	assert.Equal(t, hasher.digests[0], hasher.digests[1], "dummy digest is computed once")
	repo.AssertExpectations(t)
}

func TestService_Login_StoreError(t *testing.T) {
	repo := &UserRepoMock{}
	repo.On("GetPrincipalByEmail", mock.Anything, "a@example.com").Return(nil, errors.New("connection reset"))
	svc, _ := newService(repo)

	_, err := svc.Login(context.Background(), "a@example.com", "x")
	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

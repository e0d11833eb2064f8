package access

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/models"
)

const testSecret = "test_secret_key_1234567890"

type AccountStoreMock struct {
	mock.Mock
}

func (m *AccountStoreMock) GetPrincipal(ctx context.Context, id int64) (*models.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func (m *AccountStoreMock) SetSubscriptionActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

type EventPublisherMock struct {
	mock.Mock
}

func (m *EventPublisherMock) TrialExpired(ctx context.Context, p *models.Principal, at time.Time) error {
	args := m.Called(ctx, p.ID, at)
	return args.Error(0)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 11, 26, 5, 0, 0, 0, time.UTC)}
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newMaker(clock *fakeClock) *jwt.MakerImpl {
	return jwt.NewJWTMaker(testSecret, 24*time.Hour, jwt.WithClock(clock.Now))
}

func ptr(t time.Time) *time.Time {
	return &t
}

func gymOwner(id int64, active bool, trialEnds time.Time) *models.Principal {
	return &models.Principal{
		ID:                   id,
		Name:                 "Owner",
		Email:                "owner@example.com",
		Role:                 models.RoleGymOwner,
		IsSubscriptionActive: active,
		TrialStartedAt:       ptr(trialEnds.AddDate(0, 0, -30)),
		TrialEndsAt:          ptr(trialEnds),
		IsActive:             true,
	}
}

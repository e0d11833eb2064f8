package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
)

// EventPublisher получает уведомление об истечении пробного периода.
type EventPublisher interface {
	TrialExpired(ctx context.Context, p *models.Principal, at time.Time) error
}

// SubscriptionGate проверяет подписку владельца зала и лениво переводит
// истёкший пробный период в неактивное состояние.
type SubscriptionGate struct {
	log      *slog.Logger
	accounts AccountStore
	events   EventPublisher
	now      func() time.Time
}

// NewSubscriptionGate создаёт SubscriptionGate. events может быть nil,
// now по умолчанию time.Now.
func NewSubscriptionGate(log *slog.Logger, accounts AccountStore, events EventPublisher, now func() time.Time) *SubscriptionGate {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionGate{
		log:      log,
		accounts: accounts,
		events:   events,
		now:      now,
	}
}

// Check выносит решение о доступе к операции.
//
// Если пробный период истёк, а флаг подписки ещё true, флаг сбрасывается
// и сохраняется до принятия решения. Ошибка сохранения даёт отказ Internal.
func (g *SubscriptionGate) Check(ctx context.Context, p *models.Principal, requiresSubscription bool) Decision {
	const op = "access.SubscriptionGate.Check"

	if !requiresSubscription {
		return allow(p)
	}
	if p == nil {
		return deny(nil, newError(Internal, errors.New("subscription check without principal")))
	}
	if p.Role != models.RoleGymOwner {
		return deny(p, newError(RoleMismatch, fmt.Errorf("only gym owners have subscriptions, role %q", p.Role)))
	}

	log := g.log.With(sl.Op(op), slog.Int64("user_id", p.ID))

	now := g.now()
	if p.IsSubscriptionActive && p.TrialElapsed(now) {
		p.IsSubscriptionActive = false
		if err := g.accounts.SetSubscriptionActive(ctx, p.ID, false); err != nil {
			log.Error("failed to persist trial expiry", sl.Err(err))
			return deny(p, newError(Internal, err))
		}
		log.Info("trial expired, subscription deactivated", slog.Time("trial_ends_at", *p.TrialEndsAt))
		g.publishExpired(ctx, log, p, now)
	}

	if !p.IsSubscriptionActive {
		return deny(p, newError(SubscriptionInactive, nil))
	}
	return allow(p)
}

func (g *SubscriptionGate) publishExpired(ctx context.Context, log *slog.Logger, p *models.Principal, at time.Time) {
	if g.events == nil {
		return
	}
	if err := g.events.TrialExpired(ctx, p, at); err != nil {
		log.Warn("failed to publish trial expired event", sl.Err(err))
	}
}

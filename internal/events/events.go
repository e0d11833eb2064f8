// Package events публикует события учётных записей в RabbitMQ.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gymly/gymly/internal/lib/rabbitmq"
	"github.com/gymly/gymly/internal/models"
)

// Ключи маршрутизации событий.
const (
	RoutingAccountRegistered = "account.registered"
	RoutingTrialExpired      = "account.trial_expired"
)

// AccountEvent публикуется в обменник в виде JSON.
type AccountEvent struct {
	EventID     string      `json:"event_id"`
	Type        string      `json:"type"`
	UserID      int64       `json:"user_id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	TrialEndsAt *time.Time  `json:"trial_ends_at,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Publisher публикует события в обменник exchange.
type Publisher struct {
	ch       rabbitmq.Channel
	exchange string
	newID    func() string
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch rabbitmq.Channel, exchange string) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		newID:    func() string { return uuid.NewString() },
	}
}

// TrialExpired сообщает, что пробный период истёк и подписка отключена.
func (p *Publisher) TrialExpired(ctx context.Context, principal *models.Principal, at time.Time) error {
	return p.publish(ctx, RoutingTrialExpired, principal, at)
}

// AccountRegistered сообщает о новой учётной записи.
func (p *Publisher) AccountRegistered(ctx context.Context, principal *models.Principal, at time.Time) error {
	return p.publish(ctx, RoutingAccountRegistered, principal, at)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, principal *models.Principal, at time.Time) error {
	const op = "events.publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	evt := AccountEvent{
		EventID:     p.newID(),
		Type:        routingKey,
		UserID:      principal.ID,
		Email:       principal.Email,
		Role:        principal.Role,
		TrialEndsAt: principal.TrialEndsAt,
		OccurredAt:  at.UTC(),
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, routingKey, evt.EventID, evt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

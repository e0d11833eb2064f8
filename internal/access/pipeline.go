package access

import (
	"context"
	"time"

	"github.com/gymly/gymly/internal/models"
)

// Policy — требования защищённой операции.
type Policy struct {
	Name                string      // Имя для журнала и метрик
	Role                models.Role // Требуемая роль; пустая — любая аутентифицированная
	RequireSubscription bool        // Операция требует активной подписки
}

// Authorizer хранит общие компоненты и собирает из них Pipeline.
type Authorizer struct {
	resolver      *Resolver
	roles         RoleGate
	subscriptions *SubscriptionGate
	metrics       *Metrics
}

// NewAuthorizer создаёт Authorizer. metrics может быть nil.
// Отказы журналирует вызывающая сторона, например middlewarectx.Guard.
func NewAuthorizer(resolver *Resolver, subscriptions *SubscriptionGate, metrics *Metrics) *Authorizer {
	return &Authorizer{
		resolver:      resolver,
		subscriptions: subscriptions,
		metrics:       metrics,
	}
}

// Pipeline собирает цепочку проверок для операции.
func (a *Authorizer) Pipeline(policy Policy) *Pipeline {
	if policy.Name == "" {
		policy.Name = "authenticated"
	}
	return &Pipeline{policy: policy, authz: a}
}

// Pipeline — упорядоченная цепочка Resolver -> RoleGate -> SubscriptionGate.
type Pipeline struct {
	policy Policy
	authz  *Authorizer
}

// Policy возвращает требования, из которых собрана цепочка.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Evaluate проверяет запрос. Первый отказ определяет результат,
// следующие этапы не выполняются.
func (p *Pipeline) Evaluate(ctx context.Context, authorizationHeader string) Decision {
	start := time.Now()
	d := p.evaluate(ctx, authorizationHeader)
	p.authz.metrics.record(p.policy.Name, d, time.Since(start))
	return d
}

func (p *Pipeline) evaluate(ctx context.Context, header string) Decision {
	principal, err := p.authz.resolver.Resolve(ctx, header)
	if err != nil {
		return Decision{Failure: KindOf(err), Err: err}
	}

	if p.policy.Role != "" {
		if d := p.authz.roles.Check(principal, p.policy.Role); !d.Allowed {
			return d
		}
	}

	if p.policy.RequireSubscription {
		return p.authz.subscriptions.Check(ctx, principal, true)
	}
	return allow(principal)
}

package access

import (
	"context"

	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/models"
)

// AccountStore — хранилище учётных записей, которым пользуется ядро.
type AccountStore interface {
	// GetPrincipal возвращает учётную запись или storage.ErrNotFound.
	GetPrincipal(ctx context.Context, id int64) (*models.Principal, error)
	// SetSubscriptionActive атомарно меняет только поле is_subscription_active.
	SetSubscriptionActive(ctx context.Context, id int64, active bool) error
}

// TokenParser разбирает токен доступа.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// Package jwt реализует выпуск и разбор подписанных токенов доступа.
//
// Токен несёт идентификатор учётной записи, снимок роли на момент выпуска
// и срок действия. Токены нигде не хранятся: проверка выполняется только
// по подписи общим секретом и по полю exp.
package jwt

import (
	"errors"
	"time"

	"github.com/gymly/gymly/internal/models"
)

// DefaultTokenTTL — срок действия токена, выдаваемого при входе.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrSignatureInvalid — токен повреждён, подписан другим секретом или другим алгоритмом.
	ErrSignatureInvalid = errors.New("token signature is invalid")
	// ErrExpired — подпись верна, но срок действия истёк.
	ErrExpired = errors.New("token has expired")
)

// Maker описывает интерфейс для выпуска и разбора токенов.
type Maker interface {
	// GenerateToken выпускает токен для учётной записи с указанной ролью.
	GenerateToken(userID int64, role models.Role) (string, error)
	// ParseToken проверяет подпись и срок действия и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// Option настраивает MakerImpl.
type Option func(*MakerImpl)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(m *MakerImpl) {
		m.now = now
	}
}

// MakerImpl реализует Maker на HS256 с единственным секретом.
type MakerImpl struct {
	secretKey []byte        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
// Нулевой TTL заменяется на DefaultTokenTTL.
func NewJWTMaker(secretKey string, ttl time.Duration, opts ...Option) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	m := &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL возвращает срок действия выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}

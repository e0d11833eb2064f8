package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gymly/gymly/internal/models"
)

// CustomClaims — полезная нагрузка токена: {user_id, role, iat, exp}.
// Формат используется другими сервисами и должен оставаться стабильным.
type CustomClaims struct {
	UserID               int64       `json:"user_id"` // Идентификатор учётной записи
	Role                 models.Role `json:"role"`    // Роль на момент выпуска, только подсказка
	jwt.RegisteredClaims             // exp и iat
}

// GenerateToken создает токен для userID и role, подписывая его секретным ключом.
func (j *MakerImpl) GenerateToken(userID int64, role models.Role) (string, error) {
	const op = "jwt.GenerateToken"
	now := j.now()
	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
//
// Возвращает ошибку, оборачивающую ErrExpired, если подпись верна, но срок
// истёк, и ErrSignatureInvalid во всех остальных случаях.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrExpired, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSignatureInvalid, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%s: %w: missing user_id", op, ErrSignatureInvalid)
	}
	return claims, nil
}

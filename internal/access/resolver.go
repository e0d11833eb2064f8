package access

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/storage"
)

const bearerPrefix = "Bearer "

// Resolver сопоставляет заголовок Authorization актуальной учётной записи.
type Resolver struct {
	log      *slog.Logger
	tokens   TokenParser
	accounts AccountStore
}

// NewResolver создаёт Resolver.
func NewResolver(log *slog.Logger, tokens TokenParser, accounts AccountStore) *Resolver {
	return &Resolver{
		log:      log,
		tokens:   tokens,
		accounts: accounts,
	}
}

// BearerToken извлекает токен из заголовка вида "Bearer <token>".
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// Resolve проверяет токен и загружает учётную запись по user_id из токена.
//
// Роль из токена не используется для авторизации: решения принимаются
// по роли из хранилища.
func (r *Resolver) Resolve(ctx context.Context, header string) (*models.Principal, error) {
	const op = "access.Resolve"
	log := r.log.With(sl.Op(op))

	tokenStr, ok := BearerToken(header)
	if !ok {
		return nil, ErrMissingCredential
	}

	claims, err := r.tokens.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			log.Debug("token expired", sl.Err(err))
			return nil, newError(Expired, err)
		}
		log.Warn("token rejected", sl.Err(err))
		return nil, newError(SignatureInvalid, err)
	}

	principal, err := r.accounts.GetPrincipal(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("principal not found", slog.Int64("user_id", claims.UserID))
			return nil, newError(PrincipalNotFound, err)
		}
		log.Error("failed to load principal", slog.Int64("user_id", claims.UserID), sl.Err(err))
		return nil, newError(Internal, err)
	}

	if principal.Role != claims.Role {
		log.Debug("role changed since token issuance",
			slog.Int64("user_id", principal.ID),
			slog.String("token_role", claims.Role.String()),
			slog.String("role", principal.Role.String()),
		)
	}
	return principal, nil
}

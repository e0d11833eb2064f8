package access

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — вид отказа в доступе.
type Kind int

const (
	// KindNone — отказа нет.
	KindNone Kind = iota
	// MissingCredential — заголовок Authorization отсутствует или не в формате Bearer.
	MissingCredential
	// SignatureInvalid — токен повреждён или подписан другим секретом.
	SignatureInvalid
	// Expired — подпись верна, срок действия токена истёк.
	Expired
	// PrincipalNotFound — учётная запись удалена после выпуска токена.
	PrincipalNotFound
	// RoleMismatch — текущая роль не совпадает с требуемой.
	RoleMismatch
	// SubscriptionInactive — подписка неактивна или пробный период истёк.
	SubscriptionInactive
	// Internal — хранилище учётных записей недоступно.
	Internal
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	MissingCredential:    "missing_credential",
	SignatureInvalid:     "signature_invalid",
	Expired:              "expired",
	PrincipalNotFound:    "principal_not_found",
	RoleMismatch:         "role_mismatch",
	SubscriptionInactive: "subscription_inactive",
	Internal:             "internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus возвращает HTTP-статус, которым отказ отдаётся клиенту.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case MissingCredential, SignatureInvalid, Expired, PrincipalNotFound:
		return http.StatusUnauthorized
	case RoleMismatch, SubscriptionInactive:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage возвращает текст для клиента. Для SignatureInvalid, Expired и
// PrincipalNotFound текст одинаковый, чтобы ответ не выдавал причину.
func (k Kind) PublicMessage() string {
	switch k {
	case MissingCredential:
		return "missing or invalid authorization header"
	case SignatureInvalid, Expired, PrincipalNotFound:
		return "invalid or expired credential"
	case RoleMismatch:
		return "access denied"
	case SubscriptionInactive:
		return "subscription inactive, please subscribe to continue"
	default:
		return "internal service error"
	}
}

// Error — отказ в доступе с видом и причиной.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinel-значения для errors.Is.
var (
	ErrMissingCredential    = &Error{Kind: MissingCredential}
	ErrSignatureInvalid     = &Error{Kind: SignatureInvalid}
	ErrExpired              = &Error{Kind: Expired}
	ErrPrincipalNotFound    = &Error{Kind: PrincipalNotFound}
	ErrRoleMismatch         = &Error{Kind: RoleMismatch}
	ErrSubscriptionInactive = &Error{Kind: SubscriptionInactive}
	ErrInternal             = &Error{Kind: Internal}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("access: %s: %v", e.Kind, e.Err)
	}
	return "access: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по виду отказа.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf возвращает вид отказа из цепочки ошибок или Internal,
// если ошибка не относится к контролю доступа.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

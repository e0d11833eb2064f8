package access

import "github.com/gymly/gymly/internal/models"

// Decision — результат проверки одного запроса. Не сохраняется.
type Decision struct {
	Allowed   bool
	Principal *models.Principal
	Failure   Kind
	Err       error
}

func allow(p *models.Principal) Decision {
	return Decision{Allowed: true, Principal: p}
}

func deny(p *models.Principal, err *Error) Decision {
	return Decision{Principal: p, Failure: err.Kind, Err: err}
}

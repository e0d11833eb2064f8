package access

import (
	"errors"
	"fmt"

	"github.com/gymly/gymly/internal/models"
)

// RoleGate пропускает учётную запись только с точно совпадающей ролью.
// admin не заменяет gym_owner или user.
type RoleGate struct{}

// Check сравнивает текущую роль учётной записи с требуемой.
func (RoleGate) Check(p *models.Principal, required models.Role) Decision {
	if p == nil {
		return deny(nil, newError(Internal, errors.New("role check without principal")))
	}
	if p.Role != required {
		return deny(p, newError(RoleMismatch, fmt.Errorf("role %q, required %q", p.Role, required)))
	}
	return allow(p)
}

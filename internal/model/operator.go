package model

import "time"

// Operator roles. Only cashiers and admins may open a register session.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Operator is an identity record managed by remote admin tooling and mirrored
// into the local replica so PIN matching keeps working offline.
type Operator struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PINHash   string    `json:"pinHash"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanOperateRegister reports whether this operator may run a terminal session.
func (o Operator) CanOperateRegister() bool {
	return o.Active && (o.Role == RoleCashier || o.Role == RoleAdmin)
}

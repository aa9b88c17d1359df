package domain

type Role string

const (
	RoleServer    Role = "server"
	RoleBartender Role = "bartender"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleServer, RoleBartender, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanComp reports whether the role may comp lines and void checks.
func (r Role) CanComp() bool {
	return r == RoleManager || r == RoleAdmin
}

type Staff struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

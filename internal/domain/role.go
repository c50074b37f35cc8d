package domain

// Role is the effective capability of an actor.
type Role int

const (
	RoleCustomer Role = iota
	RoleAgent
	RoleAdmin
)

// RoleFromFlags maps the stored flags onto a Role. Admin wins over agent.
func RoleFromFlags(isAgent, isAdmin bool) Role {
	switch {
	case isAdmin:
		return RoleAdmin
	case isAgent:
		return RoleAgent
	default:
		return RoleCustomer
	}
}

// IsStaff reports agent-level capability, which admins also have.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleAgent:
		return "agent"
	default:
		return "customer"
	}
}

// Actor is the authenticated identity passed explicitly into every
// lifecycle operation.
type Actor struct {
	ID       int64
	Username string
	Role     Role
}

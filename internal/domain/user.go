package domain

// User is an account. IsAgent and IsAdmin are independent flags; the
// effective capability is Role().
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsAgent      bool
	IsAdmin      bool
}

// Role derives the closed role variant from the flags.
func (u *User) Role() Role {
	return RoleFromFlags(u.IsAgent, u.IsAdmin)
}

// AgentCapable reports whether the user may be assigned tickets.
func (u *User) AgentCapable() bool {
	return u.IsAgent || u.IsAdmin
}

// Actor builds the request identity for this user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Username: u.Username, Role: u.Role()}
}

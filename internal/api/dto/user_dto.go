package dto

// RegisterRequest payload.
type RegisterRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// LoginRequest payload. Next is the page to return to after login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

// UserSummary response.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAgent  bool   `json:"is_agent"`
	IsAdmin  bool   `json:"is_admin"`
	Role     string `json:"role"`
}

// SessionView describes the logged in caller.
type SessionView struct {
	User     UserSummary `json:"user"`
	HomePath string      `json:"home"`
}

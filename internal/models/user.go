package models

// UserDTO is the body of GET /api/me/ and of a successful POST /api/login/
type UserDTO struct {
	ID        int64   `json:"id"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// User is the authenticated backend user.
// FullName is nil when the backend knows neither first nor last name.
type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName *string `json:"fullName"`
	Email    string  `json:"email"`
}

// DisplayName prefers the full name and falls back to the username
func (u User) DisplayName() string {
	if u.FullName != nil {
		return *u.FullName
	}
	return u.Username
}

// LoginRequest is posted to /api/login/
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

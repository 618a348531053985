package domain

import "time"

// Role is a capability level checked at each operation boundary.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the resolved caller of a request.
type Identity struct {
	UserID string
	Role   Role
}

// HasRole reports whether the identity holds any of roles.
func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin is shorthand for HasRole(RoleAdmin).
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Token is an opaque bearer credential bound to a user.
type Token struct {
	Token     string
	UserID    string
	Kind      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

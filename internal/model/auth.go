package model

import "github.com/golang-jwt/jwt/v5"

// Role is the coarse permission level of a user
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Identity is the authenticated caller attached to a request or connection
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsStaff reports teacher or admin
func (i Identity) IsStaff() bool {
	return i.Role == RoleTeacher || i.Role == RoleAdmin
}

// IsAdmin reports admin
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Claims are the JWT claims issued by the account service
type Claims struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Identity extracts the caller from the claims
func (c *Claims) Identity() Identity {
	return Identity{ID: c.ID, Role: c.Role}
}

// User is the read-only account record used for display names
type User struct {
	ID        string `json:"id" bson:"_id"`
	Username  string `json:"username" bson:"username"`
	Role      Role   `json:"role" bson:"role"`
	AvatarURL string `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
}

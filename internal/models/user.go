package models

import (
	"time"
)

// Role is the authorization level of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles defines allowed user roles
var ValidRoles = map[Role]bool{
	RoleUser:  true,
	RoleAdmin: true,
}

// User represents an account that can sign in and own cards
type User struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	Username     string    `json:"username" db:"username" bson:"username"`
	PasswordHash string    `json:"-" db:"password_hash" bson:"passwordHash"`
	Role         Role      `json:"role" db:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// UserPublic is the user shape returned by the API
type UserPublic struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips credentials from the user
func (u *User) Public() *UserPublic {
	return &UserPublic{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterRequest is the body of POST /v1/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// LoginRequest is the body of POST /v1/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned after a successful login
type AuthResponse struct {
	User  *UserPublic `json:"user"`
	Token string      `json:"token"`
}

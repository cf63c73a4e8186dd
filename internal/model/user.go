package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// User is a member or administrator profile
type User struct {
	ID        UserID    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	Phone     string    `json:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role returns the role this user signs in as
func (u *User) Role() Role {
	if u == nil {
		return RoleAnonymous
	}
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// Credentials holds login data for a user
// Stored separately so password hashes never travel with sessions
type Credentials struct {
	UserID       UserID
	Email        string // lower-cased, unique
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

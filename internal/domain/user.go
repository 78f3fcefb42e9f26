package domain

import "time"

// User represents a registered account
type User struct {
	ID           int64
	Username     string // Unique username, used as the token subject
	Email        string // Unique email address
	PasswordHash string // Bcrypt hashed password (not returned in API)
	FullName     string
	Disabled     bool
	CreatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(user *User) error
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	Update(user *User) error
}

package models

import (
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User matches the users table.
// Columns: id, name, email (NOT NULL UNIQUE), password_hash, verified,
// created_at, last_login_at
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Password     string     `json:"-"` // plain password, request-scope only
	PasswordHash string     `json:"-"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) Prepare() {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = html.EscapeString(strings.TrimSpace(strings.ToLower(u.Email)))
	u.Name = strings.TrimSpace(u.Name)
}

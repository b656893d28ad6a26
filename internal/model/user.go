package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Capabilities is the set of privileged actions an account may perform.
type Capabilities struct {
	IsAdmin bool `json:"is_admin"`
}

func (u *User) Capabilities() Capabilities {
	return Capabilities{IsAdmin: u.IsAdmin}
}

// Package models defines server-side records persisted in the database.
package models

import (
	"strings"
	"time"
)

// Account is a registered identity. Email is stored normalized (see NormalizeEmail).
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Verified     bool
	Active       bool
	CreatedAt    time.Time
}

// PublicAccount is the part of an Account returned to clients.
type PublicAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Name: a.Name, Email: a.Email}
}

// NormalizeEmail trims and lowercases an address, so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

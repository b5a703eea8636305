package models

import "time"

// EmailVerificationToken is a single-use credential proving control of an
// account's email address. It is deleted on use or when found expired.
type EmailVerificationToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *EmailVerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

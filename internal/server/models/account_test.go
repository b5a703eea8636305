package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@x.com", NormalizeEmail("ADA@X.com"))
	assert.Equal(t, "ada@x.com", NormalizeEmail("  Ada@X.Com "))
}

func TestAccount_Public(t *testing.T) {
	a := &Account{ID: "1", Name: "Ada", Email: "ada@x.com", PasswordHash: "h", Verified: true}
	assert.Equal(t, PublicAccount{ID: "1", Name: "Ada", Email: "ada@x.com"}, a.Public())
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tok := &EmailVerificationToken{ExpiresAt: now}
	assert.False(t, tok.Expired(now), "expiry instant itself is still valid")
	assert.True(t, tok.Expired(now.Add(time.Nanosecond)))

	cred := &ResetCredential{ExpiresAt: now.Add(10 * time.Minute)}
	assert.False(t, cred.Expired(now))
	assert.True(t, cred.Expired(now.Add(11*time.Minute)))
}

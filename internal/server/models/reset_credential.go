package models

import "time"

// ResetPhase tags which secret a ResetCredential currently holds.
type ResetPhase string

const (
	// ResetPhaseOTP holds the numeric code emailed to the user.
	ResetPhaseOTP ResetPhase = "otp"
	// ResetPhaseResetToken holds the token handed out after a correct OTP.
	ResetPhaseResetToken ResetPhase = "reset_token"
)

// ResetCredential is the one active password-recovery attempt of an account.
// At most one exists per account; it is deleted on expiry, attempt
// exhaustion or a successful reset.
type ResetCredential struct {
	ID        string
	AccountID string
	Phase     ResetPhase
	Secret    string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

func (c *ResetCredential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

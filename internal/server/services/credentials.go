package services

import (
	"fmt"

	"github.com/dmitrijs2005/gmapauth/internal/common"
	"github.com/dmitrijs2005/gmapauth/internal/cryptox"
	"github.com/dmitrijs2005/gmapauth/internal/server/models"
)

// CredentialManager hashes passwords and decides whether a login attempt
// may proceed.
type CredentialManager struct {
	hasher    *cryptox.PasswordHasher
	dummyHash string
}

// NewCredentialManager precomputes a hash that unknown emails are checked
// against, so a miss costs the same as a wrong password.
func NewCredentialManager(hasher *cryptox.PasswordHasher) (*CredentialManager, error) {
	seed, err := cryptox.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("dummy password: %w", err)
	}
	dummy, err := hasher.Hash(seed)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &CredentialManager{hasher: hasher, dummyHash: dummy}, nil
}

func (m *CredentialManager) HashPassword(password string) (string, error) {
	h, err := m.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

// Authenticate checks password against account, which is nil when no
// account has the email. A missing account, a wrong password and an
// inactive account are all ErrorInvalidCredentials; a correct password on an
// unverified account is ErrorEmailNotVerified.
func (m *CredentialManager) Authenticate(account *models.Account, password string) error {
	if account == nil {
		_, _ = m.hasher.Verify(password, m.dummyHash)
		return common.ErrorInvalidCredentials
	}

	ok, err := m.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok || !account.Active {
		return common.ErrorInvalidCredentials
	}
	if !account.Verified {
		return common.ErrorEmailNotVerified
	}
	return nil
}

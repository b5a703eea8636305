// Package resetcredentials persists the single active password-recovery
// record of each account.
package resetcredentials

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/server/models"
)

type Repository interface {
	// Create inserts a credential; an existing one for the account yields
	// common.ErrorAlreadyExists, so callers delete first.
	Create(ctx context.Context, cred *models.ResetCredential) error
	// FindByAccountForUpdate locks and returns the account's credential.
	FindByAccountForUpdate(ctx context.Context, accountID string) (*models.ResetCredential, error)
	// FindBySecretForUpdate locks and returns the credential holding secret in phase.
	FindBySecretForUpdate(ctx context.Context, phase models.ResetPhase, secret string) (*models.ResetCredential, error)
	// IncrementAttempts bumps the attempt counter and returns its new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// Update rewrites phase, secret, expiry and attempts.
	Update(ctx context.Context, cred *models.ResetCredential) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

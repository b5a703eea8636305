// Package verificationtokens persists single-use email verification tokens.
package verificationtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.EmailVerificationToken) error
	Find(ctx context.Context, token string) (*models.EmailVerificationToken, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes tokens that expired before now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Package accounts persists Account records.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gmapauth/internal/server/models"
)

type Repository interface {
	// Create inserts the account and fills in ID and CreatedAt.
	// A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	MarkVerified(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}

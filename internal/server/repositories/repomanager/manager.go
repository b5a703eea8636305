package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gmapauth/internal/dbx"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/resetcredentials"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/verificationtokens"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	VerificationTokens(db dbx.DBTX) verificationtokens.Repository
	ResetCredentials(db dbx.DBTX) resetcredentials.Repository
}

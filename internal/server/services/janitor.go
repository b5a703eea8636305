package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/logging"
)

// Janitor periodically deletes expired verification tokens and reset
// credentials. Expiry is enforced on access regardless; the janitor only
// bounds how long dead rows stay around.
type Janitor struct {
	db       *sql.DB
	tokens   *TokenStore
	interval time.Duration
	log      logging.Logger
}

func NewJanitor(db *sql.DB, tokens *TokenStore, interval time.Duration, log logging.Logger) *Janitor {
	return &Janitor{db: db, tokens: tokens, interval: interval, log: log.With("component", "janitor")}
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables it and Run returns at once.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 {
		j.log.Info(ctx, "janitor disabled")
		return nil
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one purge. Failures are logged and retried on the next tick.
func (j *Janitor) Sweep(ctx context.Context) {
	tokens, creds, err := j.tokens.PurgeExpired(ctx, j.db)
	if err != nil {
		j.log.Error(ctx, "purge expired records", "error", err)
		return
	}
	if tokens > 0 || creds > 0 {
		j.log.Info(ctx, "purged expired records", "verification_tokens", tokens, "reset_credentials", creds)
	}
}

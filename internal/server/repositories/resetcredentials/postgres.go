package resetcredentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/common"
	"github.com/dmitrijs2005/gmapauth/internal/dbx"
	"github.com/dmitrijs2005/gmapauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, cred *models.ResetCredential) error {
	query := `
		INSERT INTO password_reset_credentials (account_id, phase, secret, expires_at, attempts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, cred.AccountID, string(cred.Phase), cred.Secret, cred.ExpiresAt, cred.Attempts).
		Scan(&cred.ID, &cred.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByAccountForUpdate(ctx context.Context, accountID string) (*models.ResetCredential, error) {
	query := `
		SELECT id, account_id, phase, secret, expires_at, attempts, created_at
		FROM password_reset_credentials
		WHERE account_id = $1
		FOR UPDATE
	`
	return scanOne(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *PostgresRepository) FindBySecretForUpdate(ctx context.Context, phase models.ResetPhase, secret string) (*models.ResetCredential, error) {
	query := `
		SELECT id, account_id, phase, secret, expires_at, attempts, created_at
		FROM password_reset_credentials
		WHERE phase = $1 AND secret = $2
		FOR UPDATE
	`
	return scanOne(r.db.QueryRowContext(ctx, query, string(phase), secret))
}

func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE password_reset_credentials SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return attempts, nil
}

func (r *PostgresRepository) Update(ctx context.Context, cred *models.ResetCredential) error {
	query := `
		UPDATE password_reset_credentials
		SET phase = $2, secret = $3, expires_at = $4, attempts = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, cred.ID, string(cred.Phase), cred.Secret, cred.ExpiresAt, cred.Attempts)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM password_reset_credentials
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	query := `
		DELETE FROM password_reset_credentials
		WHERE account_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM password_reset_credentials
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanOne(row *sql.Row) (*models.ResetCredential, error) {
	c := &models.ResetCredential{}
	var phase string
	err := row.Scan(&c.ID, &c.AccountID, &phase, &c.Secret, &c.ExpiresAt, &c.Attempts, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Phase = models.ResetPhase(phase)
	return c, nil
}

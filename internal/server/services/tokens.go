package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/common"
	"github.com/dmitrijs2005/gmapauth/internal/cryptox"
	"github.com/dmitrijs2005/gmapauth/internal/dbx"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
	"github.com/dmitrijs2005/gmapauth/internal/server/models"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/repomanager"
)

// TokenStore owns the life cycle of verification tokens and reset
// credentials: issuing, lazy expiry on access, attempt counting and
// single-use consumption. Every method works on the DBTX it is given, so
// callers decide the transaction boundaries.
type TokenStore struct {
	repomanager     repomanager.RepositoryManager
	verificationTTL time.Duration
	otpTTL          time.Duration
	resetTokenTTL   time.Duration
	maxAttempts     int
	now             func() time.Time

	newOTP   func() (string, error)
	newToken func() (string, error)
}

func NewTokenStore(m repomanager.RepositoryManager, cfg *config.Config) *TokenStore {
	return &TokenStore{
		repomanager:     m,
		verificationTTL: cfg.VerificationTokenTTL,
		otpTTL:          cfg.ResetOTPTTL,
		resetTokenTTL:   cfg.ResetTokenTTL,
		maxAttempts:     cfg.ResetOTPMaxAttempts,
		now:             time.Now,
		newOTP:          cryptox.GenerateOTP,
		newToken:        cryptox.GenerateToken,
	}
}

// IssueVerification creates a fresh verification token for the account.
func (s *TokenStore) IssueVerification(ctx context.Context, db dbx.DBTX, accountID string) (*models.EmailVerificationToken, error) {
	id, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	t := &models.EmailVerificationToken{
		Token:     id,
		AccountID: accountID,
		ExpiresAt: s.now().Add(s.verificationTTL),
	}
	if err := s.repomanager.VerificationTokens(db).Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create verification token: %w", err)
	}
	return t, nil
}

// ConsumeVerification deletes the token and returns it. An expired token is
// deleted too, and ErrorTokenExpired is returned.
func (s *TokenStore) ConsumeVerification(ctx context.Context, db dbx.DBTX, token string) (*models.EmailVerificationToken, error) {
	repo := s.repomanager.VerificationTokens(db)

	t, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidOrExpired
		}
		return nil, fmt.Errorf("find verification token: %w", err)
	}

	if err := repo.Delete(ctx, t.Token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidOrExpired
		}
		return nil, fmt.Errorf("delete verification token: %w", err)
	}

	if t.Expired(s.now()) {
		return nil, common.ErrorTokenExpired
	}
	return t, nil
}

// IssueResetOTP replaces whatever recovery record the account had with a new
// OTP-phase credential.
func (s *TokenStore) IssueResetOTP(ctx context.Context, db dbx.DBTX, accountID string) (*models.ResetCredential, error) {
	repo := s.repomanager.ResetCredentials(db)

	code, err := s.newOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	if err := repo.DeleteByAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("delete reset credential: %w", err)
	}

	cred := &models.ResetCredential{
		AccountID: accountID,
		Phase:     models.ResetPhaseOTP,
		Secret:    code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if err := repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("create reset credential: %w", err)
	}
	return cred, nil
}

// RedeemResetOTP checks code against the account's OTP and, on a match,
// switches the credential to the reset-token phase and returns the token.
//
// The attempt counter is bumped before the limit check and the comparison,
// so the sixth wrong code fails with ErrorTooManyAttempts, not
// ErrorInvalidCode. db must be a transaction: the credential row is locked
// for the whole read-modify-write.
func (s *TokenStore) RedeemResetOTP(ctx context.Context, db dbx.DBTX, accountID, code string) (string, error) {
	repo := s.repomanager.ResetCredentials(db)

	cred, err := repo.FindByAccountForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorInvalidOrExpired
		}
		return "", fmt.Errorf("find reset credential: %w", err)
	}

	if cred.Expired(s.now()) {
		if err := repo.Delete(ctx, cred.ID); err != nil {
			return "", fmt.Errorf("delete reset credential: %w", err)
		}
		return "", common.ErrorTokenExpired
	}

	// the code was already spent on a reset token
	if cred.Phase != models.ResetPhaseOTP {
		return "", common.ErrorInvalidOrExpired
	}

	attempts, err := repo.IncrementAttempts(ctx, cred.ID)
	if err != nil {
		return "", fmt.Errorf("increment attempts: %w", err)
	}

	if attempts > s.maxAttempts {
		if err := repo.Delete(ctx, cred.ID); err != nil {
			return "", fmt.Errorf("delete reset credential: %w", err)
		}
		return "", common.ErrorTooManyAttempts
	}

	if !cryptox.SecretsEqual(cred.Secret, code) {
		return "", common.ErrorInvalidCode
	}

	resetToken, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	cred.Phase = models.ResetPhaseResetToken
	cred.Secret = resetToken
	cred.ExpiresAt = s.now().Add(s.resetTokenTTL)
	cred.Attempts = 0
	if err := repo.Update(ctx, cred); err != nil {
		return "", fmt.Errorf("update reset credential: %w", err)
	}
	return resetToken, nil
}

// ConsumeResetToken deletes the reset-token-phase credential holding
// resetToken and returns it. An OTP never matches here.
func (s *TokenStore) ConsumeResetToken(ctx context.Context, db dbx.DBTX, resetToken string) (*models.ResetCredential, error) {
	repo := s.repomanager.ResetCredentials(db)

	cred, err := repo.FindBySecretForUpdate(ctx, models.ResetPhaseResetToken, resetToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidOrExpired
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}

	if err := repo.Delete(ctx, cred.ID); err != nil {
		return nil, fmt.Errorf("delete reset credential: %w", err)
	}

	if cred.Expired(s.now()) {
		return nil, common.ErrorTokenExpired
	}
	return cred, nil
}

// PurgeExpired deletes every expired token and credential.
func (s *TokenStore) PurgeExpired(ctx context.Context, db dbx.DBTX) (tokens, creds int64, err error) {
	now := s.now()

	tokens, err = s.repomanager.VerificationTokens(db).DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("purge verification tokens: %w", err)
	}
	creds, err = s.repomanager.ResetCredentials(db).DeleteExpired(ctx, now)
	if err != nil {
		return tokens, 0, fmt.Errorf("purge reset credentials: %w", err)
	}
	return tokens, creds, nil
}

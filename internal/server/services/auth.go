// Package services contains the auth flows: signup, email verification,
// login and the two-step password recovery (OTP, then reset token).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gmapauth/internal/common"
	"github.com/dmitrijs2005/gmapauth/internal/dbx"
	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/auth"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
	"github.com/dmitrijs2005/gmapauth/internal/server/models"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Notifier delivers the account emails.
type Notifier interface {
	SendVerification(ctx context.Context, to, link string) error
	SendResetCode(ctx context.Context, to, code string) error
}

// CredentialIssuer mints the access/refresh pair for an account.
type CredentialIssuer interface {
	Issue(userID string) (auth.TokenPair, error)
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type VerifyResetOTPInput struct {
	Email string
	OTP   string
}

type ResetPasswordInput struct {
	ResetToken string
	Password   string
}

// Session is returned by flows that log the user in.
type Session struct {
	Tokens  auth.TokenPair
	Account models.PublicAccount
}

// AuthService runs the account flows. Coordination between concurrent
// requests goes through the database only: unique constraints for signup
// races and row locks for the reset credential.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenStore
	credentials *CredentialManager
	issuer      CredentialIssuer
	notifier    Notifier
	frontendURL string
	log         logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	credentials *CredentialManager, issuer CredentialIssuer, notifier Notifier, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      NewTokenStore(m, cfg),
		credentials: credentials,
		issuer:      issuer,
		notifier:    notifier,
		frontendURL: strings.TrimRight(cfg.FrontendBaseURL, "/"),
		log:         log.With("component", "auth"),
	}
}

// Signup creates an unverified account and mails its verification link.
// Account, token and the send share one transaction: if the mail cannot be
// handed to the transport nothing is persisted and the user can sign up again.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	email := models.NormalizeEmail(in.Email)

	if _, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email); err == nil {
		return common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("lookup account: %w", err)
	}

	hash, err := s.credentials.HashPassword(in.Password)
	if err != nil {
		return err
	}

	var accountID string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).Create(ctx, &models.Account{
			Email:        email,
			Name:         strings.TrimSpace(in.Name),
			PasswordHash: hash,
			Active:       true,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrorAlreadyExists
			}
			return fmt.Errorf("create account: %w", err)
		}
		accountID = account.ID

		token, err := s.tokens.IssueVerification(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		return s.notifier.SendVerification(ctx, email, s.verificationLink(token.Token))
	})
	if err != nil {
		if errors.Is(err, common.ErrorMailDelivery) {
			s.log.Error(ctx, "verification mail not sent, signup rolled back", "error", err)
		}
		return err
	}

	s.log.Info(ctx, "account created", "account_id", accountID)
	return nil
}

func (s *AuthService) verificationLink(token string) string {
	return s.frontendURL + "/verify-email?token=" + url.QueryEscape(token)
}

// VerifyEmail consumes the verification token, marks the account verified
// and logs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*Session, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return nil, common.ErrorInvalidOrExpired
	}

	var (
		account *models.Account
		outcome error
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		t, err := s.tokens.ConsumeVerification(ctx, tx, token)
		if err != nil {
			outcome, err = splitOutcome(err)
			return err
		}

		accounts := s.repomanager.Accounts(tx)
		if err := accounts.MarkVerified(ctx, t.AccountID); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		account, err = accounts.GetByID(ctx, t.AccountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}

	s.log.Info(ctx, "email verified", "account_id", account.ID)
	return s.session(account)
}

// Login checks the password and returns a fresh session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, models.NormalizeEmail(in.Email))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("lookup account: %w", err)
		}
		account = nil
	}

	if err := s.credentials.Authenticate(account, in.Password); err != nil {
		return nil, err
	}

	return s.session(account)
}

// ForgotPassword mails a fresh reset code when the email belongs to an
// account. The result is the same whether or not it does; delivery
// problems are logged, not returned, for the same reason.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := validateForgotPassword(email); err != nil {
		return err
	}
	email = models.NormalizeEmail(email)

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	var code string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cred, err := s.tokens.IssueResetOTP(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		code = cred.Secret
		return nil
	})
	if err != nil {
		// a concurrent request for the same account won the insert and sends its own code
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil
		}
		return err
	}

	if err := s.notifier.SendResetCode(ctx, account.Email, code); err != nil {
		s.log.Error(ctx, "reset code not sent", "account_id", account.ID, "error", err)
		return nil
	}

	s.log.Info(ctx, "reset code issued", "account_id", account.ID)
	return nil
}

// VerifyResetOTP trades a correct OTP for a reset token.
func (s *AuthService) VerifyResetOTP(ctx context.Context, in VerifyResetOTPInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, models.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorInvalidOrExpired
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}

	var (
		resetToken string
		outcome    error
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		resetToken, err = s.tokens.RedeemResetOTP(ctx, tx, account.ID, in.OTP)
		outcome, err = splitOutcome(err)
		return err
	})
	if err != nil {
		return "", err
	}
	if outcome != nil {
		if errors.Is(outcome, common.ErrorTooManyAttempts) {
			s.log.Warn(ctx, "reset otp attempts exhausted", "account_id", account.ID)
		}
		return "", outcome
	}

	s.log.Info(ctx, "reset otp accepted", "account_id", account.ID)
	return resetToken, nil
}

// ResetPassword sets a new password using a reset token. The token works once.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	hash, err := s.credentials.HashPassword(in.Password)
	if err != nil {
		return err
	}

	var (
		accountID string
		outcome   error
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cred, err := s.tokens.ConsumeResetToken(ctx, tx, strings.TrimSpace(in.ResetToken))
		if err != nil {
			outcome, err = splitOutcome(err)
			return err
		}
		accountID = cred.AccountID

		if err := s.repomanager.Accounts(tx).UpdatePasswordHash(ctx, cred.AccountID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if outcome != nil {
		return outcome
	}

	s.log.Info(ctx, "password reset", "account_id", accountID)
	return nil
}

func (s *AuthService) session(account *models.Account) (*Session, error) {
	pair, err := s.issuer.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &Session{Tokens: pair, Account: account.Public()}, nil
}

// splitOutcome separates domain outcomes, whose side effects (a deleted
// expired row, a counted attempt) must still be committed, from failures
// that abort the transaction.
func splitOutcome(err error) (outcome, failure error) {
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, common.ErrorInvalidOrExpired),
		errors.Is(err, common.ErrorInvalidCode),
		errors.Is(err, common.ErrorTooManyAttempts):
		return err, nil
	default:
		return nil, err
	}
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gmapauth/internal/common"
	"github.com/dmitrijs2005/gmapauth/internal/cryptox"
	"github.com/dmitrijs2005/gmapauth/internal/dbx"
	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/auth"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
	"github.com/dmitrijs2005/gmapauth/internal/server/models"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/resetcredentials"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/verificationtokens"
	"github.com/stretchr/testify/require"
)

// memStore stands in for the database. Rows are copied on the way in and
// out so services cannot mutate stored state behind the repositories' back.
type memStore struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]models.Account
	tokens   map[string]models.EmailVerificationToken
	creds    map[string]models.ResetCredential

	errAccountsGet error
	errTokenCreate error
	errCredUpdate  error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]models.Account{},
		tokens:   map[string]models.EmailVerificationToken{},
		creds:    map[string]models.ResetCredential{},
	}
}

// clone copies the rows and injected errors into an independent store.
func (s *memStore) clone() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memStore{
		seq:            s.seq,
		accounts:       maps.Clone(s.accounts),
		tokens:         maps.Clone(s.tokens),
		creds:          maps.Clone(s.creds),
		errAccountsGet: s.errAccountsGet,
		errTokenCreate: s.errTokenCreate,
		errCredUpdate:  s.errCredUpdate,
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	a.ID = r.s.nextID("acc")
	a.CreatedAt = time.Now()
	r.s.accounts[a.ID] = *a
	return a, nil
}

func (r memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.errAccountsGet != nil {
		return nil, r.s.errAccountsGet
	}
	for _, a := range r.s.accounts {
		if strings.EqualFold(a.Email, email) {
			a := a
			return &a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r memAccounts) MarkVerified(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Verified = true
	r.s.accounts[id] = a
	return nil
}

func (r memAccounts) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = hash
	r.s.accounts[id] = a
	return nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, t *models.EmailVerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.errTokenCreate != nil {
		return r.s.errTokenCreate
	}
	t.CreatedAt = time.Now()
	r.s.tokens[t.Token] = *t
	return nil
}

func (r memTokens) Find(_ context.Context, token string) (*models.EmailVerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r memTokens) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.tokens, token)
	return nil
}

func (r memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

type memCreds struct{ s *memStore }

func (r memCreds) Create(_ context.Context, c *models.ResetCredential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.creds {
		if existing.AccountID == c.AccountID {
			return common.ErrorAlreadyExists
		}
	}
	c.ID = r.s.nextID("cred")
	c.CreatedAt = time.Now()
	r.s.creds[c.ID] = *c
	return nil
}

func (r memCreds) FindByAccountForUpdate(_ context.Context, accountID string) (*models.ResetCredential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.creds {
		if c.AccountID == accountID {
			c := c
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memCreds) FindBySecretForUpdate(_ context.Context, phase models.ResetPhase, secret string) (*models.ResetCredential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.creds {
		if c.Phase == phase && c.Secret == secret {
			c := c
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memCreds) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.creds[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	c.Attempts++
	r.s.creds[id] = c
	return c.Attempts, nil
}

func (r memCreds) Update(_ context.Context, c *models.ResetCredential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.errCredUpdate != nil {
		return r.s.errCredUpdate
	}
	if _, ok := r.s.creds[c.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.creds[c.ID] = *c
	return nil
}

func (r memCreds) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.creds, id)
	return nil
}

func (r memCreds) DeleteByAccount(_ context.Context, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, c := range r.s.creds {
		if c.AccountID == accountID {
			delete(r.s.creds, k)
		}
	}
	return nil
}

func (r memCreds) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, c := range r.s.creds {
		if c.ExpiresAt.Before(now) {
			delete(r.s.creds, k)
			n++
		}
	}
	return n, nil
}

// credFor returns the stored credential of an account, if any.
func (s *memStore) credFor(accountID string) (models.ResetCredential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		if c.AccountID == accountID {
			return c, true
		}
	}
	return models.ResetCredential{}, false
}

// fakeRepoManager binds repositories to the store behind the handle. A
// *sql.DB handle and a committing transaction share the committed store. A
// transaction expected to roll back works on a private copy that is dropped
// with it, so writes made through the wrong handle stay visible.
type fakeRepoManager struct {
	s *memStore

	mu       sync.Mutex
	outcomes []bool
	txs      map[*sql.Tx]*memStore
}

func newFakeRepoManager(s *memStore) *fakeRepoManager {
	return &fakeRepoManager{s: s, txs: map[*sql.Tx]*memStore{}}
}

// expectTx queues the outcome of the next transaction the service opens.
func (m *fakeRepoManager) expectTx(commit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, commit)
}

func (m *fakeRepoManager) storeFor(h dbx.DBTX) *memStore {
	tx, ok := h.(*sql.Tx)
	if !ok {
		return m.s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.txs[tx]; ok {
		return st
	}

	st := m.s
	if len(m.outcomes) > 0 {
		commit := m.outcomes[0]
		m.outcomes = m.outcomes[1:]
		if !commit {
			st = m.s.clone()
		}
	}
	m.txs[tx] = st
	return st
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *fakeRepoManager) Accounts(h dbx.DBTX) accounts.Repository {
	return memAccounts{m.storeFor(h)}
}

func (m *fakeRepoManager) VerificationTokens(h dbx.DBTX) verificationtokens.Repository {
	return memTokens{m.storeFor(h)}
}

func (m *fakeRepoManager) ResetCredentials(h dbx.DBTX) resetcredentials.Repository {
	return memCreds{m.storeFor(h)}
}

type sentMail struct {
	kind, to, payload string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, to, link string) error {
	return n.record("verification", to, link)
}

func (n *fakeNotifier) SendResetCode(_ context.Context, to, code string) error {
	return n.record("reset", to, code)
}

func (n *fakeNotifier) record(kind, to, payload string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return fmt.Errorf("%w: %w", common.ErrorMailDelivery, n.err)
	}
	n.sent = append(n.sent, sentMail{kind: kind, to: to, payload: payload})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(userID string) (auth.TokenPair, error) {
	return auth.TokenPair{Access: "access-" + userID, Refresh: "refresh-" + userID}, nil
}

var testArgon2Params = cryptox.Argon2Params{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type testEnv struct {
	svc      *AuthService
	store    *memStore
	repos    *fakeRepoManager
	notifier *fakeNotifier
	mock     sqlmock.Sqlmock
	db       *sql.DB
	now      time.Time
}

// advance moves the service clock forward.
func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.FrontendBaseURL = "https://maps.example/"

	creds, err := NewCredentialManager(cryptox.NewPasswordHasher(testArgon2Params))
	require.NoError(t, err)

	env := &testEnv{
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		mock:     mock,
		db:       db,
		now:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	env.repos = newFakeRepoManager(env.store)
	env.svc = NewAuthService(db, env.repos, cfg, creds, fakeIssuer{}, env.notifier, logging.Nop{})
	env.svc.tokens.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) expectTx(commit bool) {
	e.repos.expectTx(commit)
	e.mock.ExpectBegin()
	if commit {
		e.mock.ExpectCommit()
	} else {
		e.mock.ExpectRollback()
	}
}

// seedAccount stores an account with the given password hashed.
func (e *testEnv) seedAccount(t *testing.T, email, password string, verified, active bool) *models.Account {
	t.Helper()
	hash, err := e.svc.credentials.HashPassword(password)
	require.NoError(t, err)
	a, err := memAccounts{e.store}.Create(context.Background(), &models.Account{
		Email: email, Name: "Ann", PasswordHash: hash, Verified: verified, Active: active,
	})
	require.NoError(t, err)
	return a
}

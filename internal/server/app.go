// Package server wires the auth service together: database and migrations,
// mail transport, the auth flows, the HTTP API and the janitor. It also
// handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gmapauth/internal/cryptox"
	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/auth"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
	"github.com/dmitrijs2005/gmapauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gmapauth/internal/server/mailer"
	"github.com/dmitrijs2005/gmapauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gmapauth/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	server  *httpapi.Server
	janitor *services.Janitor
}

// NewApp opens the database, applies migrations and builds every component.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	transport, err := mailer.NewTransport(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mail transport init error: %w", err)
	}

	credentials, err := services.NewCredentialManager(cryptox.NewPasswordHasher(cryptox.DefaultArgon2Params))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	notifier := mailer.NewNotifier(transport, c.MailFrom)

	authService := services.NewAuthService(db, rm, c, credentials, issuer, notifier, logger)
	handler := httpapi.NewAuthHandler(authService, logger)
	router := httpapi.NewRouter(handler, logger, c)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		server:  httpapi.NewServer(c.HTTPAddr, router, c.ShutdownTimeout, logger),
		janitor: services.NewJanitor(db, services.NewTokenStore(rm, c), c.JanitorInterval, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and runs the janitor until a signal arrives or one of
// them fails, then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.server.Run(gctx) })
	g.Go(func() error { return app.janitor.Run(gctx) })

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}

	app.logger.Info(ctx, "App stopped")
	return err
}

// Package server assembles the chat service: storage, model provider,
// services, the HTTP API and the gRPC ops endpoint, and runs them until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/handlers"
	"github.com/dmitrijs2005/gophchat/internal/server/llm"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/inmemory"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/dmitrijs2005/gophchat/internal/server/storage"

	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
	ops     *gs.OpsServer
	users   *services.UserService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.Environment)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.UsesDevelopmentKey() {
		logger.Warn(ctx, "using the development signing key; set JWT_SECRET before deploying")
	}

	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)
	if c.DatabaseDSN == config.MemoryDSN {
		logger.Warn(ctx, "using in-memory storage; data is lost on restart")
		rm = inmemory.NewRepositoryManager()
	} else {
		db, err = repomanager.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		pm := repomanager.NewPostgresRepositoryManager()
		if err := pm.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		rm = pm
	}

	var (
		provider    llm.Provider    = llm.Unavailable{}
		transcriber llm.Transcriber = llm.Unavailable{}
	)
	if c.GeminiAPIKey != "" {
		p, err := llm.NewGenAIProvider(ctx, c.GeminiAPIKey)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("model provider: %w", err)
		}
		provider, transcriber = p, p
	} else {
		logger.Warn(ctx, "GEMINI_API_KEY is not set; chat turns will fail")
	}

	var archive services.AttachmentArchive
	if c.S3Bucket != "" {
		a, err := storage.NewS3Archive(ctx, c)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("attachment archive: %w", err)
		}
		archive = a
	}

	issuer := auth.NewIssuer(c.SigningKey(), c.TokenValidityDuration, c.Environment == config.EnvProduction)

	users := services.NewUserService(db, rm, issuer, c)
	h := handlers.New(handlers.Deps{
		Users:         users,
		Threads:       services.NewThreadService(db, rm, archive, c.TurnTimeout, logger),
		Turns:         services.NewTurnService(db, rm, provider, archive, c, logger.With("module", "turns")),
		Settings:      services.NewSettingsService(db, rm),
		Transcription: services.NewTranscriptionService(transcriber, c.TranscriptionModel),
		Issuer:        issuer,
		Logger:        logger,
	})

	var pinger gs.Pinger
	if db != nil {
		pinger = db
	}

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		handler: handlers.NewRouter(h),
		ops:     gs.NewOpsServer(c.EndpointAddrGRPC, logger, pinger),
		users:   users,
	}, nil
}

// ProvisionAccessCode creates an access-code user with a fresh random code
// and returns the code. Only its keyed hash is stored, so the caller must
// hand the code over now.
func (app *App) ProvisionAccessCode(ctx context.Context, email, name, label string) (string, error) {
	defer closeDB(app.db)

	code, err := services.GenerateAccessCode()
	if err != nil {
		return "", err
	}
	u, err := app.users.CreateCodeUser(ctx, email, name, code, label)
	if err != nil {
		return "", err
	}
	app.logger.Info(ctx, "access-code user created", "user_id", u.ID, "email", u.Email)
	return code, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// a turn may stream for up to TurnTimeout
		WriteTimeout: app.config.TurnTimeout + 15*time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.ops.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a shutdown signal arrives or one of
// the servers fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment, "auth_mode", app.config.AuthMode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	closeDB(app.db)
	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	app.logger.Info(context.Background(), "App stopped")
}

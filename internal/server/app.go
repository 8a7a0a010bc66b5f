// Package server initializes and runs the application server: it opens the
// database, runs migrations, decodes the master key, wires the services,
// and serves the HTTP API until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/secureshare/internal/cryptox"
	"github.com/dmitrijs2005/secureshare/internal/logging"
	"github.com/dmitrijs2005/secureshare/internal/server/config"
	"github.com/dmitrijs2005/secureshare/internal/server/httpapi"
	"github.com/dmitrijs2005/secureshare/internal/server/mail"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/secureshare/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	masterKey, err := base64.StdEncoding.DecodeString(cfg.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid base64: %w", err)
	}
	if len(masterKey) != cryptox.KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", cryptox.KeySize, len(masterKey))
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	mailer := mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom)

	otpService := services.NewOtpService(db, rm, mailer)
	vaultService := services.NewVaultService(db, rm, masterKey, otpService)
	userService := services.NewUserService(db, rm, masterKey, cfg)
	exportService := services.NewExportService(db, rm, cfg, vaultService, mailer)
	sharedService := services.NewSharedFilesService(db, rm)
	auditService := services.NewAuditService(db, rm)

	handler := httpapi.NewHandler(userService, vaultService, otpService,
		exportService, sharedService, auditService, logger)
	router := httpapi.NewRouter(handler, []byte(cfg.SecretKey), logger)

	return &App{config: cfg, logger: logger, db: db, handler: router}, nil
}

// Run serves the HTTP API until ctx is canceled or a termination signal
// arrives, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	server := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return app.db.Close()
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/orochi-idgen/app/handlers"
	"github.com/amirphl/orochi-idgen/app/middleware"
	"github.com/amirphl/orochi-idgen/app/router"
	"github.com/amirphl/orochi-idgen/app/services"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generator diagnostics and value allocation over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	tokenService, err := services.NewTokenService(
		app.cfg.JWT.AccessTokenTTL,
		app.cfg.JWT.Issuer,
		app.cfg.JWT.Audience,
		app.cfg.JWT.SecretKey,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	sqlDB, err := app.db.DB()
	if err != nil {
		return err
	}
	checks := map[string]handlers.Pinger{"database": sqlDB}
	if app.redis != nil {
		rc := app.redis
		checks["redis"] = handlers.PingerFunc(func(ctx context.Context) error { return rc.Ping(ctx).Err() })
	}

	r := router.NewFiberRouter(
		app.cfg.Server,
		app.cfg.Metrics,
		handlers.NewGeneratorHandler(app.registry, app.cfg.Server.MaxBatch, app.logger),
		handlers.NewHealthHandler(version, checks),
		middleware.NewAuthMiddleware(tokenService),
	)
	r.SetupRoutes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start(fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := r.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		app.logger.Printf("Error during shutdown: %v", err)
	}
	app.logger.Println("Server stopped")
	return nil
}

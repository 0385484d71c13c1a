package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atharvakonge/stocksim/internal/app"
	"github.com/atharvakonge/stocksim/internal/challenges"
	"github.com/atharvakonge/stocksim/internal/config"
	"github.com/atharvakonge/stocksim/internal/handlers"
	"github.com/atharvakonge/stocksim/internal/lib/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win either way.
	envErr := godotenv.Load()

	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)
	if envErr != nil {
		log.Debug("no .env file found, using environment only")
	}

	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting stocksim",
		slog.String("env", cfg.Env),
		slog.String("addr", cfg.HTTP.Addr()),
		slog.String("storage", cfg.Storage),
	)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	finalizer := challenges.NewFinalizer(a.Challenges, cfg.Challenges.FinalizeInterval, log)
	finalizer.Start(ctx)
	defer finalizer.Stop()

	h := handlers.New(a.Market, a.Challenges, a.Accounts, a.Tokens, a.Quotes,
		handlers.WithLogger(log),
		handlers.WithStreamInterval(cfg.Prices.StreamInterval),
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           h.Router(cfg.CORS.AllowOrigins),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", slog.Any("error", err))
		}
	}()

	log.Info("server listening", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", slog.Any("error", err))
		stop()
	}
}

// Package app wires configuration into the storage, quote and domain
// services shared by the API server and the operator CLI.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/atharvakonge/stocksim/internal/accounts"
	"github.com/atharvakonge/stocksim/internal/challenges"
	"github.com/atharvakonge/stocksim/internal/config"
	"github.com/atharvakonge/stocksim/internal/db"
	"github.com/atharvakonge/stocksim/internal/market"
	"github.com/atharvakonge/stocksim/internal/quotes"
	"github.com/atharvakonge/stocksim/internal/store"
)

type App struct {
	Store      store.Store
	Quotes     *quotes.Service
	Market     *market.Service
	Challenges *challenges.Service
	Accounts   *accounts.Service
	Tokens     *accounts.Tokens
}

// New opens storage, applying pending migrations on Postgres, and builds
// every service on top of it.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	balance, err := cfg.Trading.Balance()
	if err != nil {
		st.Close()
		return nil, err
	}

	client := quotes.NewClient(cfg.Quotes.BaseURL,
		quotes.WithTimeout(cfg.Quotes.Timeout),
		quotes.WithLogger(log),
	)
	qs := quotes.NewService(client,
		quotes.WithServiceLogger(log),
		quotes.WithCooldown(cfg.Quotes.RateLimitCooldown),
	)

	mkt := market.NewService(st, qs, market.WithLogger(log))
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if secret, err = randomSecret(); err != nil {
			st.Close()
			return nil, err
		}
		log.Warn("auth.jwt_secret is empty, signing with a random secret; sessions end on restart")
	}
	tokens := accounts.NewTokens(secret, cfg.Auth.TokenTTL)

	return &App{
		Store:      st,
		Quotes:     qs,
		Market:     mkt,
		Challenges: challenges.NewService(st, mkt, challenges.WithLogger(log)),
		Accounts:   accounts.NewService(st, tokens, balance, accounts.WithLogger(log)),
		Tokens:     tokens,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// OpenStore returns the configured store.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return store.NewMemory(), nil
	case config.StoragePostgres:
		conn, err := db.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn, db.Up); err != nil {
			conn.Close()
			return nil, err
		}
		log.Info("connected to postgres",
			slog.String("host", cfg.Postgres.Host),
			slog.String("database", cfg.Postgres.Name),
		)
		return store.NewPostgres(conn), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage)
	}
}

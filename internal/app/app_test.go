package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/atharvakonge/stocksim/internal/accounts"
	"github.com/atharvakonge/stocksim/internal/config"
	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:     config.EnvLocal,
		Storage: config.StorageMemory,
		Auth:    config.Auth{JWTSecret: "secret", TokenTTL: time.Hour},
		Trading: config.Trading{InitialBalance: "50000"},
		Quotes:  config.Quotes{BaseURL: "http://127.0.0.1:0"},
	}
}

func TestNewMemory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(), log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*store.Memory); !ok {
		t.Fatalf("store = %T, want *store.Memory", a.Store)
	}

	u, err := a.Accounts.Register(context.Background(), models.RegisterRequest{
		Username: "ops", Email: "ops@example.com", Password1: "password123", Password2: "password123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	p, err := a.Store.Profile(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Balance.String() != "50000" {
		t.Errorf("balance = %s, want the configured 50000", p.Balance)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Storage = "redis"
	if _, err := OpenStore(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}

func TestNewGeneratesSecretWhenUnset(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	raw, _, err := a.Tokens.Issue(models.User{ID: 2, Username: "ops"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := a.Tokens.Parse(raw); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accounts.Claims{
		UserID: 2,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Tokens.Parse(forged); !errors.Is(err, accounts.ErrInvalidToken) {
		t.Errorf("token signed with an empty key: err = %v, want ErrInvalidToken", err)
	}
}

// Package market executes trades and values portfolios.
package market

import (
	"context"
	"log/slog"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
)

// Quotes is the price feed the market trades against.
type Quotes interface {
	StockInfo(ctx context.Context, symbol string) (models.StockInfo, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Universe(ctx context.Context) ([]models.StockInfo, error)
	Search(ctx context.Context, q string) ([]models.StockInfo, error)
}

type Service struct {
	store  store.Store
	quotes Quotes
	logger *slog.Logger
	now    func() time.Time
	locks  *userLocks
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, quotes Quotes, opts ...Option) *Service {
	s := &Service{
		store:  st,
		quotes: quotes,
		logger: slog.Default(),
		now:    time.Now,
		locks:  newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

package quotes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Source is the live quote API. *Client implements it.
type Source interface {
	Quote(ctx context.Context, symbol string) (models.StockInfo, error)
	Search(ctx context.Context, q string) ([]SearchHit, error)
}

const (
	fanOut          = 5
	maxSearchResult = 10
)

// Service answers quote lookups, degrading to Fallback data whenever the
// live source fails. A 429 keeps it on fallback data for the cooldown.
type Service struct {
	src      Source
	logger   *slog.Logger
	now      func() time.Time
	cooldown time.Duration

	fallbackUntil atomic.Int64
}

type Option func(*Service)

func WithServiceLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCooldown sets how long a 429 keeps the service off the live API.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) { s.cooldown = d }
}

func NewService(src Source, opts ...Option) *Service {
	s := &Service{
		src:      src,
		logger:   slog.Default(),
		now:      time.Now,
		cooldown: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InFallback reports whether a recent 429 is keeping the service off the live API.
func (s *Service) InFallback() bool {
	return s.now().UnixNano() < s.fallbackUntil.Load()
}

func (s *Service) noteFailure(op, arg string, err error) {
	if IsRateLimited(err) {
		until := s.now().Add(s.cooldown)
		s.fallbackUntil.Store(until.UnixNano())
		s.logger.Warn("quote api rate limited, using fallback data",
			slog.String("op", op), slog.String("arg", arg), slog.Time("until", until))
		return
	}
	s.logger.Warn("quote api failed, using fallback data",
		slog.String("op", op), slog.String("arg", arg), slog.String("error", err.Error()))
}

// StockInfo returns the quote for symbol. Symbols outside the universe
// have no fallback and fail with ErrUnknownSymbol when the API cannot serve them.
func (s *Service) StockInfo(ctx context.Context, symbol string) (models.StockInfo, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return models.StockInfo{}, err
	}

	if !s.InFallback() {
		info, err := s.src.Quote(ctx, sym)
		if err == nil {
			return info, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.StockInfo{}, ctxErr
		}
		s.noteFailure("quote", sym, err)
	}

	return s.fallback(sym)
}

func (s *Service) fallback(sym string) (models.StockInfo, error) {
	if _, ok := Lookup(sym); !ok {
		return models.StockInfo{}, ErrUnknownSymbol
	}
	return Fallback(sym, s.now()), nil
}

// CurrentPrice is the quote's price as money.
func (s *Service) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	info, err := s.StockInfo(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return info.Price(), nil
}

// Universe quotes every universe stock, at most five requests at a time.
func (s *Service) Universe(ctx context.Context) ([]models.StockInfo, error) {
	stocks := Universe()
	out := make([]models.StockInfo, len(stocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, st := range stocks {
		g.Go(func() error {
			info, err := s.StockInfo(gctx, st.Symbol)
			if err != nil {
				return err
			}
			out[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Search finds stocks matching q. Live hits are priced; when the API fails
// or finds nothing, the universe is filtered instead.
func (s *Service) Search(ctx context.Context, q string) ([]models.StockInfo, error) {
	q = strings.TrimSpace(q)

	if !s.InFallback() {
		hits, err := s.src.Search(ctx, q)
		switch {
		case err == nil && len(hits) > 0:
			return s.priceHits(ctx, hits)
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.noteFailure("search", q, err)
		}
	}

	return s.searchFallback(q), nil
}

// priceHits quotes live search hits. Hits whose symbol cannot be traded
// here are dropped; hits without a quote are listed unpriced.
func (s *Service) priceHits(ctx context.Context, hits []SearchHit) ([]models.StockInfo, error) {
	if len(hits) > maxSearchResult {
		hits = hits[:maxSearchResult]
	}
	out := make([]models.StockInfo, len(hits))
	keep := make([]bool, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, hit := range hits {
		g.Go(func() error {
			item := models.StockInfo{Symbol: hit.Symbol, Name: hit.Name, Exchange: hit.Exchange}
			info, err := s.StockInfo(gctx, hit.Symbol)
			switch {
			case err == nil:
				item.Symbol = info.Symbol
				item.CurrentPrice = info.CurrentPrice
				item.Change = info.Change
				item.ChangePercent = info.ChangePercent
				item.Fallback = info.Fallback
				if item.Name == "" {
					item.Name = info.Name
				}
			case errors.Is(err, ErrInvalidSymbol):
				s.logger.Debug("dropping search hit", slog.String("symbol", hit.Symbol))
				return nil
			case errors.Is(err, ErrUnknownSymbol):
				// listed but unpriced; still worth showing
			default:
				return err
			}
			out[i], keep[i] = item, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	priced := out[:0]
	for i, item := range out {
		if keep[i] {
			priced = append(priced, item)
		}
	}
	return priced, nil
}

func (s *Service) searchFallback(q string) []models.StockInfo {
	q = strings.ToLower(q)
	now := s.now()

	out := make([]models.StockInfo, 0, maxSearchResult)
	for _, st := range nifty50 {
		if !strings.Contains(strings.ToLower(st.Symbol), q) && !strings.Contains(strings.ToLower(st.Name), q) {
			continue
		}
		out = append(out, Fallback(st.Symbol, now))
		if len(out) == maxSearchResult {
			break
		}
	}
	return out
}

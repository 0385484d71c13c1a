package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
)

// pricer memoises current prices for the life of one request.
type pricer struct {
	quotes Quotes
	logger *slog.Logger
	cache  map[string]decimal.Decimal
}

func (s *Service) newPricer() *pricer {
	return &pricer{quotes: s.quotes, logger: s.logger, cache: make(map[string]decimal.Decimal)}
}

// price returns zero for a symbol that cannot be quoted.
func (p *pricer) price(ctx context.Context, symbol string) decimal.Decimal {
	if v, ok := p.cache[symbol]; ok {
		return v
	}

	v, err := p.quotes.CurrentPrice(ctx, symbol)
	if err != nil {
		p.logger.Warn("pricing holding at zero", slog.String("symbol", symbol), slog.String("error", err.Error()))
		v = decimal.Zero
	}
	p.cache[symbol] = v
	return v
}

// Valuate prices every holding of portfolio and adds balance for net worth.
func (s *Service) Valuate(ctx context.Context, portfolio models.Portfolio, balance decimal.Decimal) (models.PortfolioValuation, error) {
	return s.valuate(ctx, s.newPricer(), portfolio, balance)
}

func (s *Service) valuate(ctx context.Context, pr *pricer, portfolio models.Portfolio, balance decimal.Decimal) (models.PortfolioValuation, error) {
	holdings, err := s.store.Holdings(ctx, portfolio.ID)
	if err != nil {
		return models.PortfolioValuation{}, fmt.Errorf("holdings: %w", err)
	}

	v := models.PortfolioValuation{
		Portfolio:   portfolio,
		Holdings:    make([]models.HoldingValuation, 0, len(holdings)),
		TotalValue:  decimal.Zero,
		TotalProfit: decimal.Zero,
		Balance:     balance,
	}
	for _, h := range holdings {
		hv := h.Value(pr.price(ctx, h.StockSymbol))
		v.Holdings = append(v.Holdings, hv)
		v.TotalValue = v.TotalValue.Add(hv.CurrentValue)
		v.TotalProfit = v.TotalProfit.Add(hv.ProfitLoss)
	}
	v.NetWorth = v.TotalValue.Add(balance)
	return v, nil
}

// NetWorth is holdings at market plus cash. ok is false for a user
// who has no portfolio yet.
func (s *Service) NetWorth(ctx context.Context, userID int64) (decimal.Decimal, bool, error) {
	portfolio, err := s.store.Portfolio(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return decimal.Zero, false, err
	}

	v, err := s.Valuate(ctx, portfolio, profile.Balance)
	if err != nil {
		return decimal.Zero, false, err
	}
	return v.NetWorth, true, nil
}

package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
)

// Trade buys or sells at the current price. Cash, holding and the
// transaction log change together or not at all.
func (s *Service) Trade(ctx context.Context, userID int64, req models.TradeRequest) (models.TradeResult, error) {
	if req.Quantity <= 0 {
		return models.TradeResult{}, ErrInvalidQuantity
	}
	kind := models.TransactionType(strings.ToLower(strings.TrimSpace(string(req.TransactionType))))
	if !kind.Valid() {
		return models.TradeResult{}, ErrInvalidTransactionType
	}

	info, err := s.quote(ctx, req.Symbol)
	if err != nil {
		return models.TradeResult{}, err
	}
	price := info.Price()
	if !price.IsPositive() {
		return models.TradeResult{}, fmt.Errorf("%s: non-positive price: %w", info.Symbol, ErrInvalidSymbol)
	}

	order := order{
		userID: userID,
		kind:   kind,
		info:   info,
		qty:    req.Quantity,
		price:  price,
		total:  price.Mul(decimal.NewFromInt(req.Quantity)),
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var result models.TradeResult
	err = s.store.WithinTx(ctx, func(q store.Queries) error {
		var err error
		result, err = s.execute(ctx, q, order)
		return err
	})
	if err != nil {
		return models.TradeResult{}, err
	}

	s.logger.Info("trade executed",
		slog.Int64("user_id", userID),
		slog.String("type", string(kind)),
		slog.String("symbol", info.Symbol),
		slog.Int64("quantity", req.Quantity),
		slog.String("price", price.StringFixed(models.MoneyPlaces)),
		slog.Bool("fallback_price", info.Fallback),
	)
	return result, nil
}

type order struct {
	userID int64
	kind   models.TransactionType
	info   models.StockInfo
	qty    int64
	price  decimal.Decimal
	total  decimal.Decimal
}

// quote resolves symbol, turning any lookup failure into ErrInvalidSymbol.
func (s *Service) quote(ctx context.Context, symbol string) (models.StockInfo, error) {
	info, err := s.quotes.StockInfo(ctx, symbol)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.StockInfo{}, ctxErr
		}
		s.logger.Debug("stock lookup failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		return models.StockInfo{}, fmt.Errorf("%s: %w", symbol, ErrInvalidSymbol)
	}
	if info.Symbol == "" {
		info.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	}
	return info, nil
}

func (s *Service) execute(ctx context.Context, q store.Queries, o order) (models.TradeResult, error) {
	profile, err := q.LockProfile(ctx, o.userID)
	if err != nil {
		return models.TradeResult{}, fmt.Errorf("lock profile: %w", err)
	}
	portfolio, err := q.EnsurePortfolio(ctx, o.userID)
	if err != nil {
		return models.TradeResult{}, fmt.Errorf("ensure portfolio: %w", err)
	}

	holding, err := q.LockHolding(ctx, portfolio.ID, o.info.Symbol)
	owned := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.TradeResult{}, fmt.Errorf("lock holding: %w", err)
	}

	var (
		balance decimal.Decimal
		kept    *models.StockHolding
		verb    string
	)

	switch o.kind {
	case models.Buy:
		if profile.Balance.LessThan(o.total) {
			return models.TradeResult{}, &InsufficientFundsError{Need: o.total, Have: profile.Balance}
		}
		if !owned {
			holding = models.StockHolding{PortfolioID: portfolio.ID, StockSymbol: o.info.Symbol}
		}
		holding = ApplyBuy(holding, o.qty, o.price)
		if holding.StockName == "" {
			holding.StockName = o.info.Name
		}
		if err := q.SaveHolding(ctx, &holding); err != nil {
			return models.TradeResult{}, fmt.Errorf("save holding: %w", err)
		}
		kept = &holding
		balance = profile.Balance.Sub(o.total)
		verb = "bought"

	case models.Sell:
		if !owned {
			return models.TradeResult{}, &NoHoldingError{Symbol: o.info.Symbol}
		}
		holding, err = ApplySell(holding, o.qty)
		if err != nil {
			return models.TradeResult{}, err
		}
		if holding.Quantity == 0 {
			if err := q.DeleteHolding(ctx, holding.ID); err != nil {
				return models.TradeResult{}, fmt.Errorf("delete holding: %w", err)
			}
		} else {
			if err := q.SaveHolding(ctx, &holding); err != nil {
				return models.TradeResult{}, fmt.Errorf("save holding: %w", err)
			}
			kept = &holding
		}
		balance = profile.Balance.Add(o.total)
		verb = "sold"
	}

	if err := q.SetBalance(ctx, o.userID, balance); err != nil {
		return models.TradeResult{}, fmt.Errorf("set balance: %w", err)
	}

	txn := models.Transaction{
		PortfolioID:     portfolio.ID,
		StockSymbol:     o.info.Symbol,
		StockName:       o.info.Name,
		TransactionType: o.kind,
		Quantity:        o.qty,
		Price:           o.price,
	}
	if err := q.InsertTransaction(ctx, &txn); err != nil {
		return models.TradeResult{}, fmt.Errorf("insert transaction: %w", err)
	}

	return models.TradeResult{
		Message: fmt.Sprintf("Successfully %s %d shares of %s at %s per share.",
			verb, o.qty, o.info.Symbol, models.FormatMoney(o.price)),
		Transaction: txn,
		Holding:     kept,
		Balance:     balance,
		TotalAmount: o.total,
	}, nil
}

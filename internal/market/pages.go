package market

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
)

const (
	dashboardTransactions = 5
	overviewStocks        = 10
	overviewMovers        = 5
)

// Dashboard creates the portfolio on first visit.
func (s *Service) Dashboard(ctx context.Context, userID int64) (models.Dashboard, error) {
	portfolio, err := s.store.EnsurePortfolio(ctx, userID)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("ensure portfolio: %w", err)
	}
	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("profile: %w", err)
	}

	v, err := s.Valuate(ctx, portfolio, profile.Balance)
	if err != nil {
		return models.Dashboard{}, err
	}

	history, err := s.History(ctx, portfolio, v.NetWorth)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("history: %w", err)
	}

	txns, err := s.store.Transactions(ctx, portfolio.ID, dashboardTransactions)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("transactions: %w", err)
	}

	return models.Dashboard{
		Portfolio:        portfolio,
		Holdings:         v.Holdings,
		PortfolioHistory: history,
		Transactions:     txns,
		Balance:          profile.Balance,
		NetWorth:         v.NetWorth,
	}, nil
}

// StockDetail is a quote plus what the caller holds of it.
func (s *Service) StockDetail(ctx context.Context, userID int64, symbol string) (models.StockDetail, error) {
	info, err := s.quote(ctx, symbol)
	if err != nil {
		return models.StockDetail{}, err
	}

	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return models.StockDetail{}, fmt.Errorf("profile: %w", err)
	}
	detail := models.StockDetail{Stock: info, Balance: profile.Balance}

	portfolio, err := s.store.Portfolio(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return detail, nil
	case err != nil:
		return models.StockDetail{}, fmt.Errorf("portfolio: %w", err)
	}

	h, err := s.store.Holding(ctx, portfolio.ID, info.Symbol)
	switch {
	case err == nil:
		detail.Holding = &h
	case !errors.Is(err, store.ErrNotFound):
		return models.StockDetail{}, fmt.Errorf("holding: %w", err)
	}
	return detail, nil
}

// TradePage lists search results for q, or the whole universe when q is empty.
func (s *Service) TradePage(ctx context.Context, userID int64, q string) (models.TradePage, error) {
	q = strings.TrimSpace(q)

	var (
		stocks []models.StockInfo
		err    error
	)
	if q == "" {
		stocks, err = s.quotes.Universe(ctx)
	} else {
		stocks, err = s.quotes.Search(ctx, q)
	}
	if err != nil {
		return models.TradePage{}, err
	}

	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return models.TradePage{}, fmt.Errorf("profile: %w", err)
	}
	return models.TradePage{Stocks: stocks, Query: q, Balance: profile.Balance}, nil
}

// Search backs the typeahead. An empty query finds nothing.
func (s *Service) Search(ctx context.Context, q string) ([]models.StockInfo, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.StockInfo{}, nil
	}
	return s.quotes.Search(ctx, q)
}

// Overview is the landing page: the first ten stocks and the day's movers.
func (s *Service) Overview(ctx context.Context) (models.MarketOverview, error) {
	stocks, err := s.quotes.Universe(ctx)
	if err != nil {
		return models.MarketOverview{}, err
	}

	byChange := slices.Clone(stocks)
	slices.SortStableFunc(byChange, func(a, b models.StockInfo) int {
		return cmp.Compare(b.ChangePercent, a.ChangePercent)
	})

	n := min(overviewMovers, len(byChange))
	gainers := slices.Clone(byChange[:n])
	losers := slices.Clone(byChange[len(byChange)-n:])
	slices.Reverse(losers)

	return models.MarketOverview{
		Stocks:  stocks[:min(overviewStocks, len(stocks))],
		Gainers: gainers,
		Losers:  losers,
	}, nil
}

// Leaderboard ranks every portfolio by net worth, highest first.
func (s *Service) Leaderboard(ctx context.Context, userID int64) (models.Leaderboard, error) {
	owners, err := s.store.PortfolioOwners(ctx)
	if err != nil {
		return models.Leaderboard{}, fmt.Errorf("portfolio owners: %w", err)
	}

	pr := s.newPricer()
	entries := make([]models.LeaderboardEntry, 0, len(owners))
	for _, o := range owners {
		v, err := s.valuate(ctx, pr, o.Portfolio, o.Balance)
		if err != nil {
			return models.Leaderboard{}, err
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:         o.UserID,
			Username:       o.Username,
			NetWorth:       v.NetWorth,
			PortfolioValue: v.TotalValue,
			CashBalance:    o.Balance,
		})
	}

	slices.SortStableFunc(entries, func(a, b models.LeaderboardEntry) int {
		return b.NetWorth.Cmp(a.NetWorth)
	})

	board := models.Leaderboard{Users: entries}
	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].UserID == userID {
			rank := i + 1
			board.UserRank = &rank
		}
	}
	return board, nil
}

package market

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
)

const (
	historyDays  = 30
	historyTrend = 0.005
	historyNoise = 0.02
)

// History simulates the daily value chart ending today at netWorth. It
// starts at the first trade or 30 days back, whichever is later, and is
// empty before the first trade. Each day's noise is fixed per portfolio.
func (s *Service) History(ctx context.Context, portfolio models.Portfolio, netWorth decimal.Decimal) ([]models.HistoryPoint, error) {
	first, err := s.store.FirstTransactionAt(ctx, portfolio.ID)
	if errors.Is(err, store.ErrNotFound) {
		return []models.HistoryPoint{}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dateOf(now)
	firstDay := dateOf(first.In(now.Location()))

	days := int(math.Round(today.Sub(firstDay).Hours() / 24))
	days = max(0, min(days, historyDays))

	points := make([]models.HistoryPoint, 0, days+1)
	for ago := days; ago >= 0; ago-- {
		day := today.AddDate(0, 0, -ago)

		value := netWorth
		if ago > 0 {
			trend := 1 - float64(ago)*historyTrend
			noise := 1 + dailyNoise(portfolio.ID, day)
			value = netWorth.Mul(decimal.NewFromFloat(trend * noise))
		}

		points = append(points, models.HistoryPoint{
			Date:  day.Format(time.DateOnly),
			Value: models.RoundMoney(value),
		})
	}
	return points, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dailyNoise(portfolioID int64, day time.Time) float64 {
	y, m, d := day.Date()
	seed := uint64(y)*10000 + uint64(m)*100 + uint64(d)
	r := rand.New(rand.NewPCG(uint64(portfolioID), seed))
	return (r.Float64()*2 - 1) * historyNoise
}

package market

import (
	"context"
	"testing"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
)

func TestValuate(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "val", "100000")
	ctx := context.Background()

	env.trade(t, userID, models.Buy, "TCS", 10)     // 35000
	env.trade(t, userID, models.Buy, "RELIANCE", 4) // 10000
	env.quotes.set("TCS.NS", 3600)
	env.quotes.set("RELIANCE.NS", 0) // quote unavailable

	port, _ := env.store.Portfolio(ctx, userID)
	v, err := env.svc.Valuate(ctx, port, env.balance(t, userID))
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}

	if len(v.Holdings) != 2 {
		t.Fatalf("got %d holdings, want 2", len(v.Holdings))
	}
	for _, h := range v.Holdings {
		switch h.StockSymbol {
		case "TCS.NS":
			if !h.CurrentValue.Equal(dec("36000")) || !h.ProfitLoss.Equal(dec("1000")) {
				t.Errorf("TCS valuation = %+v", h)
			}
			if !h.ProfitLossPercentage.Equal(dec("2.86")) {
				t.Errorf("TCS P/L%% = %s, want 2.86", h.ProfitLossPercentage)
			}
		case "RELIANCE.NS":
			if !h.CurrentPrice.IsZero() || !h.ProfitLoss.Equal(dec("-10000")) {
				t.Errorf("unpriced holding valuation = %+v", h)
			}
		}
	}

	if !v.TotalValue.Equal(dec("36000")) {
		t.Errorf("TotalValue = %s, want 36000", v.TotalValue)
	}
	if !v.TotalProfit.Equal(dec("-9000")) {
		t.Errorf("TotalProfit = %s, want -9000", v.TotalProfit)
	}
	if !v.NetWorth.Equal(dec("91000")) {
		t.Errorf("NetWorth = %s, want 91000", v.NetWorth)
	}
}

func TestNetWorth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fresh := env.user(t, "fresh", "100000")
	if _, ok, err := env.svc.NetWorth(ctx, fresh); err != nil || ok {
		t.Errorf("NetWorth(no portfolio) ok = %v, err = %v; want false, nil", ok, err)
	}

	trader := env.user(t, "trader", "100000")
	env.trade(t, trader, models.Buy, "INFY", 10)
	env.quotes.set("INFY.NS", 1550)

	nw, ok, err := env.svc.NetWorth(ctx, trader)
	if err != nil || !ok {
		t.Fatalf("NetWorth: ok=%v err=%v", ok, err)
	}
	if !nw.Equal(dec("100500")) {
		t.Errorf("NetWorth = %s, want 100500", nw)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "hist", "100000")
	ctx := context.Background()

	port, _ := env.store.EnsurePortfolio(ctx, userID)
	points, err := env.svc.History(ctx, port, dec("100000"))
	if err != nil || len(points) != 0 {
		t.Fatalf("History before trading = %v, %v; want empty", points, err)
	}

	today := env.now
	env.now = today.AddDate(0, 0, -10)
	env.trade(t, userID, models.Buy, "TCS", 1)
	env.now = today

	points, err = env.svc.History(ctx, port, dec("100000"))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(points) != 11 {
		t.Fatalf("got %d points, want 11", len(points))
	}
	if points[0].Date != "2024-06-05" || points[10].Date != "2024-06-15" {
		t.Errorf("range = %s..%s", points[0].Date, points[10].Date)
	}
	if !points[10].Value.Equal(dec("100000")) {
		t.Errorf("today = %s, want net worth", points[10].Value)
	}

	// ten days back the trend is 0.95 with at most 2% noise
	lo, hi := dec("93100"), dec("96900")
	if points[0].Value.LessThan(lo) || points[0].Value.GreaterThan(hi) {
		t.Errorf("oldest point %s outside [%s, %s]", points[0].Value, lo, hi)
	}

	again, _ := env.svc.History(ctx, port, dec("100000"))
	for i := range points {
		if !again[i].Value.Equal(points[i].Value) {
			t.Fatalf("history is not stable: day %d %s vs %s", i, points[i].Value, again[i].Value)
		}
	}
}

func TestHistoryCappedAtThirtyDays(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "old", "100000")
	ctx := context.Background()

	today := env.now
	env.now = today.Add(-90 * 24 * time.Hour)
	env.trade(t, userID, models.Buy, "TCS", 1)
	env.now = today

	port, _ := env.store.Portfolio(ctx, userID)
	points, err := env.svc.History(ctx, port, dec("50000"))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(points) != 31 {
		t.Errorf("got %d points, want 31", len(points))
	}
}

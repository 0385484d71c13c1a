package market

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
)

var errNoQuote = errors.New("no quote")

// fakeQuotes serves fixed prices. Symbols are normalized the way the live
// service does it.
type fakeQuotes struct {
	mu      sync.Mutex
	prices  map[string]float64
	changes map[string]float64
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		prices: map[string]float64{
			"RELIANCE.NS": 2500,
			"TCS.NS":      3500,
			"INFY.NS":     1500,
		},
		changes: map[string]float64{},
	}
}

func (f *fakeQuotes) set(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if price == 0 {
		delete(f.prices, symbol)
		return
	}
	f.prices[symbol] = price
}

// quoteAt publishes price as is, zero included.
func (f *fakeQuotes) quoteAt(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s != "" && !strings.Contains(s, ".") {
		s += ".NS"
	}
	return s
}

func (f *fakeQuotes) StockInfo(_ context.Context, symbol string) (models.StockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sym := normalize(symbol)
	p, ok := f.prices[sym]
	if !ok {
		return models.StockInfo{}, errNoQuote
	}
	return models.StockInfo{Symbol: sym, Name: sym + " Ltd", CurrentPrice: p, ChangePercent: f.changes[sym]}, nil
}

func (f *fakeQuotes) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	info, err := f.StockInfo(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return info.Price(), nil
}

func (f *fakeQuotes) Universe(ctx context.Context) ([]models.StockInfo, error) {
	f.mu.Lock()
	symbols := make([]string, 0, len(f.prices))
	for s := range f.prices {
		symbols = append(symbols, s)
	}
	f.mu.Unlock()
	slices.Sort(symbols)

	out := make([]models.StockInfo, 0, len(symbols))
	for _, s := range symbols {
		info, _ := f.StockInfo(ctx, s)
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeQuotes) Search(ctx context.Context, q string) ([]models.StockInfo, error) {
	all, _ := f.Universe(ctx)
	out := make([]models.StockInfo, 0)
	for _, s := range all {
		if strings.Contains(s.Symbol, strings.ToUpper(q)) {
			out = append(out, s)
		}
	}
	return out, nil
}

type testEnv struct {
	svc    *Service
	store  *store.Memory
	quotes *fakeQuotes
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		quotes: newFakeQuotes(),
		now:    time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	env.store = store.NewMemoryWithClock(clock)
	env.svc = NewService(env.store, env.quotes, WithClock(clock))
	return env
}

func (e *testEnv) user(t *testing.T, name string, balance string) int64 {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Username: name, PasswordHash: "x"}
	if err := e.store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := e.store.CreateProfile(ctx, u.ID, decimal.RequireFromString(balance)); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	return u.ID
}

func (e *testEnv) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	p, err := e.store.Profile(context.Background(), userID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	return p.Balance
}

func (e *testEnv) trade(t *testing.T, userID int64, kind models.TransactionType, symbol string, qty int64) models.TradeResult {
	t.Helper()
	res, err := e.svc.Trade(context.Background(), userID, models.TradeRequest{Symbol: symbol, Quantity: qty, TransactionType: kind})
	if err != nil {
		t.Fatalf("Trade(%s %d %s): %v", kind, qty, symbol, err)
	}
	return res
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyBuy(t *testing.T) {
	tests := []struct {
		name    string
		start   models.StockHolding
		qty     int64
		price   string
		wantQty int64
		wantAvg string
	}{
		{name: "new holding", qty: 10, price: "100", wantQty: 10, wantAvg: "100"},
		{name: "weighted", start: models.StockHolding{Quantity: 10, AverageBuyPrice: dec("100")}, qty: 10, price: "200", wantQty: 20, wantAvg: "150"},
		{name: "uneven volumes", start: models.StockHolding{Quantity: 10, AverageBuyPrice: dec("100")}, qty: 30, price: "200", wantQty: 40, wantAvg: "175"},
		{name: "rounds to paise", start: models.StockHolding{Quantity: 3, AverageBuyPrice: dec("10.00")}, qty: 1, price: "10.03", wantQty: 4, wantAvg: "10.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyBuy(tt.start, tt.qty, dec(tt.price))
			if got.Quantity != tt.wantQty {
				t.Errorf("Quantity = %d, want %d", got.Quantity, tt.wantQty)
			}
			if !got.AverageBuyPrice.Equal(dec(tt.wantAvg)) {
				t.Errorf("AverageBuyPrice = %s, want %s", got.AverageBuyPrice, tt.wantAvg)
			}
		})
	}
}

func TestApplySell(t *testing.T) {
	h := models.StockHolding{StockSymbol: "TCS.NS", Quantity: 5, AverageBuyPrice: dec("3000")}

	got, err := ApplySell(h, 2)
	if err != nil || got.Quantity != 3 || !got.AverageBuyPrice.Equal(h.AverageBuyPrice) {
		t.Errorf("ApplySell(2) = %+v, %v", got, err)
	}

	got, err = ApplySell(h, 5)
	if err != nil || got.Quantity != 0 {
		t.Errorf("ApplySell(all) = %+v, %v", got, err)
	}

	_, err = ApplySell(h, 6)
	var sharesErr *InsufficientSharesError
	if !errors.As(err, &sharesErr) || sharesErr.Owned != 5 || sharesErr.Requested != 6 {
		t.Fatalf("ApplySell(6) error = %v", err)
	}
	if !errors.Is(err, ErrInsufficientShares) {
		t.Error("InsufficientSharesError does not unwrap to ErrInsufficientShares")
	}
}

func TestTradeBuy(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "buyer", "100000")

	res := env.trade(t, userID, models.Buy, "reliance", 10)

	if !res.Balance.Equal(dec("75000")) {
		t.Errorf("result balance = %s, want 75000", res.Balance)
	}
	if got := env.balance(t, userID); !got.Equal(dec("75000")) {
		t.Errorf("stored balance = %s, want 75000", got)
	}
	if !res.TotalAmount.Equal(dec("25000")) {
		t.Errorf("TotalAmount = %s, want 25000", res.TotalAmount)
	}
	if res.Holding == nil || res.Holding.Quantity != 10 || !res.Holding.AverageBuyPrice.Equal(dec("2500")) {
		t.Errorf("Holding = %+v", res.Holding)
	}
	want := "Successfully bought 10 shares of RELIANCE.NS at ₹2,500.00 per share."
	if res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
	if res.Transaction.ID == 0 || res.Transaction.TransactionType != models.Buy {
		t.Errorf("Transaction = %+v", res.Transaction)
	}
}

func TestTradeWeightedAverageAcrossBuys(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "avg", "100000")

	env.quotes.set("TCS.NS", 100)
	env.trade(t, userID, models.Buy, "TCS", 10)
	env.quotes.set("TCS.NS", 200)
	res := env.trade(t, userID, models.Buy, "TCS", 30)

	if res.Holding.Quantity != 40 || !res.Holding.AverageBuyPrice.Equal(dec("175")) {
		t.Errorf("Holding = %+v, want 40 @ 175", res.Holding)
	}
	if got := env.balance(t, userID); !got.Equal(dec("93000")) {
		t.Errorf("balance = %s, want 93000", got)
	}
}

func TestTradeSellAllRemovesHolding(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "seller", "100000")
	ctx := context.Background()

	env.trade(t, userID, models.Buy, "INFY", 4)
	env.quotes.set("INFY.NS", 1600)

	res := env.trade(t, userID, models.Sell, "INFY", 3)
	if res.Holding == nil || res.Holding.Quantity != 1 || !res.Holding.AverageBuyPrice.Equal(dec("1500")) {
		t.Errorf("partial sell holding = %+v", res.Holding)
	}

	res = env.trade(t, userID, models.Sell, "INFY", 1)
	if res.Holding != nil {
		t.Errorf("holding after selling all = %+v, want nil", res.Holding)
	}
	want := "Successfully sold 1 shares of INFY.NS at ₹1,600.00 per share."
	if res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}

	port, _ := env.store.Portfolio(ctx, userID)
	if _, err := env.store.Holding(ctx, port.ID, "INFY.NS"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("holding still stored: %v", err)
	}
	// 100000 - 4*1500 + 4*1600
	if got := env.balance(t, userID); !got.Equal(dec("100400")) {
		t.Errorf("balance = %s, want 100400", got)
	}
	txns, _ := env.store.Transactions(ctx, port.ID, 0)
	if len(txns) != 3 {
		t.Errorf("got %d transactions, want 3", len(txns))
	}
}

func TestTradeRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, env *testEnv, userID int64)
		req     models.TradeRequest
		wantErr error
	}{
		{name: "zero quantity", req: models.TradeRequest{Symbol: "TCS", Quantity: 0, TransactionType: models.Buy}, wantErr: ErrInvalidQuantity},
		{name: "negative quantity", req: models.TradeRequest{Symbol: "TCS", Quantity: -3, TransactionType: models.Buy}, wantErr: ErrInvalidQuantity},
		{name: "bad type", req: models.TradeRequest{Symbol: "TCS", Quantity: 1, TransactionType: "hold"}, wantErr: ErrInvalidTransactionType},
		{name: "missing type", req: models.TradeRequest{Symbol: "TCS", Quantity: 1}, wantErr: ErrInvalidTransactionType},
		{name: "unknown symbol", req: models.TradeRequest{Symbol: "NOPE", Quantity: 1, TransactionType: models.Buy}, wantErr: ErrInvalidSymbol},
		{
			name:    "zero price",
			setup:   func(t *testing.T, env *testEnv, _ int64) { env.quotes.quoteAt("TCS.NS", 0) },
			req:     models.TradeRequest{Symbol: "TCS", Quantity: 1, TransactionType: models.Buy},
			wantErr: ErrInvalidSymbol,
		},
		{
			name:    "price rounds to zero",
			setup:   func(t *testing.T, env *testEnv, _ int64) { env.quotes.quoteAt("TCS.NS", 0.004) },
			req:     models.TradeRequest{Symbol: "TCS", Quantity: 1, TransactionType: models.Buy},
			wantErr: ErrInvalidSymbol,
		},
		{
			name: "sell at zero price",
			setup: func(t *testing.T, env *testEnv, userID int64) {
				env.trade(t, userID, models.Buy, "TCS", 2)
				env.quotes.quoteAt("TCS.NS", 0.004)
			},
			req:     models.TradeRequest{Symbol: "TCS", Quantity: 1, TransactionType: models.Sell},
			wantErr: ErrInvalidSymbol,
		},
		{name: "insufficient funds", req: models.TradeRequest{Symbol: "TCS", Quantity: 29, TransactionType: models.Buy}, wantErr: ErrInsufficientFunds},
		{name: "sell without holding", req: models.TradeRequest{Symbol: "TCS", Quantity: 1, TransactionType: models.Sell}, wantErr: ErrNoHolding},
		{
			name: "sell more than owned",
			setup: func(t *testing.T, env *testEnv, userID int64) {
				env.trade(t, userID, models.Buy, "TCS", 5)
			},
			req:     models.TradeRequest{Symbol: "TCS", Quantity: 6, TransactionType: models.Sell},
			wantErr: ErrInsufficientShares,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			userID := env.user(t, "trader", "100000")
			if tt.setup != nil {
				tt.setup(t, env, userID)
			}
			before := env.balance(t, userID)

			_, err := env.svc.Trade(context.Background(), userID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if after := env.balance(t, userID); !after.Equal(before) {
				t.Errorf("balance changed from %s to %s on a rejected trade", before, after)
			}
		})
	}
}

func TestInsufficientFundsMessage(t *testing.T) {
	env := newTestEnv(t)
	userID := env.user(t, "poor", "100")

	_, err := env.svc.Trade(context.Background(), userID, models.TradeRequest{Symbol: "TCS", Quantity: 1, TransactionType: models.Buy})
	var fundsErr *InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("error = %v, want InsufficientFundsError", err)
	}
	want := "Insufficient funds. You need ₹3,500.00 but have ₹100.00."
	if fundsErr.Error() != want {
		t.Errorf("message = %q, want %q", fundsErr.Error(), want)
	}
}

func TestConcurrentBuyingSameUser(t *testing.T) {
	env := newTestEnv(t)
	env.quotes.set("RELIANCE.NS", 100)
	userID := env.user(t, "concurrent_user", "10000")

	numTrades := 10
	errs := make(chan error, numTrades)
	var wg sync.WaitGroup
	for i := 0; i < numTrades; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Trade(context.Background(), userID, models.TradeRequest{Symbol: "RELIANCE", Quantity: 1, TransactionType: models.Buy})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("trade failed: %v", err)
		}
	}

	if got := env.balance(t, userID); !got.Equal(dec("9000")) {
		t.Errorf("Race condition detected! Expected balance 9000, got %s", got)
	}
	port, _ := env.store.Portfolio(context.Background(), userID)
	h, _ := env.store.Holding(context.Background(), port.ID, "RELIANCE.NS")
	if h.Quantity != int64(numTrades) {
		t.Errorf("Race condition detected! Expected quantity %d, got %d", numTrades, h.Quantity)
	}
	if n := env.svc.locks.size(); n != 0 {
		t.Errorf("%d user locks left behind", n)
	}
}

func TestConcurrentBuyingOverdraw(t *testing.T) {
	env := newTestEnv(t)
	env.quotes.set("RELIANCE.NS", 100)
	userID := env.user(t, "overdraw", "500")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Trade(context.Background(), userID, models.TradeRequest{Symbol: "RELIANCE", Quantity: 1, TransactionType: models.Buy})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 || rejected != 3 {
		t.Errorf("succeeded=%d rejected=%d, want 5 and 3", succeeded, rejected)
	}
	if got := env.balance(t, userID); !got.IsZero() {
		t.Errorf("balance = %s, want 0", got)
	}
}

func TestConcurrentBuyingDifferentUsers(t *testing.T) {
	env := newTestEnv(t)
	env.quotes.set("RELIANCE.NS", 100)

	userIDs := make([]int64, 5)
	for i := range userIDs {
		userIDs[i] = env.user(t, fmt.Sprintf("user%d", i), "10000")
	}

	var wg sync.WaitGroup
	for _, uid := range userIDs {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := env.svc.Trade(context.Background(), uid, models.TradeRequest{Symbol: "RELIANCE", Quantity: 1, TransactionType: models.Buy}); err != nil {
					t.Errorf("trade for user %d failed: %v", uid, err)
				}
			}()
		}
	}
	wg.Wait()

	for _, uid := range userIDs {
		if got := env.balance(t, uid); !got.Equal(dec("9000")) {
			t.Errorf("user %d balance = %s, want 9000", uid, got)
		}
	}
}

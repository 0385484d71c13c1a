package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the 1:1 container of a user's holdings and transactions
type Portfolio struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// PortfolioOwner is a portfolio joined with the owner's name and cash, as the leaderboard needs it.
type PortfolioOwner struct {
	Portfolio
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
}

// StockHolding is a position in one stock. Unique per portfolio and symbol.
type StockHolding struct {
	ID              int64           `json:"id"`
	PortfolioID     int64           `json:"portfolio_id"`
	StockSymbol     string          `json:"stock_symbol"`
	StockName       string          `json:"stock_name"`
	Quantity        int64           `json:"quantity"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// InvestedValue is quantity times the average cost basis.
func (h StockHolding) InvestedValue() decimal.Decimal {
	return h.AverageBuyPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// Value prices the holding at the given current price.
func (h StockHolding) Value(price decimal.Decimal) HoldingValuation {
	current := price.Mul(decimal.NewFromInt(h.Quantity))
	invested := h.InvestedValue()
	profit := current.Sub(invested)

	pct := decimal.Zero
	if invested.IsPositive() {
		pct = profit.Div(invested).Mul(decimal.NewFromInt(100)).Round(MoneyPlaces)
	}

	return HoldingValuation{
		StockHolding:         h,
		CurrentPrice:         price,
		CurrentValue:         current,
		InvestedValue:        invested,
		ProfitLoss:           profit,
		ProfitLossPercentage: pct,
	}
}

// HoldingValuation is a holding priced at the current market.
type HoldingValuation struct {
	StockHolding
	CurrentPrice         decimal.Decimal `json:"current_price"`
	CurrentValue         decimal.Decimal `json:"current_value"`
	InvestedValue        decimal.Decimal `json:"invested_value"`
	ProfitLoss           decimal.Decimal `json:"profit_loss"`
	ProfitLossPercentage decimal.Decimal `json:"profit_loss_percentage"`
}

// PortfolioValuation is the derived value of a whole portfolio.
type PortfolioValuation struct {
	Portfolio   Portfolio          `json:"portfolio"`
	Holdings    []HoldingValuation `json:"holdings"`
	TotalValue  decimal.Decimal    `json:"total_value"`
	TotalProfit decimal.Decimal    `json:"total_profit"`
	Balance     decimal.Decimal    `json:"balance"`
	NetWorth    decimal.Decimal    `json:"net_worth"`
}

// TransactionType is the side of a trade
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

// Valid reports whether t is buy or sell.
func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// Transaction is one entry of the append-only trade log
type Transaction struct {
	ID              int64           `json:"id"`
	PortfolioID     int64           `json:"portfolio_id"`
	StockSymbol     string          `json:"stock_symbol"`
	StockName       string          `json:"stock_name"`
	TransactionType TransactionType `json:"transaction_type"`
	Quantity        int64           `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       time.Time       `json:"timestamp"`
}

// TotalAmount is quantity times price.
func (t Transaction) TotalAmount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// HistoryPoint is one day of the portfolio value chart.
type HistoryPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

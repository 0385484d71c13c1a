package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRequest - what client sends to buy or sell stocks
type TradeRequest struct {
	Symbol          string          `json:"symbol" binding:"required"`
	Quantity        int64           `json:"quantity"`
	TransactionType TransactionType `json:"transaction_type"`
}

// TradeResult - what we send back after a trade
type TradeResult struct {
	Message     string          `json:"message"`
	Transaction Transaction     `json:"transaction"`
	Holding     *StockHolding   `json:"holding"`
	Balance     decimal.Decimal `json:"balance"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CreateChallengeRequest struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
}

// ProfilePage is the account page: identity, cash, positions and recent trades.
type ProfilePage struct {
	User             User           `json:"user"`
	Profile          Profile        `json:"profile"`
	FormattedBalance string         `json:"formatted_balance"`
	Portfolio        *Portfolio     `json:"portfolio"`
	Holdings         []StockHolding `json:"holdings"`
	Transactions     []Transaction  `json:"transactions"`
}

type Dashboard struct {
	Portfolio        Portfolio          `json:"portfolio"`
	Holdings         []HoldingValuation `json:"holdings"`
	PortfolioHistory []HistoryPoint     `json:"portfolio_history"`
	Transactions     []Transaction      `json:"transactions"`
	Balance          decimal.Decimal    `json:"balance"`
	NetWorth         decimal.Decimal    `json:"net_worth"`
}

type StockDetail struct {
	Stock   StockInfo       `json:"stock"`
	Holding *StockHolding   `json:"holding"`
	Balance decimal.Decimal `json:"balance"`
}

type TradePage struct {
	Stocks  []StockInfo     `json:"stocks"`
	Query   string          `json:"query"`
	Balance decimal.Decimal `json:"balance"`
}

type MarketOverview struct {
	Stocks  []StockInfo `json:"nifty50_data"`
	Gainers []StockInfo `json:"gainers"`
	Losers  []StockInfo `json:"losers"`
}

type LeaderboardEntry struct {
	Rank           int             `json:"rank"`
	UserID         int64           `json:"user_id"`
	Username       string          `json:"username"`
	NetWorth       decimal.Decimal `json:"net_worth"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
}

type Leaderboard struct {
	Users    []LeaderboardEntry `json:"users"`
	UserRank *int               `json:"user_rank"`
}

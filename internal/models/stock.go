package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockInfo is a quote as the quote API (or the fallback generator) reports it.
type StockInfo struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Exchange         string  `json:"exchange,omitempty"`
	CurrentPrice     float64 `json:"current_price"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"change_percent"`
	PreviousClose    float64 `json:"previous_close"`
	Open             float64 `json:"open"`
	DayHigh          float64 `json:"day_high"`
	DayLow           float64 `json:"day_low"`
	Volume           int64   `json:"volume"`
	MarketCap        float64 `json:"market_cap"`
	PERatio          float64 `json:"pe_ratio"`
	DividendYield    float64 `json:"dividend_yield"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low"`
	Fallback         bool    `json:"fallback"`
}

// Price is the current price as money.
func (s StockInfo) Price() decimal.Decimal {
	return RoundMoney(decimal.NewFromFloat(s.CurrentPrice))
}

// PriceUpdate represents a stock price update pushed over the websocket
type PriceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	Timestamp time.Time `json:"timestamp"`
}

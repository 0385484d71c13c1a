package quotes

import (
	"errors"
	"strings"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// NSESuffix marks a symbol listed on the National Stock Exchange.
const NSESuffix = ".NS"

const maxSymbolLen = 20

// Stock is one entry of the tradable universe.
type Stock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var nifty50 = []Stock{
	{Symbol: "RELIANCE.NS", Name: "Reliance Industries Ltd"},
	{Symbol: "TCS.NS", Name: "Tata Consultancy Services Ltd"},
	{Symbol: "HDFCBANK.NS", Name: "HDFC Bank Ltd"},
	{Symbol: "INFY.NS", Name: "Infosys Ltd"},
	{Symbol: "ICICIBANK.NS", Name: "ICICI Bank Ltd"},
	{Symbol: "HINDUNILVR.NS", Name: "Hindustan Unilever Ltd"},
	{Symbol: "HDFC.NS", Name: "Housing Development Finance Corporation Ltd"},
	{Symbol: "SBIN.NS", Name: "State Bank of India"},
	{Symbol: "BHARTIARTL.NS", Name: "Bharti Airtel Ltd"},
	{Symbol: "KOTAKBANK.NS", Name: "Kotak Mahindra Bank Ltd"},
	{Symbol: "ITC.NS", Name: "ITC Ltd"},
	{Symbol: "LT.NS", Name: "Larsen & Toubro Ltd"},
	{Symbol: "ASIANPAINT.NS", Name: "Asian Paints Ltd"},
	{Symbol: "AXISBANK.NS", Name: "Axis Bank Ltd"},
	{Symbol: "BAJFINANCE.NS", Name: "Bajaj Finance Ltd"},
}

// Universe returns a copy of the fixed NIFTY-50 subset the app trades.
func Universe() []Stock {
	out := make([]Stock, len(nifty50))
	copy(out, nifty50)
	return out
}

// Lookup finds a normalized symbol in the universe.
func Lookup(symbol string) (Stock, bool) {
	for _, s := range nifty50 {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return Stock{}, false
}

// NormalizeSymbol trims and upper-cases s. A bare ticker gets the .NS suffix.
func NormalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || len(s) > maxSymbolLen {
		return "", ErrInvalidSymbol
	}

	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '&', r == '^':
		default:
			return "", ErrInvalidSymbol
		}
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return "", ErrInvalidSymbol
	}

	if !strings.Contains(s, ".") {
		s += NSESuffix
	}
	return s, nil
}

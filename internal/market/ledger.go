package market

import (
	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/shopspring/decimal"
)

// ApplyBuy adds qty shares bought at price to h and recomputes the
// volume-weighted average cost, rounded to money precision.
func ApplyBuy(h models.StockHolding, qty int64, price decimal.Decimal) models.StockHolding {
	cost := h.AverageBuyPrice.Mul(decimal.NewFromInt(h.Quantity)).
		Add(price.Mul(decimal.NewFromInt(qty)))

	h.Quantity += qty
	if h.Quantity > 0 {
		h.AverageBuyPrice = models.RoundMoney(cost.Div(decimal.NewFromInt(h.Quantity)))
	}
	return h
}

// ApplySell removes qty shares from h. The average cost is unchanged.
// A result with zero quantity must be deleted by the caller.
func ApplySell(h models.StockHolding, qty int64) (models.StockHolding, error) {
	if h.Quantity < qty {
		return h, &InsufficientSharesError{Symbol: h.StockSymbol, Owned: h.Quantity, Requested: qty}
	}
	h.Quantity -= qty
	return h, nil
}

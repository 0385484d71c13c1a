package market

import (
	"errors"
	"fmt"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidSymbol          = errors.New("invalid stock symbol")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrNoHolding              = errors.New("no holding")
	ErrInsufficientShares     = errors.New("insufficient shares")
)

// InsufficientFundsError is a buy that costs more than the cash on hand.
type InsufficientFundsError struct {
	Need decimal.Decimal
	Have decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds. You need %s but have %s.",
		models.FormatMoney(e.Need), models.FormatMoney(e.Have))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type NoHoldingError struct {
	Symbol string
}

func (e *NoHoldingError) Error() string {
	return fmt.Sprintf("You don't own any shares of %s.", e.Symbol)
}

func (e *NoHoldingError) Unwrap() error { return ErrNoHolding }

type InsufficientSharesError struct {
	Symbol    string
	Owned     int64
	Requested int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("You only have %d shares of %s but are trying to sell %d.",
		e.Owned, e.Symbol, e.Requested)
}

func (e *InsufficientSharesError) Unwrap() error { return ErrInsufficientShares }

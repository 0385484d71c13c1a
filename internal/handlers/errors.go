package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/atharvakonge/stocksim/internal/accounts"
	"github.com/atharvakonge/stocksim/internal/challenges"
	"github.com/atharvakonge/stocksim/internal/market"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/gin-gonic/gin"
)

const (
	internalMessage      = "Something went wrong. Please try again."
	missingFieldsMessage = "Please fill all required fields."
	invalidSymbolMessage = "Invalid stock symbol or could not retrieve stock information."
	noStockInfoMessage   = "Could not retrieve stock information. Please try again later."
)

// flash pairs a domain error with the status and message users see.
type flash struct {
	err     error
	status  int
	message string
}

var flashes = []flash{
	{market.ErrInvalidQuantity, http.StatusBadRequest, "Quantity must be greater than zero."},
	{market.ErrInvalidTransactionType, http.StatusBadRequest, "Invalid transaction type."},
	{market.ErrInvalidSymbol, http.StatusBadRequest, invalidSymbolMessage},

	{challenges.ErrNotFound, http.StatusNotFound, "Challenge not found."},
	{challenges.ErrMissingFields, http.StatusBadRequest, missingFieldsMessage},
	{challenges.ErrInvalidDates, http.StatusBadRequest, "End date must be after start date."},
	{challenges.ErrInvalidBalance, http.StatusBadRequest, "Initial balance must be positive."},
	{challenges.ErrChallengeClosed, http.StatusBadRequest, "This challenge has already ended."},

	{accounts.ErrMissingFields, http.StatusBadRequest, missingFieldsMessage},
	{accounts.ErrInvalidEmail, http.StatusBadRequest, "Enter a valid email address."},
	{accounts.ErrPasswordMismatch, http.StatusBadRequest, "The two password fields didn't match."},
	{accounts.ErrPasswordTooShort, http.StatusBadRequest, "This password is too short. It must contain at least 8 characters."},
	{accounts.ErrUsernameTaken, http.StatusConflict, "A user with that username already exists."},
	{accounts.ErrInvalidCredentials, http.StatusUnauthorized, "Please enter a correct username and password."},

	{store.ErrNotFound, http.StatusNotFound, "Not found."},
}

// respond maps err to a status and flash message. Trade rejections carry
// their own message; anything unrecognised is logged and hidden.
func respond(err error) (int, string) {
	var (
		funds  *market.InsufficientFundsError
		owned  *market.NoHoldingError
		shares *market.InsufficientSharesError
	)
	switch {
	case errors.As(err, &funds):
		return http.StatusBadRequest, funds.Error()
	case errors.As(err, &owned):
		return http.StatusBadRequest, owned.Error()
	case errors.As(err, &shares):
		return http.StatusBadRequest, shares.Error()
	}

	for _, f := range flashes {
		if errors.Is(err, f.err) {
			return f.status, f.message
		}
	}
	return http.StatusInternalServerError, internalMessage
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := respond(err)
	if status >= http.StatusInternalServerError {
		h.log(c).Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

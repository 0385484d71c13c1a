package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered trader
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds a user's virtual cash
type Profile struct {
	UserID     int64           `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	DateJoined time.Time       `json:"date_joined"`
}

// FormattedBalance renders the balance as shown to users, e.g. "₹100,000.00".
func (p Profile) FormattedBalance() string {
	return FormatMoney(p.Balance)
}

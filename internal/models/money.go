package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every amount shown to users.
const CurrencySymbol = "₹"

// MoneyPlaces is the precision every stored amount is kept at.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney renders d as ₹1,234.56.
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(MoneyPlaces)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + CurrencySymbol + b.String() + "." + frac
}

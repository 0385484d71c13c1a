package quotes

import (
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
)

// Fallback synthesizes a plausible quote for symbol. The numbers are stable
// for a given symbol within one clock hour.
func Fallback(symbol string, now time.Time) models.StockInfo {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	hour := uint64(now.Unix() / 3600)
	r := rand.New(rand.NewPCG(h.Sum64(), hour))

	uniform := func(lo, hi float64) float64 { return lo + r.Float64()*(hi-lo) }

	name := symbol
	if s, ok := Lookup(symbol); ok {
		name = s.Name
	}

	price := uniform(500, 5000)
	changePct := uniform(-5, 5)
	change := price * changePct / 100
	prevClose := price - change

	return models.StockInfo{
		Symbol:           symbol,
		Name:             name,
		CurrentPrice:     price,
		Change:           change,
		ChangePercent:    changePct,
		PreviousClose:    prevClose,
		Open:             prevClose * (1 + uniform(-1, 1)/100),
		DayHigh:          price * (1 + uniform(0, 2)/100),
		DayLow:           price * (1 - uniform(0, 2)/100),
		Volume:           100_000 + r.Int64N(9_900_000),
		MarketCap:        price * float64(10_000_000+r.Int64N(990_000_000)),
		PERatio:          uniform(5, 50),
		DividendYield:    uniform(0, 5),
		FiftyTwoWeekHigh: price * (1 + uniform(5, 25)/100),
		FiftyTwoWeekLow:  price * (1 - uniform(5, 25)/100),
		Fallback:         true,
	}
}

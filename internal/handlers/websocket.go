package handlers

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	// reseedEvery ticks the stream goes back to the quote service for base prices.
	reseedEvery = 60
	writeWait   = 5 * time.Second
	maxTickMove = 2.0
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamPrices pushes a PriceUpdate for one random universe stock per tick.
// Prices start from the quote service and drift up to ±2% a tick between reseeds.
func (h *Handler) streamPrices(c *gin.Context) {
	log := h.log(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reading is required to notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Debug("price stream opened")
	defer log.Debug("price stream closed")

	var stocks []models.StockInfo
	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		if tick%reseedEvery == 0 || len(stocks) == 0 {
			fresh, err := h.prices.Universe(ctx)
			if err != nil && ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn("price stream reseed failed", slog.Any("error", err))
			} else if len(fresh) > 0 {
				stocks = fresh
			}
		}

		if len(stocks) > 0 {
			update := nextTick(stocks, time.Now())
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				log.Debug("websocket write failed", slog.Any("error", err))
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// nextTick moves a random stock's price and reports the move.
func nextTick(stocks []models.StockInfo, now time.Time) models.PriceUpdate {
	i := rand.IntN(len(stocks))
	change := (rand.Float64()*2 - 1) * maxTickMove
	price := stocks[i].CurrentPrice * (1 + change/100)
	stocks[i].CurrentPrice = price

	return models.PriceUpdate{
		Symbol:    stocks[i].Symbol,
		Price:     models.RoundMoney(decimal.NewFromFloat(price)).InexactFloat64(),
		Change:    decimal.NewFromFloat(change).Round(2).InexactFloat64(),
		Timestamp: now,
	}
}

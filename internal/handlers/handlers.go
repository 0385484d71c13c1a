// Package handlers exposes the simulator over HTTP with gin.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/atharvakonge/stocksim/internal/accounts"
	"github.com/atharvakonge/stocksim/internal/challenges"
	"github.com/atharvakonge/stocksim/internal/market"
	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// PriceSource seeds the websocket price stream.
type PriceSource interface {
	Universe(ctx context.Context) ([]models.StockInfo, error)
}

type Handler struct {
	market     *market.Service
	challenges *challenges.Service
	accounts   *accounts.Service
	tokens     *accounts.Tokens
	prices     PriceSource
	logger     *slog.Logger

	streamInterval time.Duration
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithStreamInterval sets how often /ws/prices pushes an update.
func WithStreamInterval(d time.Duration) Option {
	return func(h *Handler) { h.streamInterval = d }
}

func New(
	mkt *market.Service,
	ch *challenges.Service,
	acc *accounts.Service,
	tokens *accounts.Tokens,
	prices PriceSource,
	opts ...Option,
) *Handler {
	h := &Handler{
		market:         mkt,
		challenges:     ch,
		accounts:       acc,
		tokens:         tokens,
		prices:         prices,
		logger:         slog.Default(),
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the gin engine. An empty allowOrigins allows every origin.
func (h *Handler) Router(allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(h.logger))
	r.Use(gin.CustomRecovery(h.recovered))
	r.Use(cors.New(corsConfig(allowOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/ws/prices", h.streamPrices)

	api := r.Group("/api")
	{
		api.GET("/market/overview", h.overview)
		api.POST("/accounts/register", h.register)
		api.POST("/accounts/login", h.login)
	}

	authed := api.Group("", h.requireAuth)
	{
		authed.POST("/accounts/logout", h.logout)
		authed.GET("/accounts/profile", h.profile)
		authed.PUT("/accounts/profile", h.updateProfile)

		authed.GET("/dashboard", h.dashboard)
		authed.GET("/trade", h.tradePage)
		authed.POST("/trade", h.trade)
		authed.GET("/stocks/:symbol", h.stockDetail)
		authed.GET("/search-stock", h.searchStock)
		authed.GET("/leaderboard", h.leaderboard)

		authed.GET("/challenges", h.listChallenges)
		authed.POST("/challenges", h.createChallenge)
		authed.GET("/challenges/:id", h.challengeDetail)
		authed.POST("/challenges/:id/join", h.joinChallenge)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	cfg.ExposeHeaders = []string{"Content-Length", requestIDHeader}
	return cfg
}

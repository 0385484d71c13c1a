package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/atharvakonge/stocksim/internal/market"
	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/gin-gonic/gin"
)

// trade handles POST /api/trade
func (h *Handler) trade(c *gin.Context) {
	var req models.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, missingFieldsMessage)
		return
	}

	res, err := h.market.Trade(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// tradePage handles GET /api/trade?q=
func (h *Handler) tradePage(c *gin.Context) {
	page, err := h.market.TradePage(c.Request.Context(), userID(c), strings.TrimSpace(c.Query("q")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.market.Dashboard(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) stockDetail(c *gin.Context) {
	detail, err := h.market.StockDetail(c.Request.Context(), userID(c), c.Param("symbol"))
	if errors.Is(err, market.ErrInvalidSymbol) {
		badRequest(c, noStockInfoMessage)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// searchStock answers the trade page's autocomplete.
func (h *Handler) searchStock(c *gin.Context) {
	results, err := h.market.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) overview(c *gin.Context) {
	o, err := h.market.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) leaderboard(c *gin.Context) {
	lb, err := h.market.Leaderboard(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

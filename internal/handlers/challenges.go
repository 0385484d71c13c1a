package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/atharvakonge/stocksim/internal/challenges"
	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) listChallenges(c *gin.Context) {
	board, err := h.challenges.List(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) createChallenge(c *gin.Context) {
	var req models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, missingFieldsMessage)
		return
	}

	summary, err := h.challenges.Create(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   fmt.Sprintf("Challenge '%s' created successfully!", summary.Name),
		"challenge": summary,
	})
}

func (h *Handler) challengeDetail(c *gin.Context) {
	id, ok := challengeID(c)
	if !ok {
		h.fail(c, challenges.ErrNotFound)
		return
	}

	detail, err := h.challenges.Detail(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) joinChallenge(c *gin.Context) {
	id, ok := challengeID(c)
	if !ok {
		h.fail(c, challenges.ErrNotFound)
		return
	}

	ch, joined, err := h.challenges.Join(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	msg := "You are already participating in this challenge."
	if joined {
		msg = fmt.Sprintf("You have joined the challenge '%s'!", ch.Name)
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "joined": joined})
}

func challengeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, missingFieldsMessage)
		return
	}

	u, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	sess, err := h.accounts.Login(c.Request.Context(), models.LoginRequest{Username: u.Username, Password: req.Password1})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("Account created for %s!", u.Username),
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       sess.User,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, missingFieldsMessage)
		return
	}

	sess, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Welcome back, " + sess.User.Username + "!",
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       sess.User,
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.accounts.Logout(claimsFrom(c))
	c.JSON(http.StatusOK, gin.H{"message": "You have been logged out."})
}

func (h *Handler) profile(c *gin.Context) {
	page, err := h.accounts.Profile(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, missingFieldsMessage)
		return
	}

	u, err := h.accounts.UpdateProfile(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Your profile has been updated!",
		"user":    u,
	})
}

package server

import (
	"net/http"

	"github.com/cargovera/cargovera/internal/money"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// adminHandler carries the back-office operations: user creation, multiplier
// updates, and signed balance adjustments.
type adminHandler struct {
	users userdomain.Service
	log   *zap.Logger
}

func (h *adminHandler) register(r *gin.RouterGroup) {
	r.POST("/admin/users", h.createUser)
	r.PUT("/admin/users/:id/multiplier", h.updateMultiplier)
	r.POST("/admin/users/:id/adjustments", h.adjust)
}

func (h *adminHandler) createUser(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	var body struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Create(c.Request.Context(), body.Name, body.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *adminHandler) updateMultiplier(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var body struct {
		Multiplier string `json:"multiplier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	multiplier, err := money.ParseMultiplier(body.Multiplier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UpdateMultiplier(c.Request.Context(), userID, multiplier); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"multiplier": multiplier.String()})
}

func (h *adminHandler) adjust(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var body struct {
		Amount string `json:"amount" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := money.Parse(body.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.Adjust(c.Request.Context(), userID, amount, body.Note); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

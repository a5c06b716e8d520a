package server

import (
	"net/http"

	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type inventoryHandler struct {
	inventories invdomain.Service
	log         *zap.Logger
}

func (h *inventoryHandler) register(r *gin.RouterGroup) {
	r.POST("/inventories", h.create)
	r.GET("/inventories", h.list)
	r.GET("/inventories/:id", h.get)
	r.DELETE("/inventories/:id", h.softDelete)
	r.GET("/inventories/:id/transactions", h.transactions)
}

func (h *inventoryHandler) create(c *gin.Context) {
	actorID, ok := actingUser(c)
	if !ok {
		return
	}

	var body struct {
		ProductID uuid.UUID `json:"product_id" binding:"required"`
		OwnerID   uuid.UUID `json:"owner_id" binding:"required"`
		HolderID  uuid.UUID `json:"holder_id" binding:"required"`
		Quantity  int64     `json:"quantity" binding:"required"`
		Location  string    `json:"location" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.inventories.Add(c.Request.Context(), invdomain.AddRequest{
		ProductID: body.ProductID,
		OwnerID:   body.OwnerID,
		HolderID:  body.HolderID,
		Quantity:  body.Quantity,
		Location:  body.Location,
		ActorID:   actorID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *inventoryHandler) get(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inventory id"})
		return
	}

	inv, err := h.inventories.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *inventoryHandler) list(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var query struct {
		Side  string `form:"side,default=owner"`
		Page  int    `form:"page,default=1"`
		Limit int    `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := invdomain.ListRequest{
		UserID: userID,
		Page:   pagination.Page{Page: query.Page, Limit: query.Limit},
	}

	var (
		resp invdomain.ListResponse
		err  error
	)
	if query.Side == "holder" {
		resp, err = h.inventories.ListByHolder(c.Request.Context(), req)
	} else {
		resp, err = h.inventories.ListByOwner(c.Request.Context(), req)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *inventoryHandler) softDelete(c *gin.Context) {
	actorID, ok := actingUser(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inventory id"})
		return
	}

	if err := h.inventories.SoftDelete(c.Request.Context(), id, actorID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *inventoryHandler) transactions(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inventory id"})
		return
	}

	var query struct {
		Page  int `form:"page,default=1"`
		Limit int `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.inventories.ListTransactions(c.Request.Context(), id,
		pagination.Page{Page: query.Page, Limit: query.Limit})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

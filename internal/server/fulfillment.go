package server

import (
	"net/http"
	"time"

	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fulfillmentHandler struct {
	fulfillments fulfilldomain.Service
	log          *zap.Logger
}

func (h *fulfillmentHandler) register(r *gin.RouterGroup) {
	r.POST("/fulfillments", h.create)
	r.GET("/fulfillments", h.list)
	r.GET("/fulfillments/:id", h.get)
	r.DELETE("/fulfillments/:id", h.delete)
	r.POST("/fulfillments/:id/fulfill", h.fulfill)
}

func (h *fulfillmentHandler) create(c *gin.Context) {
	ownerID, ok := actingUser(c)
	if !ok {
		return
	}

	var body struct {
		Items []fulfilldomain.ItemInput `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.fulfillments.Create(c.Request.Context(), fulfilldomain.CreateRequest{
		OwnerID: ownerID,
		Items:   body.Items,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *fulfillmentHandler) get(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	request, err := h.fulfillments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *fulfillmentHandler) list(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var query struct {
		Side     string     `form:"side,default=owner"`
		Status   string     `form:"status"`
		DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
		DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
		Page     int        `form:"page,default=1"`
		Limit    int        `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side := fulfilldomain.SideOwner
	if query.Side == "holder" {
		side = fulfilldomain.SideHolder
	}

	resp, err := h.fulfillments.List(c.Request.Context(), fulfilldomain.ListRequest{
		UserID:   userID,
		Side:     side,
		Status:   fulfilldomain.Status(query.Status),
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
		Page:     pagination.Page{Page: query.Page, Limit: query.Limit},
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *fulfillmentHandler) delete(c *gin.Context) {
	callerID, ok := actingUser(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := h.fulfillments.Delete(c.Request.Context(), id, callerID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *fulfillmentHandler) fulfill(c *gin.Context) {
	callerID, ok := actingUser(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := h.fulfillments.Fulfill(c.Request.Context(), id, callerID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": fulfilldomain.StatusFulfilled})
}

package server

import (
	"net/http"
	"time"

	"github.com/cargovera/cargovera/internal/carrier"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type labelHandler struct {
	labels labeldomain.Service
	log    *zap.Logger
}

func (h *labelHandler) register(r *gin.RouterGroup) {
	r.POST("/labels/rates", h.rates)
	r.POST("/labels/validate", h.validate)
	r.POST("/labels", h.buy)
	r.GET("/labels", h.list)
	r.DELETE("/labels/:carrier/:tracking_number", h.cancel)
}

type shipmentBody struct {
	Shipper   carrier.Address   `json:"shipper" binding:"required"`
	Recipient carrier.Address   `json:"recipient" binding:"required"`
	Packages  []carrier.Package `json:"packages" binding:"required"`
	ShipDate  time.Time         `json:"ship_date"`
}

func (b shipmentBody) rateRequest() carrier.RateRequest {
	return carrier.RateRequest{
		Shipper:   b.Shipper,
		Recipient: b.Recipient,
		Packages:  b.Packages,
		ShipDate:  b.ShipDate,
	}
}

func (h *labelHandler) rates(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var body shipmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rates, err := h.labels.GetRates(c.Request.Context(), userID, body.rateRequest())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

func (h *labelHandler) validate(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	var body struct {
		shipmentBody
		Carrier carrier.Code `json:"carrier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.labels.ValidateShipment(c.Request.Context(), body.Carrier, body.rateRequest()); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *labelHandler) buy(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var body struct {
		shipmentBody
		Carrier     carrier.Code      `json:"carrier" binding:"required"`
		ServiceType string            `json:"service_type" binding:"required"`
		OrderNumber string            `json:"order_number"`
		Options     map[string]string `json:"options"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	labels, err := h.labels.BuyLabel(c.Request.Context(), labeldomain.BuyLabelRequest{
		UserID:      userID,
		Carrier:     body.Carrier,
		ServiceType: body.ServiceType,
		OrderNumber: body.OrderNumber,
		Shipper:     body.Shipper,
		Recipient:   body.Recipient,
		Packages:    body.Packages,
		ShipDate:    body.ShipDate,
		Options:     body.Options,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"labels": labels})
}

func (h *labelHandler) cancel(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	label, err := h.labels.CancelLabel(c.Request.Context(), userID,
		carrier.Code(c.Param("carrier")), c.Param("tracking_number"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, label)
}

func (h *labelHandler) list(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var query struct {
		Status   string     `form:"status"`
		Carrier  string     `form:"carrier"`
		DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
		DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
		Page     int        `form:"page,default=1"`
		Limit    int        `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.labels.List(c.Request.Context(), labeldomain.ListLabelsRequest{
		UserID:   userID,
		Status:   labeldomain.Status(query.Status),
		Carrier:  carrier.Code(query.Carrier),
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

package server

import (
	"net/http"

	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type webhookHandler struct {
	payments paydomain.Service
	log      *zap.Logger
}

func (h *webhookHandler) register(r *gin.RouterGroup) {
	r.POST("/webhooks/payment", h.payment)
}

// payment accepts gateway deposit confirmations. Signature verification is
// handled by the fronting layer.
func (h *webhookHandler) payment(c *gin.Context) {
	var event paydomain.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), event); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

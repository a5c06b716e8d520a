package server

import (
	"net/http"
	"time"

	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type walletHandler struct {
	users    userdomain.Service
	ledger   ledgerdomain.Service
	payments paydomain.Service
	log      *zap.Logger
}

func (h *walletHandler) register(r *gin.RouterGroup) {
	r.GET("/wallet", h.balance)
	r.GET("/wallet/transactions", h.transactions)
	r.POST("/wallet/deposits", h.createDeposit)
}

func (h *walletHandler) balance(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance_cents": user.BalanceCents,
		"balance":       user.Balance().String(),
		"multiplier":    user.Multiplier.String(),
	})
}

func (h *walletHandler) transactions(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var query struct {
		Type     string     `form:"type"`
		DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
		DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
		Page     int        `form:"page,default=1"`
		Limit    int        `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.ledger.ListTransactions(c.Request.Context(), ledgerdomain.ListTransactionsRequest{
		UserID:   userID,
		Type:     ledgerdomain.TransactionType(query.Type),
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

func (h *walletHandler) createDeposit(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	var body struct {
		Amount string `json:"amount" binding:"required"`
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

	payment, err := h.payments.CreateDeposit(c.Request.Context(), userID, amount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

package server

import (
	"errors"
	"net/http"

	"github.com/cargovera/cargovera/internal/carrier"
	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	"github.com/cargovera/cargovera/internal/money"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError translates domain errors to HTTP statuses. Persistence and
// unknown failures are logged and surfaced opaque.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var (
		insufficientBalance ledgerdomain.InsufficientBalanceError
		notEnoughQuantity   invdomain.NotEnoughQuantityError
		rateNotAvailable    labeldomain.RateNotAvailableError
		negativeAmount      money.NegativeAmountError
		clientErr           *carrier.ClientError
		serverErr           *carrier.ServerError
	)

	switch {
	case errors.As(err, &insufficientBalance),
		errors.As(err, &notEnoughQuantity),
		errors.As(err, &rateNotAvailable),
		errors.Is(err, invdomain.ErrNotActive),
		errors.Is(err, fulfilldomain.ErrMixedHolders),
		errors.Is(err, fulfilldomain.ErrMixedOwners),
		errors.Is(err, carrier.ErrMultiPackageUnsupported):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.As(err, &negativeAmount),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidType),
		errors.Is(err, invdomain.ErrInvalidQuantity),
		errors.Is(err, invdomain.ErrInvalidLocation),
		errors.Is(err, fulfilldomain.ErrEmptyItems),
		errors.Is(err, userdomain.ErrMultiplierOutOfRange),
		errors.Is(err, userdomain.ErrZeroAdjustment),
		errors.Is(err, paydomain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrUserNotFound),
		errors.Is(err, invdomain.ErrNotFound),
		errors.Is(err, fulfilldomain.ErrNotFound),
		errors.Is(err, labeldomain.ErrNotFound),
		errors.Is(err, paydomain.ErrNotFound),
		errors.Is(err, carrier.ErrUnknownCarrier):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, invdomain.ErrForbidden),
		errors.Is(err, fulfilldomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, labeldomain.ErrAlreadyCancelled),
		errors.Is(err, invdomain.ErrReservedExists),
		errors.Is(err, invdomain.ErrAlreadyDeleted),
		errors.Is(err, fulfilldomain.ErrNotPending),
		errors.Is(err, userdomain.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &clientErr), errors.As(err, &serverErr):
		log.Warn("carrier call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "carrier unavailable"})

	default:
		log.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/money"
	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("label_not_found")
	ErrAlreadyCancelled = errors.New("label_already_cancelled")
)

// RateNotAvailableError reports that the chosen carrier did not quote the
// requested service type.
type RateNotAvailableError struct {
	ServiceType string
}

func (e RateNotAvailableError) Error() string {
	return fmt.Sprintf("rate not available for service type %q", e.ServiceType)
}

// QuotedRate is a carrier rate with the user's multiplier applied.
type QuotedRate struct {
	Carrier          carrier.Code `json:"carrier"`
	ServiceType      string       `json:"service_type"`
	TotalCharge      money.Money  `json:"-"`
	TotalChargeCents int64        `json:"total_charge_cents"`
	Currency         string       `json:"currency"`
	DeliveryEstimate string       `json:"delivery_estimate,omitempty"`
}

type BuyLabelRequest struct {
	UserID      uuid.UUID         `json:"-"`
	Carrier     carrier.Code      `json:"carrier"`
	ServiceType string            `json:"service_type"`
	OrderNumber string            `json:"order_number"`
	Shipper     carrier.Address   `json:"shipper"`
	Recipient   carrier.Address   `json:"recipient"`
	Packages    []carrier.Package `json:"packages"`
	ShipDate    time.Time         `json:"ship_date"`
	Options     map[string]string `json:"options,omitempty"`
}

type ListLabelsRequest struct {
	UserID   uuid.UUID
	Status   Status
	Carrier  carrier.Code
	DateFrom *time.Time
	DateTo   *time.Time
	Page     pagination.Page
}

type ListLabelsResponse struct {
	Labels     []*Label        `json:"labels"`
	Pagination pagination.Info `json:"pagination"`
}

// Service coordinates rate lookup, balance check, carrier purchase, and the
// atomic persist-and-debit step. Carrier calls always happen outside the
// database transaction.
type Service interface {
	GetRates(ctx context.Context, userID uuid.UUID, req carrier.RateRequest) ([]QuotedRate, error)
	BuyLabel(ctx context.Context, req BuyLabelRequest) ([]*Label, error)
	CancelLabel(ctx context.Context, userID uuid.UUID, carrierCode carrier.Code, trackingNumber string) (*Label, error)
	ValidateShipment(ctx context.Context, carrierCode carrier.Code, req carrier.RateRequest) error
	List(ctx context.Context, req ListLabelsRequest) (ListLabelsResponse, error)
}

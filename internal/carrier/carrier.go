// Package carrier abstracts the shipping carrier APIs behind a uniform
// gateway interface.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cargovera/cargovera/internal/money"
)

// Code identifies a carrier.
type Code string

const (
	CodeFedEx Code = "fedex"
	CodeUSPS  Code = "usps"
	CodeUPS   Code = "ups"
	CodeOther Code = "other"
)

// ErrMultiPackageUnsupported is returned by carriers that only quote
// single-package shipments.
var ErrMultiPackageUnsupported = errors.New("carrier does not support multi-package shipments")

type Address struct {
	Name       string `json:"name"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Package dimensions are inches, weight is pounds.
type Package struct {
	WeightLbs float64 `json:"weight_lbs"`
	LengthIn  float64 `json:"length_in"`
	WidthIn   float64 `json:"width_in"`
	HeightIn  float64 `json:"height_in"`
}

type Rate struct {
	ServiceType      string      `json:"service_type"`
	TotalCharge      money.Money `json:"total_charge"`
	Currency         string      `json:"currency"`
	DeliveryEstimate string      `json:"delivery_estimate,omitempty"`
}

type RateRequest struct {
	Shipper   Address   `json:"shipper"`
	Recipient Address   `json:"recipient"`
	Packages  []Package `json:"packages"`
	ShipDate  time.Time `json:"ship_date"`
}

type BuyRequest struct {
	Shipper     Address           `json:"shipper"`
	Recipient   Address           `json:"recipient"`
	ServiceType string            `json:"service_type"`
	Packages    []Package         `json:"packages"`
	ShipDate    time.Time         `json:"ship_date"`
	Options     map[string]string `json:"options,omitempty"`
}

// PurchasedLabel is one label piece returned by a buy call. Document holds
// the decoded label bytes ready for storage.
type PurchasedLabel struct {
	TrackingNumber string
	BaseRate       money.Money
	Document       []byte
	Format         string
}

// Gateway is the uniform carrier surface. Implementations retry server-class
// failures with bounded backoff; client-class failures surface immediately.
type Gateway interface {
	Code() Code
	GetRates(ctx context.Context, req RateRequest) ([]Rate, error)
	BuyLabel(ctx context.Context, req BuyRequest) ([]PurchasedLabel, error)
	CancelLabel(ctx context.Context, trackingNumber string) error
	ValidateShipment(ctx context.Context, req RateRequest) error
}

// ClientError is a 4xx-class carrier failure. Never retried.
type ClientError struct {
	Carrier    Code
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: client error %d: %s", e.Carrier, e.StatusCode, e.Message)
}

// ServerError is a 5xx-class or transport-level carrier failure, eligible for
// retry.
type ServerError struct {
	Carrier    Code
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error %d: %s", e.Carrier, e.StatusCode, e.Message)
}

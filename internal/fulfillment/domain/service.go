package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cargovera/cargovera/pkg/db/pagination"
	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("fulfillment_not_found")
	ErrEmptyItems   = errors.New("fulfillment_items_empty")
	ErrForbidden    = errors.New("fulfillment_forbidden")
	ErrNotPending   = errors.New("fulfillment_not_pending")
	ErrMixedHolders = errors.New("fulfillment_items_span_holders")
	ErrMixedOwners  = errors.New("fulfillment_items_span_owners")
)

type ItemInput struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	Quantity    int64     `json:"quantity"`
	LabelURLs   []string  `json:"label_urls,omitempty"`
	Note        string    `json:"note,omitempty"`
}

type CreateRequest struct {
	OwnerID uuid.UUID   `json:"-"`
	Items   []ItemInput `json:"items"`
}

// Side selects which party's requests a listing returns.
type Side string

const (
	SideOwner  Side = "owner"
	SideHolder Side = "holder"
)

type ListRequest struct {
	UserID   uuid.UUID
	Side     Side
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time
	Page     pagination.Page
}

type ListResponse struct {
	Requests   []*FulfillmentRequest `json:"requests"`
	Pagination pagination.Info       `json:"pagination"`
}

// Service drives the pending → fulfilled state machine. Every multi-item
// mutation is one transaction: reservation, release, and consumption are
// all-or-nothing across the whole item set.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*FulfillmentRequest, error)
	Delete(ctx context.Context, requestID, callerID uuid.UUID) error
	Fulfill(ctx context.Context, requestID, callerID uuid.UUID) error
	Get(ctx context.Context, requestID uuid.UUID) (*FulfillmentRequest, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

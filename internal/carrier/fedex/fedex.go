// Package fedex adapts the FedEx REST API to the carrier gateway interface.
package fedex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/carrier/tokencache"
	"github.com/cargovera/cargovera/internal/config"
	"github.com/cargovera/cargovera/internal/money"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	"go.uber.org/zap"
)

const tokenKey = "fedex"

type Gateway struct {
	cfg        config.CarrierConfig
	client     *http.Client
	tokens     tokencache.Cache
	tokenTTL   time.Duration
	log        *zap.Logger
	obsMetrics *obsmetrics.Metrics
}

func New(cfg config.CarrierConfig, tokens tokencache.Cache, tokenTTL time.Duration, log *zap.Logger, m *obsmetrics.Metrics) *Gateway {
	return &Gateway{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		log:        log.Named("carrier.fedex"),
		obsMetrics: m,
	}
}

func (g *Gateway) Code() carrier.Code { return carrier.CodeFedEx }

func (g *Gateway) GetRates(ctx context.Context, req carrier.RateRequest) ([]carrier.Rate, error) {
	body, err := json.Marshal(rateRequest{
		RequestedShipment: requestedShipment{
			Shipper:                   toParty(req.Shipper),
			Recipient:                 toParty(req.Recipient),
			ShipDatestamp:             req.ShipDate.Format("2006-01-02"),
			PickupType:                "DROPOFF_AT_FEDEX_LOCATION",
			RateRequestType:           []string{"ACCOUNT", "LIST"},
			RequestedPackageLineItems: toLineItems(req.Packages),
		},
	})
	if err != nil {
		return nil, err
	}

	payload, err := g.call(ctx, "rates", http.MethodPost, "/rate/v1/rates/quotes", body)
	if err != nil {
		return nil, err
	}

	var out rateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("fedex: decode rate response: %w", err)
	}

	rates := make([]carrier.Rate, 0, len(out.Output.RateReplyDetails))
	for _, detail := range out.Output.RateReplyDetails {
		if len(detail.RatedShipmentDetails) == 0 {
			continue
		}
		rates = append(rates, carrier.Rate{
			ServiceType:      detail.ServiceType,
			TotalCharge:      money.FromFloat(detail.RatedShipmentDetails[0].TotalNetCharge),
			Currency:         detail.RatedShipmentDetails[0].Currency,
			DeliveryEstimate: detail.Commit.DateDetail.DayFormat,
		})
	}
	return rates, nil
}

func (g *Gateway) BuyLabel(ctx context.Context, req carrier.BuyRequest) ([]carrier.PurchasedLabel, error) {
	body, err := json.Marshal(shipRequest{
		LabelResponseOptions: "LABEL",
		RequestedShipment: requestedShipment{
			Shipper:       toParty(req.Shipper),
			Recipient:     toParty(req.Recipient),
			ShipDatestamp: req.ShipDate.Format("2006-01-02"),
			ServiceType:   req.ServiceType,
			PickupType:    "DROPOFF_AT_FEDEX_LOCATION",
			LabelSpecification: &labelSpecification{
				ImageType:      "PDF",
				LabelStockType: "PAPER_4X6",
			},
			RequestedPackageLineItems: toLineItems(req.Packages),
		},
	})
	if err != nil {
		return nil, err
	}

	payload, err := g.call(ctx, "buy", http.MethodPost, "/ship/v1/shipments", body)
	if err != nil {
		return nil, err
	}

	var out shipResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("fedex: decode ship response: %w", err)
	}
	if len(out.Output.TransactionShipments) == 0 {
		return nil, &carrier.ServerError{Carrier: carrier.CodeFedEx, Message: "empty shipment response"}
	}

	var labels []carrier.PurchasedLabel
	for _, piece := range out.Output.TransactionShipments[0].PieceResponses {
		label := carrier.PurchasedLabel{
			TrackingNumber: piece.TrackingNumber,
			BaseRate:       money.FromFloat(piece.BaseRateAmount),
			Format:         "pdf",
		}
		if len(piece.PackageDocuments) > 0 {
			doc, err := base64.StdEncoding.DecodeString(piece.PackageDocuments[0].EncodedLabel)
			if err != nil {
				return nil, fmt.Errorf("fedex: decode label document: %w", err)
			}
			label.Document = doc
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func (g *Gateway) CancelLabel(ctx context.Context, trackingNumber string) error {
	body, err := json.Marshal(map[string]string{"trackingNumber": trackingNumber})
	if err != nil {
		return err
	}

	payload, err := g.call(ctx, "cancel", http.MethodPut, "/ship/v1/shipments/cancel", body)
	if err != nil {
		return err
	}

	var out cancelResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return fmt.Errorf("fedex: decode cancel response: %w", err)
	}
	if !out.Output.CancelledShipment {
		return &carrier.ClientError{Carrier: carrier.CodeFedEx, Message: "shipment not cancelled"}
	}
	return nil
}

func (g *Gateway) ValidateShipment(ctx context.Context, req carrier.RateRequest) error {
	body, err := json.Marshal(rateRequest{
		RequestedShipment: requestedShipment{
			Shipper:                   toParty(req.Shipper),
			Recipient:                 toParty(req.Recipient),
			ShipDatestamp:             req.ShipDate.Format("2006-01-02"),
			PickupType:                "DROPOFF_AT_FEDEX_LOCATION",
			RequestedPackageLineItems: toLineItems(req.Packages),
		},
	})
	if err != nil {
		return err
	}
	_, err = g.call(ctx, "validate", http.MethodPost, "/ship/v1/shipments/packages/validate", body)
	return err
}

func (g *Gateway) call(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	token, err := g.token(ctx)
	if err != nil {
		g.obsMetrics.RecordCarrierCall(string(carrier.CodeFedEx), op, "auth_error")
		return nil, err
	}

	payload, err := carrier.Send(ctx, g.client, carrier.CodeFedEx, method, g.cfg.BaseURL+path, map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}, body)
	if err != nil {
		g.obsMetrics.RecordCarrierCall(string(carrier.CodeFedEx), op, "error")
		g.log.Warn("fedex call failed", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	g.obsMetrics.RecordCarrierCall(string(carrier.CodeFedEx), op, "ok")
	return payload, nil
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	token, ok, err := g.tokens.Get(ctx, tokenKey)
	if err != nil {
		g.log.Warn("token cache read failed", zap.Error(err))
	}
	if ok {
		return token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
	}
	payload, err := carrier.Send(ctx, g.client, carrier.CodeFedEx, http.MethodPost, g.cfg.BaseURL+"/oauth/token", map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, []byte(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("fedex: fetch token: %w", err)
	}

	var out tokenResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("fedex: decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", &carrier.ServerError{Carrier: carrier.CodeFedEx, Message: "empty access token"}
	}

	ttl := g.tokenTTL
	if expires := time.Duration(out.ExpiresIn)*time.Second - time.Minute; expires > 0 && expires < ttl {
		ttl = expires
	}
	if err := g.tokens.Set(ctx, tokenKey, out.AccessToken, ttl); err != nil {
		g.log.Warn("token cache write failed", zap.Error(err))
	}
	return out.AccessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type party struct {
	Contact contact `json:"contact"`
	Address address `json:"address"`
}

type contact struct {
	PersonName  string `json:"personName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type address struct {
	StreetLines         []string `json:"streetLines"`
	City                string   `json:"city"`
	StateOrProvinceCode string   `json:"stateOrProvinceCode"`
	PostalCode          string   `json:"postalCode"`
	CountryCode         string   `json:"countryCode"`
}

type lineItem struct {
	Weight     weight      `json:"weight"`
	Dimensions *dimensions `json:"dimensions,omitempty"`
}

type weight struct {
	Units string  `json:"units"`
	Value float64 `json:"value"`
}

type dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"`
}

type labelSpecification struct {
	ImageType      string `json:"imageType"`
	LabelStockType string `json:"labelStockType"`
}

type requestedShipment struct {
	Shipper                   party               `json:"shipper"`
	Recipient                 party               `json:"recipients,omitempty"`
	ShipDatestamp             string              `json:"shipDatestamp"`
	ServiceType               string              `json:"serviceType,omitempty"`
	PickupType                string              `json:"pickupType"`
	RateRequestType           []string            `json:"rateRequestType,omitempty"`
	LabelSpecification        *labelSpecification `json:"labelSpecification,omitempty"`
	RequestedPackageLineItems []lineItem          `json:"requestedPackageLineItems"`
}

type rateRequest struct {
	RequestedShipment requestedShipment `json:"requestedShipment"`
}

type shipRequest struct {
	LabelResponseOptions string            `json:"labelResponseOptions"`
	RequestedShipment    requestedShipment `json:"requestedShipment"`
}

type rateResponse struct {
	Output struct {
		RateReplyDetails []struct {
			ServiceType          string `json:"serviceType"`
			RatedShipmentDetails []struct {
				TotalNetCharge float64 `json:"totalNetCharge"`
				Currency       string  `json:"currency"`
			} `json:"ratedShipmentDetails"`
			Commit struct {
				DateDetail struct {
					DayFormat string `json:"dayFormat"`
				} `json:"dateDetail"`
			} `json:"commit"`
		} `json:"rateReplyDetails"`
	} `json:"output"`
}

type shipResponse struct {
	Output struct {
		TransactionShipments []struct {
			PieceResponses []struct {
				TrackingNumber   string  `json:"trackingNumber"`
				BaseRateAmount   float64 `json:"baseRateAmount"`
				PackageDocuments []struct {
					EncodedLabel string `json:"encodedLabel"`
					ContentType  string `json:"contentType"`
				} `json:"packageDocuments"`
			} `json:"pieceResponses"`
		} `json:"transactionShipments"`
	} `json:"output"`
}

type cancelResponse struct {
	Output struct {
		CancelledShipment bool `json:"cancelledShipment"`
	} `json:"output"`
}

func toParty(a carrier.Address) party {
	streets := []string{a.Street1}
	if a.Street2 != "" {
		streets = append(streets, a.Street2)
	}
	return party{
		Contact: contact{PersonName: a.Name, PhoneNumber: a.Phone},
		Address: address{
			StreetLines:         streets,
			City:                a.City,
			StateOrProvinceCode: a.State,
			PostalCode:          a.PostalCode,
			CountryCode:         strings.ToUpper(a.Country),
		},
	}
}

func toLineItems(packages []carrier.Package) []lineItem {
	items := make([]lineItem, 0, len(packages))
	for _, p := range packages {
		item := lineItem{Weight: weight{Units: "LB", Value: p.WeightLbs}}
		if p.LengthIn > 0 {
			item.Dimensions = &dimensions{
				Length: p.LengthIn,
				Width:  p.WidthIn,
				Height: p.HeightIn,
				Units:  "IN",
			}
		}
		items = append(items, item)
	}
	return items
}

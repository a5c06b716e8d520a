// Package usps adapts the USPS Ship API to the carrier gateway interface.
// USPS quotes and labels single-package shipments only.
package usps

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/carrier/tokencache"
	"github.com/cargovera/cargovera/internal/config"
	"github.com/cargovera/cargovera/internal/money"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	"go.uber.org/zap"
)

const tokenKey = "usps"

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
		log:        log.Named("carrier.usps"),
		obsMetrics: m,
	}
}

func (g *Gateway) Code() carrier.Code { return carrier.CodeUSPS }

func (g *Gateway) GetRates(ctx context.Context, req carrier.RateRequest) ([]carrier.Rate, error) {
	if len(req.Packages) != 1 {
		return nil, carrier.ErrMultiPackageUnsupported
	}
	pkg := req.Packages[0]

	body, err := json.Marshal(rateSearchRequest{
		OriginZIPCode:      req.Shipper.PostalCode,
		DestinationZIPCode: req.Recipient.PostalCode,
		Weight:             pkg.WeightLbs,
		Length:             pkg.LengthIn,
		Width:              pkg.WidthIn,
		Height:             pkg.HeightIn,
		MailingDate:        req.ShipDate.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	payload, err := g.call(ctx, "rates", http.MethodPost, "/prices/v3/base-rates/search", body)
	if err != nil {
		return nil, err
	}

	var out rateSearchResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("usps: decode rate response: %w", err)
	}

	rates := make([]carrier.Rate, 0, len(out.Rates))
	for _, r := range out.Rates {
		rates = append(rates, carrier.Rate{
			ServiceType: r.MailClass,
			TotalCharge: money.FromFloat(r.Price),
			Currency:    "USD",
		})
	}
	return rates, nil
}

func (g *Gateway) BuyLabel(ctx context.Context, req carrier.BuyRequest) ([]carrier.PurchasedLabel, error) {
	if len(req.Packages) != 1 {
		return nil, carrier.ErrMultiPackageUnsupported
	}
	pkg := req.Packages[0]

	body, err := json.Marshal(labelRequest{
		ToAddress:   toAddress(req.Recipient),
		FromAddress: toAddress(req.Shipper),
		PackageDescription: packageDescription{
			MailClass:   req.ServiceType,
			Weight:      pkg.WeightLbs,
			Length:      pkg.LengthIn,
			Width:       pkg.WidthIn,
			Height:      pkg.HeightIn,
			MailingDate: req.ShipDate.Format("2006-01-02"),
		},
	})
	if err != nil {
		return nil, err
	}

	payload, err := g.call(ctx, "buy", http.MethodPost, "/labels/v3/label", body)
	if err != nil {
		return nil, err
	}

	var out labelResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("usps: decode label response: %w", err)
	}
	if out.TrackingNumber == "" {
		return nil, &carrier.ServerError{Carrier: carrier.CodeUSPS, Message: "empty tracking number"}
	}

	label := carrier.PurchasedLabel{
		TrackingNumber: out.TrackingNumber,
		BaseRate:       money.FromFloat(out.Postage),
		Format:         "pdf",
	}
	if out.LabelImage != "" {
		doc, err := base64.StdEncoding.DecodeString(out.LabelImage)
		if err != nil {
			return nil, fmt.Errorf("usps: decode label document: %w", err)
		}
		label.Document = doc
	}
	return []carrier.PurchasedLabel{label}, nil
}

func (g *Gateway) CancelLabel(ctx context.Context, trackingNumber string) error {
	_, err := g.call(ctx, "cancel", http.MethodDelete, "/labels/v3/label/"+trackingNumber, nil)
	return err
}

func (g *Gateway) ValidateShipment(ctx context.Context, req carrier.RateRequest) error {
	if len(req.Packages) != 1 {
		return carrier.ErrMultiPackageUnsupported
	}
	_, err := g.GetRates(ctx, req)
	return err
}

func (g *Gateway) call(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	token, err := g.token(ctx)
	if err != nil {
		g.obsMetrics.RecordCarrierCall(string(carrier.CodeUSPS), op, "auth_error")
		return nil, err
	}

	payload, err := carrier.Send(ctx, g.client, carrier.CodeUSPS, method, g.cfg.BaseURL+path, map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}, body)
	if err != nil {
		g.obsMetrics.RecordCarrierCall(string(carrier.CodeUSPS), op, "error")
		g.log.Warn("usps call failed", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	g.obsMetrics.RecordCarrierCall(string(carrier.CodeUSPS), op, "ok")
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

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     g.cfg.ClientID,
		"client_secret": g.cfg.ClientSecret,
	})
	if err != nil {
		return "", err
	}
	payload, err := carrier.Send(ctx, g.client, carrier.CodeUSPS, http.MethodPost, g.cfg.BaseURL+"/oauth2/v3/token", map[string]string{
		"Content-Type": "application/json",
	}, body)
	if err != nil {
		return "", fmt.Errorf("usps: fetch token: %w", err)
	}

	var out tokenResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("usps: decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", &carrier.ServerError{Carrier: carrier.CodeUSPS, Message: "empty access token"}
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

type rateSearchRequest struct {
	OriginZIPCode      string  `json:"originZIPCode"`
	DestinationZIPCode string  `json:"destinationZIPCode"`
	Weight             float64 `json:"weight"`
	Length             float64 `json:"length"`
	Width              float64 `json:"width"`
	Height             float64 `json:"height"`
	MailingDate        string  `json:"mailingDate"`
}

type rateSearchResponse struct {
	Rates []struct {
		MailClass string  `json:"mailClass"`
		Price     float64 `json:"price"`
	} `json:"rates"`
}

type uspsAddress struct {
	FirstName        string `json:"firstName"`
	StreetAddress    string `json:"streetAddress"`
	SecondaryAddress string `json:"secondaryAddress,omitempty"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZIPCode          string `json:"ZIPCode"`
}

type packageDescription struct {
	MailClass   string  `json:"mailClass"`
	Weight      float64 `json:"weight"`
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	MailingDate string  `json:"mailingDate"`
}

type labelRequest struct {
	ToAddress          uspsAddress        `json:"toAddress"`
	FromAddress        uspsAddress        `json:"fromAddress"`
	PackageDescription packageDescription `json:"packageDescription"`
}

type labelResponse struct {
	TrackingNumber string  `json:"trackingNumber"`
	Postage        float64 `json:"postage"`
	LabelImage     string  `json:"labelImage"`
}

func toAddress(a carrier.Address) uspsAddress {
	return uspsAddress{
		FirstName:        a.Name,
		StreetAddress:    a.Street1,
		SecondaryAddress: a.Street2,
		City:             a.City,
		State:            a.State,
		ZIPCode:          a.PostalCode,
	}
}

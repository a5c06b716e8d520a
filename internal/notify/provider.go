// Package notify delivers best-effort user notifications. Delivery failure is
// logged, never propagated to the triggering operation.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/cargovera/cargovera/internal/config"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var fulfillmentTmpl = template.Must(template.ParseFS(templateFS, "templates/fulfillment_created.html"))

// FulfillmentCreated is the payload for the holder-facing email sent when an
// owner opens a fulfillment request.
type FulfillmentCreated struct {
	HolderName  string
	HolderEmail string
	OwnerName   string
	RequestID   string
	ItemCount   int
}

type Provider interface {
	SendFulfillmentCreated(ctx context.Context, data FulfillmentCreated) error
}

// SMTP sends mail through a plain SMTP relay.
type SMTP struct {
	cfg config.EmailConfig
	log *zap.Logger
}

func NewSMTP(cfg config.EmailConfig, log *zap.Logger) *SMTP {
	return &SMTP{cfg: cfg, log: log.Named("notify.smtp")}
}

func (s *SMTP) SendFulfillmentCreated(_ context.Context, data FulfillmentCreated) error {
	var body bytes.Buffer
	if err := fulfillmentTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render fulfillment email: %w", err)
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.cfg.SMTPFrom + "\r\n")
	msg.WriteString("To: " + data.HolderEmail + "\r\n")
	msg.WriteString("Subject: New fulfillment request\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.SMTPFrom, []string{data.HolderEmail}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send fulfillment email: %w", err)
	}
	return nil
}

// NoOp drops notifications. Used when email is disabled.
type NoOp struct{}

func (NoOp) SendFulfillmentCreated(context.Context, FulfillmentCreated) error { return nil }

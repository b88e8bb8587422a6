package mailgun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"reprise/config"
	"reprise/providers"
)

// Sender stellt Reprisal-Texte per Mailgun zu, zeitversetzt zum Zielzeitpunkt.
type Sender struct {
	Logger    *zap.Logger
	Recipient string
	From      string
	mg        mailgun.Mailgun
}

// NewSender erstellt einen neuen Mailgun-Sender.
func NewSender(cfg *config.Config, logger *zap.Logger) *Sender {
	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(cfg.MailgunAPIBase)
	}
	return &Sender{
		Logger:    logger.With(zap.String("provider", "mailgun")),
		Recipient: cfg.MailgunRecipient,
		From:      fmt.Sprintf("Reprise <postmaster@%s>", cfg.MailgunDomain),
		mg:        mg,
	}
}

// Name gibt den Namen des Zustellers zurück.
func (s *Sender) Name() string {
	return "mailgun"
}

// Subject bildet die Betreffzeile für einen Zustellzeitpunkt.
func Subject(deliverAt time.Time) string {
	return "Reprise " + deliverAt.Format("2006-01-02 15:04")
}

// Send übergibt den Text an Mailgun. Mailgun hält die Nachricht bis deliverAt zurück.
func (s *Sender) Send(ctx context.Context, text string, deliverAt time.Time) error {
	msg := s.mg.NewMessage(s.From, Subject(deliverAt), text, s.Recipient)
	msg.SetDeliveryTime(deliverAt)

	log := s.Logger.With(zap.Time("deliver_at", deliverAt))
	resp, id, err := s.mg.Send(ctx, msg)
	if err != nil {
		log.Warn("Mailgun-Zustellung fehlgeschlagen.", zap.Error(err))
		return classify(ctx, err)
	}
	log.Info("Nachricht an Mailgun übergeben.", zap.String("id", id), zap.String("response", resp))
	return nil
}

// classify: 429, 5xx und Netzfehler sind vorübergehend, andere Status endgültig.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	status := mailgun.GetStatusFromErr(err)
	if status == -1 || providers.RetryableStatus(status) {
		te := &providers.TransientError{Err: err}
		if status > 0 {
			te.StatusCode = status
		}
		return te
	}
	return fmt.Errorf("mailgun status %d: %w", status, err)
}

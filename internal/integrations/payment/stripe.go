package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

const metadataAppointmentID = "appointment_id"

// StripeConfig настройки Stripe Checkout
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	Currency         string
	SuccessURL       string
	CancelURL        string
}

// Stripe платежный провайдер: создает Checkout Session на запись и разбирает webhooks
type Stripe struct {
	sessions *checkoutsession.Client
	cfg      StripeConfig
	log      Logger
}

// NewStripe создает клиента Stripe
func NewStripe(cfg StripeConfig, log Logger) *Stripe {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = webhook.DefaultTolerance
	}
	return &Stripe{
		sessions: &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey},
		cfg:      cfg,
		log:      log,
	}
}

// InitializePayment создает Checkout Session на стоимость записи и возвращает её ID.
// ID записи передается в metadata и возвращается в webhook.
func (s *Stripe) InitializePayment(ctx context.Context, appt *domain.Appointment) (string, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", ErrNotConfigured
	}

	appointmentID := strconv.FormatInt(appt.ID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(appointmentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.Currency),
					UnitAmount: stripe.Int64(toMinorUnits(appt.Price)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%s, %s %s", appt.ServiceName, appt.Date.Format(domain.DateFormat), appt.StartTime)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metadataAppointmentID: appointmentID},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataAppointmentID, appointmentID)
	// повторная попытка для той же записи не создает вторую сессию
	params.SetIdempotencyKey("appointment-checkout-" + appointmentID)

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: appointment id=%d: %v", ErrInitialize, appt.ID, err)
	}

	s.log.Info("Stripe: checkout session %s created for appointment id=%d", sess.ID, appt.ID)
	return sess.ID, nil
}

// ParseWebhook проверяет подпись и переводит событие Stripe в результат оплаты.
// Для событий, не относящихся к оплате записи, возвращает nil, nil.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error) {
	if strings.TrimSpace(s.cfg.WebhookSecret) == "" {
		return nil, ErrNotConfigured
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                s.cfg.WebhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome domain.PaymentOutcome
	switch evt.Type {
	case "checkout.session.completed":
		outcome = domain.PaymentConfirmed
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		outcome = domain.PaymentFailed
	default:
		return nil, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: checkout session: %v", ErrInvalidPayload, err)
	}

	// completed с отложенным способом оплаты подтверждается отдельным событием
	if outcome == domain.PaymentConfirmed && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.log.Info("Stripe: session %s completed but unpaid, waiting for async payment", session.ID)
		return nil, nil
	}

	raw := strings.TrimSpace(session.Metadata[metadataAppointmentID])
	if raw == "" {
		raw = strings.TrimSpace(session.ClientReferenceID)
	}
	appointmentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || appointmentID <= 0 {
		return nil, fmt.Errorf("%w: session %s has no appointment id", ErrInvalidPayload, session.ID)
	}

	return &domain.PaymentEvent{
		ProviderEventID: evt.ID,
		AppointmentID:   appointmentID,
		Outcome:         outcome,
	}, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

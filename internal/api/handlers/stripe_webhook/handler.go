package stripe_webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/payment"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
)

// SignatureHeader заголовок подписи Stripe
const SignatureHeader = "Stripe-Signature"

const (
	maxPayloadBytes = 1 << 20

	msgInvalidPayload   = "некорректное тело webhook"
	msgInvalidSignature = "неверная подпись webhook"
	msgNotConfigured    = "платежи не настроены"
)

type Handler struct {
	parser   WebhookParser
	payments PaymentEventHandler
	logger   Logger
}

func NewHandler(parser WebhookParser, payments PaymentEventHandler, logger Logger) *Handler {
	return &Handler{
		parser:   parser,
		payments: payments,
		logger:   logger,
	}
}

// Handle POST /api/v1/payments/stripe/webhook
// Ответ 2xx подтверждает доставку, иначе Stripe повторит событие.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Warn("POST /payments/stripe/webhook - Failed to read body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPayload)
		return
	}

	event, err := h.parser.ParseWebhook(payload, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			h.logger.Warn("POST /payments/stripe/webhook - Invalid signature: %v", err)
			handlers.RespondBadRequest(w, msgInvalidSignature)

		case errors.Is(err, payment.ErrInvalidPayload):
			h.logger.Warn("POST /payments/stripe/webhook - Invalid payload: %v", err)
			handlers.RespondBadRequest(w, msgInvalidPayload)

		case errors.Is(err, payment.ErrNotConfigured):
			h.logger.Warn("POST /payments/stripe/webhook - Payments not configured")
			handlers.RespondError(w, http.StatusServiceUnavailable, msgNotConfigured)

		default:
			h.logger.Error("POST /payments/stripe/webhook - Failed to parse event: %v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if event == nil {
		handlers.RespondJSON(w, http.StatusOK, nil)
		return
	}

	if err := h.payments.HandlePaymentEvent(r.Context(), event); err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound), errors.Is(err, appointments.ErrInvalidInput):
			// повтор не поможет, подтверждаем доставку
			h.logger.Warn("POST /payments/stripe/webhook - Event %s dropped: appointment id=%d: %v",
				event.ProviderEventID, event.AppointmentID, err)
			handlers.RespondJSON(w, http.StatusOK, nil)

		default:
			h.logger.Error("POST /payments/stripe/webhook - Failed to apply event %s: appointment id=%d, error=%v",
				event.ProviderEventID, event.AppointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/stripe/webhook - Event %s applied: appointment id=%d, outcome=%s",
		event.ProviderEventID, event.AppointmentID, event.Outcome)
	handlers.RespondJSON(w, http.StatusOK, nil)
}

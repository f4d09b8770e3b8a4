package stripe_webhook

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// WebhookParser проверяет подпись и разбирает событие провайдера
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error)
}

// PaymentEventHandler применяет результат оплаты к записи
type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, event *domain.PaymentEvent) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

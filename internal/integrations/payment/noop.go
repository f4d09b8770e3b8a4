package payment

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Noop провайдер для окружений без платежей.
// Записи остаются в pending, пока бизнес не подтвердит их вручную.
type Noop struct {
	log Logger
}

// NewNoop создает провайдер без платежей
func NewNoop(log Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) InitializePayment(_ context.Context, appt *domain.Appointment) (string, error) {
	n.log.Warn("Payments disabled: appointment id=%d stays pending until confirmed by business", appt.ID)
	return "", nil
}

func (n *Noop) ParseWebhook([]byte, string) (*domain.PaymentEvent, error) {
	return nil, ErrNotConfigured
}

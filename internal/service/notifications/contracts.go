package notifications

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Notifier интерфейс канала доставки уведомлений
type Notifier interface {
	Notify(ctx context.Context, recipient domain.Recipient, event domain.AppointmentEvent) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

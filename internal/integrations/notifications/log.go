package notifications

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// LogNotifier пишет уведомления в лог, когда брокер не настроен
type LogNotifier struct {
	log Logger
}

// NewLogNotifier создает уведомитель, пишущий в лог
func NewLogNotifier(log Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, recipient domain.Recipient, event domain.AppointmentEvent) error {
	n.log.Info("Notify %s id=%d: %s appointment=%d status=%s", recipient.Role, recipient.ID, event.Type, event.AppointmentID, event.Status)
	return nil
}

func (n *LogNotifier) Close() error { return nil }

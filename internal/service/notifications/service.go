package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Dispatcher рассылает события бизнесу и клиенту в фоне.
// Ошибки доставки только логируются и не влияют на вызывающую операцию.
type Dispatcher struct {
	notifier Notifier
	logger   Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher создает новый экземпляр рассыльщика уведомлений
func NewDispatcher(notifier Notifier, timeout time.Duration, logger Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
	}
}

// Dispatch отправляет событие обоим участникам записи, не дожидаясь доставки
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.AppointmentEvent) {
	if d == nil || d.notifier == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	// запрос может завершиться раньше доставки
	bg := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(bg, d.timeout)
		defer cancel()

		for _, recipient := range recipients(event) {
			if err := d.notifier.Notify(ctx, recipient, event); err != nil {
				d.logger.Warn("Dispatch: failed to notify %s id=%d about %s (appointment=%d): %v",
					recipient.Role, recipient.ID, event.Type, event.AppointmentID, err)
			}
		}
	}()
}

// Wait ждет завершения отправленных уведомлений
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func recipients(event domain.AppointmentEvent) []domain.Recipient {
	return []domain.Recipient{
		{Role: domain.ActorBusiness, ID: event.BusinessID},
		{Role: domain.ActorCustomer, ID: event.CustomerID},
	}
}

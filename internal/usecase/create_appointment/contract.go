package create_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	GetActiveByResourceAndDate(ctx context.Context, businessID, serviceID int64, date time.Time) ([]*domain.Appointment, error)
	SetPaymentReference(ctx context.Context, id int64, reference string) error
}

// CatalogClient интерфейс клиента каталога услуг
type CatalogClient interface {
	GetService(ctx context.Context, serviceID int64) (*domain.Service, error)
}

// Locker интерфейс блокировки по ключу ресурс+дата
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentProvider интерфейс платежного провайдера
type PaymentProvider interface {
	InitializePayment(ctx context.Context, appt *domain.Appointment) (string, error)
}

// Dispatcher интерфейс рассылки уведомлений
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.AppointmentEvent)
}

// Metrics интерфейс метрик бронирования
type Metrics interface {
	IncAppointmentCreated(status, origin string)
	IncBookingConflict()
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

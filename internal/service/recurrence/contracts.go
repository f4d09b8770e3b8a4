package recurrence

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	apptModels "github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
	"github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
)

// SeriesRepository интерфейс репозитория серий
type SeriesRepository interface {
	Create(ctx context.Context, series *domain.RecurringAppointment) (*domain.RecurringAppointment, error)
	GetByID(ctx context.Context, id int64) (*domain.RecurringAppointment, error)
	GetWithFilter(ctx context.Context, filter domain.RecurringFilter) ([]*domain.RecurringAppointment, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.RecurrenceStatus) error
	AppendAppointment(ctx context.Context, id, appointmentID int64, date time.Time) error
	AdvanceCursor(ctx context.Context, id int64, date time.Time) error
}

// AppointmentRepository интерфейс чтения записей серии
type AppointmentRepository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Appointment, error)
	GetWithFilter(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error)
}

// CatalogClient интерфейс клиента каталога услуг
type CatalogClient interface {
	GetService(ctx context.Context, serviceID int64) (*domain.Service, error)
}

// Reserver интерфейс резервирования слота (create_appointment.UseCase)
type Reserver interface {
	Reserve(ctx context.Context, req *create_appointment.ReserveRequest) (*domain.Appointment, error)
}

// StatusUpdater интерфейс изменения статуса записи (appointments.Service)
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id int64, req *apptModels.UpdateStatusRequest) (*apptModels.AppointmentResponse, error)
}

// Locker интерфейс блокировки серии на время материализации
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Dispatcher интерфейс рассылки уведомлений
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.AppointmentEvent)
}

// Metrics интерфейс метрик материализации
type Metrics interface {
	IncOccurrence(result string)
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

package create_appointment

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Источник создания записи (метка метрики)
const (
	OriginBooking   = "booking"
	OriginRecurring = "recurring"
)

// Request модель запроса на создание записи
type Request struct {
	CustomerID int64            // ID клиента
	BusinessID int64            // ID бизнеса
	ServiceID  int64            // ID услуги
	Date       time.Time        // Дата записи (без времени)
	StartTime  types.TimeString // Время начала слота (например, "10:00")
	Notes      *string          // Дополнительные заметки (опционально)
}

// ReserveRequest запрос на резервирование слота для уже полученной услуги.
// Используется и прямой записью, и генерацией серий.
type ReserveRequest struct {
	Service     *domain.Service
	CustomerID  int64
	Date        time.Time
	StartTime   types.TimeString
	Notes       *string
	RecurringID *int64
}

// Response модель ответа с созданной записью
type Response struct {
	ID          int64            // ID записи
	ServiceID   int64            // ID услуги
	BusinessID  int64            // ID бизнеса
	CustomerID  int64            // ID клиента
	Date        time.Time        // Дата записи
	StartTime   types.TimeString // Время начала
	EndTime     types.TimeString // Время окончания
	Status      string           // Статус записи
	Notes       *string          // Заметки
	RecurringID *int64           // Серия, если запись создана из неё

	// Денормализованные данные
	ServiceName string  // Название услуги
	Price       float64 // Цена услуги

	CreatedAt time.Time // Время создания
	UpdatedAt time.Time // Время обновления
}

func newResponse(a *domain.Appointment) *Response {
	return &Response{
		ID:          a.ID,
		ServiceID:   a.ServiceID,
		BusinessID:  a.BusinessID,
		CustomerID:  a.CustomerID,
		Date:        a.Date,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Status:      string(a.Status),
		Notes:       a.Notes,
		RecurringID: a.RecurringID,
		ServiceName: a.ServiceName,
		Price:       a.Price,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

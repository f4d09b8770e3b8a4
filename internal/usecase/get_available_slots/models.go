package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	ServiceID int64     // ID услуги
	Date      time.Time // Дата для получения слотов (без времени)
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date            time.Time // Дата, на которую запрашивались слоты
	ServiceID       int64     // ID услуги
	BusinessID      int64     // ID бизнеса-владельца услуги
	DurationMinutes int       // Длительность слота в минутах
	NotAvailableDay bool      // Услуга не оказывается в этот день недели
	Slots           []Slot    // Свободные слоты в хронологическом порядке
}

// Slot модель временного слота
type Slot struct {
	StartTime types.TimeString // Время начала слота (например, "10:00")
	EndTime   types.TimeString // Время окончания слота
}

package get_recurring_appointment

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

type RecurrenceService interface {
	GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.SeriesResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

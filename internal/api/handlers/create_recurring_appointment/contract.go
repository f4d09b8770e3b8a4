package create_recurring_appointment

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

type RecurrenceService interface {
	CreateSeries(ctx context.Context, req *models.CreateSeriesRequest) (*models.SeriesResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

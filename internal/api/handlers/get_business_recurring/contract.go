package get_business_recurring

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

type RecurrenceService interface {
	List(ctx context.Context, req *models.ListSeriesRequest) (*models.SeriesListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

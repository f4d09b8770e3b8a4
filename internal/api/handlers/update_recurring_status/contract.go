package update_recurring_status

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

type RecurrenceService interface {
	ApplyBulkStatus(ctx context.Context, id int64, req *models.UpdateSeriesStatusRequest) (*models.SeriesResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

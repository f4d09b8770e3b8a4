package get_business_appointments

import (
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
)

// parseFilter собирает запрос сервиса из query: serviceId, recurringId, startDate, endDate, status
func parseFilter(r *http.Request, actor domain.Actor, businessID int64) (*models.ListAppointmentsRequest, error) {
	serviceID, err := handlers.QueryInt64(r, "serviceId")
	if err != nil {
		return nil, err
	}

	recurringID, err := handlers.QueryInt64(r, "recurringId")
	if err != nil {
		return nil, err
	}

	startDate, err := handlers.QueryDate(r, "startDate")
	if err != nil {
		return nil, err
	}

	endDate, err := handlers.QueryDate(r, "endDate")
	if err != nil {
		return nil, err
	}

	return &models.ListAppointmentsRequest{
		Actor:       actor,
		OwnerID:     businessID,
		ServiceID:   serviceID,
		RecurringID: recurringID,
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      handlers.QueryString(r, "status"),
	}, nil
}

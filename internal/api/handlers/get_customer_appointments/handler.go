package get_customer_appointments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
)

const (
	msgUnauthorized      = "требуется авторизация"
	msgInvalidCustomerID = "некорректный ID клиента"
	msgInvalidFilter     = "некорректные параметры фильтра"
	msgInvalidStatus     = "неизвестный статус"
	msgAccessDenied      = "нет доступа к записям клиента"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/customers/{customerId}/appointments
// Query params: startDate, endDate (YYYY-MM-DD), status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /customers/{id}/appointments - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	customerID, err := strconv.ParseInt(mux.Vars(r)["customerId"], 10, 64)
	if err != nil || customerID <= 0 {
		h.logger.Warn("GET /customers/{id}/appointments - Invalid customer ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidCustomerID)
		return
	}

	startDate, err := handlers.QueryDate(r, "startDate")
	if err != nil {
		h.logger.Warn("GET /customers/{id}/appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	endDate, err := handlers.QueryDate(r, "endDate")
	if err != nil {
		h.logger.Warn("GET /customers/{id}/appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	result, err := h.service.ListByCustomer(r.Context(), &models.ListAppointmentsRequest{
		Actor:     actor,
		OwnerID:   customerID,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    handlers.QueryString(r, "status"),
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("GET /customers/{id}/appointments - Access denied: customer_id=%d, %s=%d", customerID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, appointments.ErrInvalidStatus):
			h.logger.Warn("GET /customers/{id}/appointments - Unknown status: %v", err)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("GET /customers/{id}/appointments - Invalid filter: %v", err)
			handlers.RespondBadRequest(w, msgInvalidFilter)

		default:
			h.logger.Error("GET /customers/{id}/appointments - Failed to list appointments: customer_id=%d, error=%v", customerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /customers/{id}/appointments - Appointments retrieved: customer_id=%d, count=%d", customerID, len(result.Appointments))
	handlers.RespondJSON(w, http.StatusOK, result)
}

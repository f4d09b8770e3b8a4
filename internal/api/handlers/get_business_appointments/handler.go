package get_business_appointments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
)

const (
	msgUnauthorized      = "требуется авторизация"
	msgInvalidBusinessID = "некорректный ID бизнеса"
	msgInvalidFilter     = "некорректные параметры фильтра"
	msgInvalidStatus     = "неизвестный статус"
	msgAccessDenied      = "нет доступа к записям бизнеса"
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

// Handle GET /api/v1/businesses/{businessId}/appointments
// Query params: serviceId, recurringId, startDate, endDate (YYYY-MM-DD), status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /businesses/{id}/appointments - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	businessID, err := strconv.ParseInt(mux.Vars(r)["businessId"], 10, 64)
	if err != nil || businessID <= 0 {
		h.logger.Warn("GET /businesses/{id}/appointments - Invalid business ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBusinessID)
		return
	}

	req, err := parseFilter(r, actor, businessID)
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	result, err := h.service.ListByBusiness(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("GET /businesses/{id}/appointments - Access denied: business_id=%d, %s=%d", businessID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, appointments.ErrInvalidStatus):
			h.logger.Warn("GET /businesses/{id}/appointments - Unknown status: %v", err)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("GET /businesses/{id}/appointments - Invalid filter: %v", err)
			handlers.RespondBadRequest(w, msgInvalidFilter)

		default:
			h.logger.Error("GET /businesses/{id}/appointments - Failed to list appointments: business_id=%d, error=%v", businessID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /businesses/{id}/appointments - Appointments retrieved: business_id=%d, count=%d", businessID, len(result.Appointments))
	handlers.RespondJSON(w, http.StatusOK, result)
}

package get_business_recurring

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

const (
	msgUnauthorized      = "требуется авторизация"
	msgInvalidBusinessID = "некорректный ID бизнеса"
	msgInvalidFilter     = "некорректные параметры фильтра"
	msgInvalidStatus     = "неизвестный статус серии"
	msgAccessDenied      = "нет доступа к сериям бизнеса"
)

type Handler struct {
	service RecurrenceService
	logger  Logger
}

func NewHandler(service RecurrenceService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/businesses/{businessId}/recurring-appointments
// Query params: status, customerId, serviceId
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /businesses/{id}/recurring-appointments - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	businessID, err := strconv.ParseInt(mux.Vars(r)["businessId"], 10, 64)
	if err != nil || businessID <= 0 {
		h.logger.Warn("GET /businesses/{id}/recurring-appointments - Invalid business ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBusinessID)
		return
	}

	customerID, err := handlers.QueryInt64(r, "customerId")
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/recurring-appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	serviceID, err := handlers.QueryInt64(r, "serviceId")
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/recurring-appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, msgInvalidFilter)
		return
	}

	result, err := h.service.List(r.Context(), &models.ListSeriesRequest{
		Actor:      actor,
		BusinessID: businessID,
		Status:     handlers.QueryString(r, "status"),
		CustomerID: customerID,
		ServiceID:  serviceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrAccessDenied):
			h.logger.Warn("GET /businesses/{id}/recurring-appointments - Access denied: business_id=%d, %s=%d", businessID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, recurrence.ErrInvalidStatus):
			h.logger.Warn("GET /businesses/{id}/recurring-appointments - Unknown status: %v", err)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		default:
			h.logger.Error("GET /businesses/{id}/recurring-appointments - Failed to list series: business_id=%d, error=%v", businessID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /businesses/{id}/recurring-appointments - Series retrieved: business_id=%d, count=%d", businessID, len(result.Series))
	handlers.RespondJSON(w, http.StatusOK, result)
}

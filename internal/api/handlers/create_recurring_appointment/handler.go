package create_recurring_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence"
)

const (
	msgUnauthorized       = "требуется авторизация"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidDateOrTime  = "некорректный формат даты или времени"
	msgInvalidRecurrence  = "некорректное правило повторения"
	msgInvalidInput       = "некорректные входные данные"
	msgAccessDenied       = "нет прав на создание серии"
	msgServiceNotFound    = "услуга не найдена"
	msgServiceDisabled    = "услуга недоступна для записи"
	msgInvalidDay         = "услуга не оказывается в этот день недели"
	msgInvalidTimeSlot    = "время не совпадает со слотом услуги"
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

// Handle POST /api/v1/recurring-appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /recurring-appointments - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	var req CreateSeriesRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /recurring-appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	serviceReq, err := req.ToServiceRequest(actor)
	if err != nil {
		h.logger.Warn("POST /recurring-appointments - Invalid date or time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDateOrTime)
		return
	}

	result, err := h.service.CreateSeries(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrInvalidRecurrence):
			h.logger.Warn("POST /recurring-appointments - Invalid recurrence: %v", err)
			handlers.RespondBadRequest(w, msgInvalidRecurrence)

		case errors.Is(err, recurrence.ErrInvalidInput):
			h.logger.Warn("POST /recurring-appointments - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, recurrence.ErrAccessDenied):
			h.logger.Warn("POST /recurring-appointments - Access denied: %s=%d", actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, recurrence.ErrServiceNotFound):
			h.logger.Warn("POST /recurring-appointments - Service not found: service_id=%d", req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, recurrence.ErrServiceDisabled):
			h.logger.Warn("POST /recurring-appointments - Service disabled: service_id=%d", req.ServiceID)
			handlers.RespondBadRequest(w, msgServiceDisabled)

		case errors.Is(err, recurrence.ErrInvalidDay):
			h.logger.Warn("POST /recurring-appointments - Day not offered: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDay)

		case errors.Is(err, recurrence.ErrInvalidTimeSlot):
			h.logger.Warn("POST /recurring-appointments - Off-ladder start: %v", err)
			handlers.RespondBadRequest(w, msgInvalidTimeSlot)

		default:
			h.logger.Error("POST /recurring-appointments - Failed to create series: %s=%d, error=%v", actor.Role, actor.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /recurring-appointments - Series created: id=%d, pattern=%s, appointments=%d",
		result.ID, result.Pattern, len(result.AppointmentIDs))
	handlers.RespondJSON(w, http.StatusCreated, result)
}

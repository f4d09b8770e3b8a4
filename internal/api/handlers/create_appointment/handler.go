package create_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	createAppointment "github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
)

const (
	msgUnauthorized          = "требуется авторизация"
	msgOnlyCustomer          = "записаться может только клиент"
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgInvalidDateOrTime     = "некорректный формат даты или времени"
	msgServiceNotFound       = "услуга не найдена"
	msgServiceDisabled       = "услуга недоступна для записи"
	msgInvalidDay            = "услуга не оказывается в этот день"
	msgInvalidTimeSlot       = "время не совпадает со слотом услуги"
	msgSlotNoLongerAvailable = "слот уже занят"
	msgDateInPast            = "дата уже прошла"
	msgDateTooFar            = "дата слишком далеко в будущем"
	msgInvalidInput          = "некорректные входные данные"
)

type Handler struct {
	useCase CreateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase CreateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	if actor.Role != domain.ActorCustomer {
		h.logger.Warn("POST /appointments - Forbidden: role=%s, user_id=%d", actor.Role, actor.UserID)
		handlers.RespondForbidden(w, msgOnlyCustomer)
		return
	}

	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(actor.UserID)
	if err != nil {
		h.logger.Warn("POST /appointments - Invalid date or time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDateOrTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createAppointment.ErrServiceNotFound):
			h.logger.Warn("POST /appointments - Service not found: service_id=%d", req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, createAppointment.ErrServiceDisabled):
			h.logger.Warn("POST /appointments - Service disabled: service_id=%d", req.ServiceID)
			handlers.RespondBadRequest(w, msgServiceDisabled)

		case errors.Is(err, createAppointment.ErrInvalidDay):
			h.logger.Warn("POST /appointments - Day not offered: service_id=%d, date=%s", req.ServiceID, req.Date)
			handlers.RespondBadRequest(w, msgInvalidDay)

		case errors.Is(err, createAppointment.ErrInvalidTimeSlot):
			h.logger.Warn("POST /appointments - Off-ladder start: service_id=%d, start=%s", req.ServiceID, req.StartTime)
			handlers.RespondBadRequest(w, msgInvalidTimeSlot)

		case errors.Is(err, createAppointment.ErrSlotNoLongerAvailable):
			h.logger.Warn("POST /appointments - Slot taken: service_id=%d, date=%s, start=%s", req.ServiceID, req.Date, req.StartTime)
			handlers.RespondConflict(w, msgSlotNoLongerAvailable)

		case errors.Is(err, createAppointment.ErrInvalidDate):
			h.logger.Warn("POST /appointments - Date in the past: %s", req.Date)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, createAppointment.ErrDateTooFarInFuture):
			h.logger.Warn("POST /appointments - Date too far: %s", req.Date)
			handlers.RespondBadRequest(w, msgDateTooFar)

		case errors.Is(err, createAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: customer_id=%d, error=%v", actor.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments - Appointment created: id=%d, customer_id=%d, status=%s", result.ID, result.CustomerID, result.Status)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}

package update_appointment_status

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
)

const (
	msgUnauthorized         = "требуется авторизация"
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingStatus        = "статус обязателен"
	msgInvalidStatus        = "неизвестный статус"
	msgAppointmentNotFound  = "запись не найдена"
	msgAccessDenied         = "нет доступа к записи"
	msgActorNotAllowed      = "недостаточно прав для этого перехода"
	msgInvalidTransition    = "переход статуса недопустим"
	msgTransitionTooEarly   = "запись еще не закончилась"
	msgStatusChanged        = "статус записи изменился, повторите запрос"
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

// Handle PATCH /api/v1/appointments/{appointmentId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("PATCH /appointments/{id}/status - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	appointmentID, err := strconv.ParseInt(mux.Vars(r)["appointmentId"], 10, 64)
	if err != nil || appointmentID <= 0 {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req UpdateStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	if strings.TrimSpace(req.Status) == "" {
		h.logger.Warn("PATCH /appointments/{id}/status - Missing status: id=%d", appointmentID)
		handlers.RespondBadRequest(w, msgMissingStatus)
		return
	}

	result, err := h.service.UpdateStatus(r.Context(), appointmentID, &models.UpdateStatusRequest{
		Status: req.Status,
		Actor:  actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInvalidStatus):
			h.logger.Warn("PATCH /appointments/{id}/status - Unknown status: %s", req.Status)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, appointments.ErrAppointmentNotFound):
			h.logger.Warn("PATCH /appointments/{id}/status - Appointment not found: id=%d", appointmentID)
			handlers.RespondNotFound(w, msgAppointmentNotFound)

		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("PATCH /appointments/{id}/status - Access denied: id=%d, %s=%d", appointmentID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, appointments.ErrActorNotAllowed):
			h.logger.Warn("PATCH /appointments/{id}/status - Role not allowed: id=%d, role=%s, status=%s", appointmentID, actor.Role, req.Status)
			handlers.RespondForbidden(w, msgActorNotAllowed)

		case errors.Is(err, appointments.ErrInvalidTransition):
			h.logger.Warn("PATCH /appointments/{id}/status - Invalid transition: %v", err)
			handlers.RespondConflict(w, transitionMessage(err))

		case errors.Is(err, appointments.ErrTransitionTooEarly):
			h.logger.Warn("PATCH /appointments/{id}/status - Too early: %v", err)
			handlers.RespondBadRequest(w, msgTransitionTooEarly)

		case errors.Is(err, appointments.ErrStatusChanged):
			h.logger.Warn("PATCH /appointments/{id}/status - Concurrent change: id=%d", appointmentID)
			handlers.RespondConflict(w, msgStatusChanged)

		default:
			h.logger.Error("PATCH /appointments/{id}/status - Failed to update status: id=%d, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/status - Status updated: id=%d, status=%s", appointmentID, result.Status)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// transitionMessage дополняет сообщение парой статусов отклоненного перехода
func transitionMessage(err error) string {
	var transitionErr *domain.TransitionError
	if errors.As(err, &transitionErr) {
		return fmt.Sprintf("%s: %s -> %s", msgInvalidTransition, transitionErr.From, transitionErr.To)
	}
	return msgInvalidTransition
}

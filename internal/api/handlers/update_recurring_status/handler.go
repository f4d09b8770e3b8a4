package update_recurring_status

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

const (
	msgUnauthorized       = "требуется авторизация"
	msgInvalidSeriesID    = "некорректный ID серии"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingStatus      = "статус обязателен"
	msgInvalidStatus      = "неизвестный статус серии"
	msgSeriesNotFound     = "серия не найдена"
	msgAccessDenied       = "нет доступа к серии"
	msgInvalidTransition  = "переход статуса серии недопустим"
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

// Handle PATCH /api/v1/recurring-appointments/{seriesId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("PATCH /recurring-appointments/{id}/status - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	seriesID, err := strconv.ParseInt(mux.Vars(r)["seriesId"], 10, 64)
	if err != nil || seriesID <= 0 {
		h.logger.Warn("PATCH /recurring-appointments/{id}/status - Invalid series ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSeriesID)
		return
	}

	var req UpdateSeriesStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /recurring-appointments/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	if strings.TrimSpace(req.Status) == "" {
		h.logger.Warn("PATCH /recurring-appointments/{id}/status - Missing status: id=%d", seriesID)
		handlers.RespondBadRequest(w, msgMissingStatus)
		return
	}

	result, err := h.service.ApplyBulkStatus(r.Context(), seriesID, &models.UpdateSeriesStatusRequest{
		Status: req.Status,
		Actor:  actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrInvalidStatus):
			h.logger.Warn("PATCH /recurring-appointments/{id}/status - Unknown status: %s", req.Status)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, recurrence.ErrSeriesNotFound):
			h.logger.Warn("PATCH /recurring-appointments/{id}/status - Series not found: id=%d", seriesID)
			handlers.RespondNotFound(w, msgSeriesNotFound)

		case errors.Is(err, recurrence.ErrAccessDenied):
			h.logger.Warn("PATCH /recurring-appointments/{id}/status - Access denied: id=%d, %s=%d", seriesID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, recurrence.ErrInvalidTransition):
			h.logger.Warn("PATCH /recurring-appointments/{id}/status - Invalid transition: %v", err)
			handlers.RespondConflict(w, msgInvalidTransition)

		default:
			h.logger.Error("PATCH /recurring-appointments/{id}/status - Failed to update series: id=%d, error=%v", seriesID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /recurring-appointments/{id}/status - Series status updated: id=%d, status=%s", seriesID, result.Status)
	handlers.RespondJSON(w, http.StatusOK, result)
}

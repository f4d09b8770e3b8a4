package materialize_recurring

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence"
)

const (
	msgUnauthorized       = "требуется авторизация"
	msgInvalidSeriesID    = "некорректный ID серии"
	msgInvalidHorizonDays = "некорректный горизонт генерации"
	msgSeriesNotFound     = "серия не найдена"
	msgAccessDenied       = "генерацию может запустить только бизнес"
	msgSeriesNotActive    = "серия не активна"
	msgServiceNotFound    = "услуга серии не найдена"
	msgServiceDisabled    = "услуга серии отключена"
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

// Handle POST /api/v1/recurring-appointments/{seriesId}/materialize
// Query params: horizonDays (optional, по умолчанию из конфигурации)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /recurring-appointments/{id}/materialize - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	seriesID, err := strconv.ParseInt(mux.Vars(r)["seriesId"], 10, 64)
	if err != nil || seriesID <= 0 {
		h.logger.Warn("POST /recurring-appointments/{id}/materialize - Invalid series ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSeriesID)
		return
	}

	horizonDays := 0
	if raw := r.URL.Query().Get("horizonDays"); raw != "" {
		horizonDays, err = strconv.Atoi(raw)
		if err != nil {
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Invalid horizonDays: %v", err)
			handlers.RespondBadRequest(w, msgInvalidHorizonDays)
			return
		}
	}

	result, err := h.service.Materialize(r.Context(), seriesID, actor, horizonDays)
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrInvalidInput):
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidHorizonDays)

		case errors.Is(err, recurrence.ErrSeriesNotFound):
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Series not found: id=%d", seriesID)
			handlers.RespondNotFound(w, msgSeriesNotFound)

		case errors.Is(err, recurrence.ErrAccessDenied):
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Access denied: id=%d, %s=%d", seriesID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, recurrence.ErrSeriesNotActive):
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Series not active: id=%d", seriesID)
			handlers.RespondConflict(w, msgSeriesNotActive)

		case errors.Is(err, recurrence.ErrServiceNotFound):
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Service not found: id=%d", seriesID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, recurrence.ErrServiceDisabled):
			h.logger.Warn("POST /recurring-appointments/{id}/materialize - Service disabled: id=%d", seriesID)
			handlers.RespondConflict(w, msgServiceDisabled)

		default:
			h.logger.Error("POST /recurring-appointments/{id}/materialize - Failed to materialize: id=%d, error=%v", seriesID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /recurring-appointments/{id}/materialize - Materialized: id=%d, created=%d, skipped=%d",
		seriesID, len(result.Created), len(result.Skipped))
	handlers.RespondJSON(w, http.StatusOK, result)
}

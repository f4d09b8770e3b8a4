package get_recurring_appointment

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
	msgUnauthorized    = "требуется авторизация"
	msgInvalidSeriesID = "некорректный ID серии"
	msgSeriesNotFound  = "серия не найдена"
	msgAccessDenied    = "нет доступа к серии"
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

// Handle GET /api/v1/recurring-appointments/{seriesId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /recurring-appointments/{id} - Unauthorized: missing actor")
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	seriesID, err := strconv.ParseInt(mux.Vars(r)["seriesId"], 10, 64)
	if err != nil || seriesID <= 0 {
		h.logger.Warn("GET /recurring-appointments/{id} - Invalid series ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSeriesID)
		return
	}

	result, err := h.service.GetByID(r.Context(), seriesID, actor)
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrSeriesNotFound):
			h.logger.Warn("GET /recurring-appointments/{id} - Series not found: id=%d", seriesID)
			handlers.RespondNotFound(w, msgSeriesNotFound)

		case errors.Is(err, recurrence.ErrAccessDenied):
			h.logger.Warn("GET /recurring-appointments/{id} - Access denied: id=%d, %s=%d", seriesID, actor.Role, actor.UserID)
			handlers.RespondForbidden(w, msgAccessDenied)

		default:
			h.logger.Error("GET /recurring-appointments/{id} - Failed to get series: id=%d, error=%v", seriesID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

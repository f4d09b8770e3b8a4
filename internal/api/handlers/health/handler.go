package health

import (
	"context"
	"net/http"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
)

const checkTimeout = 2 * time.Second

// Checker проверка зависимости (база данных, Redis)
type Checker interface {
	PingContext(ctx context.Context) error
}

// CheckerFunc адаптер функции к Checker
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

type Logger interface {
	Warn(format string, v ...interface{})
}

// Response тело ответа /healthz
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type Handler struct {
	checks map[string]Checker
	logger Logger
}

func NewHandler(checks map[string]Checker, logger Logger) *Handler {
	return &Handler{
		checks: checks,
		logger: logger,
	}
}

// Handle GET /healthz
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			h.logger.Warn("GET /healthz - %s check failed: %v", name, err)
			resp.Checks[name] = "fail"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	handlers.RespondJSON(w, status, resp)
}

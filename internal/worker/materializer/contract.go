package materializer

import "context"

// SeriesMaintainer интерфейс догенерации активных серий (recurrence.Service)
type SeriesMaintainer interface {
	MaintainActiveSeries(ctx context.Context) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

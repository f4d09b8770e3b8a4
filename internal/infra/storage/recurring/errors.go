package recurring

import "errors"

var (
	// ErrSeriesNotFound возвращается, когда серия не найдена
	ErrSeriesNotFound = errors.New("recurring.repository: series not found")

	// ErrStatusConflict возвращается, когда статус серии изменился с момента чтения
	ErrStatusConflict = errors.New("recurring.repository: series status changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("recurring.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("recurring.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("recurring.repository: failed to scan row")
)

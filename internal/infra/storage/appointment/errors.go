package appointment

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment.repository: appointment not found")

	// ErrConflict возвращается, когда слот уже занят (уникальный индекс или конфликт сериализации)
	ErrConflict = errors.New("appointment.repository: slot conflict")

	// ErrStatusConflict возвращается, когда статус записи изменился с момента чтения
	ErrStatusConflict = errors.New("appointment.repository: status changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("appointment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("appointment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("appointment.repository: failed to scan row")
)

// Коды ошибок PostgreSQL, означающие гонку за слот
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsConflict проверяет, что ошибка означает гонку за слот и операцию можно повторить.
// Распознает как ErrConflict репозитория, так и ошибку commit из txmanager.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isConflictCode(string(pqErr.Code))
	}
	return false
}

func isConflictCode(code string) bool {
	switch code {
	case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
		return true
	default:
		return false
	}
}

func isPQConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && isConflictCode(string(pqErr.Code))
}

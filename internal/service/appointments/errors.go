package appointments

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа к записи
	ErrAccessDenied = errors.New("appointments: access denied")

	// ErrInvalidTransition возвращается, когда переход статуса отсутствует в таблице переходов
	ErrInvalidTransition = errors.New("appointments: invalid status transition")

	// ErrActorNotAllowed возвращается, когда роль не может выполнить переход
	ErrActorNotAllowed = errors.New("appointments: role is not allowed to perform transition")

	// ErrTransitionTooEarly возвращается, когда запись еще не закончилась
	ErrTransitionTooEarly = errors.New("appointments: appointment has not ended yet")

	// ErrStatusChanged возвращается, когда статус записи изменился параллельно
	ErrStatusChanged = errors.New("appointments: status changed concurrently")

	// ErrInvalidStatus возвращается при неизвестном статусе
	ErrInvalidStatus = errors.New("appointments: invalid appointment status")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("appointments: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("appointments: internal error")
)

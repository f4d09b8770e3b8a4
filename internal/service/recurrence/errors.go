package recurrence

import "errors"

var (
	// ErrSeriesNotFound возвращается, когда серия не найдена
	ErrSeriesNotFound = errors.New("recurrence: series not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав на серию
	ErrAccessDenied = errors.New("recurrence: access denied")

	// ErrInvalidRecurrence возвращается при некорректном описании серии
	ErrInvalidRecurrence = errors.New("recurrence: invalid recurrence definition")

	// ErrInvalidStatus возвращается при неизвестном статусе серии
	ErrInvalidStatus = errors.New("recurrence: invalid series status")

	// ErrInvalidTransition возвращается при недопустимом изменении статуса серии
	ErrInvalidTransition = errors.New("recurrence: invalid series status transition")

	// ErrSeriesNotActive возвращается при материализации неактивной серии
	ErrSeriesNotActive = errors.New("recurrence: series is not active")

	// ErrServiceNotFound возвращается, когда услуга не найдена или принадлежит другому бизнесу
	ErrServiceNotFound = errors.New("recurrence: service not found")

	// ErrServiceDisabled возвращается, когда услуга отключена
	ErrServiceDisabled = errors.New("recurrence: service is disabled")

	// ErrInvalidDay возвращается, когда услуга не оказывается в день недели серии
	ErrInvalidDay = errors.New("recurrence: service is not offered on this day")

	// ErrInvalidTimeSlot возвращается, когда время серии не совпадает со слотом услуги
	ErrInvalidTimeSlot = errors.New("recurrence: invalid time slot")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("recurrence: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("recurrence: internal error")
)

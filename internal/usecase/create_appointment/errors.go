package create_appointment

import "errors"

var (
	// ErrServiceNotFound возвращается, когда услуга не найдена или принадлежит другому бизнесу
	ErrServiceNotFound = errors.New("create_appointment: service not found")

	// ErrServiceDisabled возвращается, когда услуга отключена
	ErrServiceDisabled = errors.New("create_appointment: service is disabled")

	// ErrInvalidDay возвращается, когда услуга не оказывается в этот день недели
	ErrInvalidDay = errors.New("create_appointment: service is not offered on this day")

	// ErrInvalidTimeSlot возвращается, когда время начала не совпадает ни с одним слотом услуги
	ErrInvalidTimeSlot = errors.New("create_appointment: invalid time slot")

	// ErrSlotNoLongerAvailable возвращается, когда слот заняли или он уже прошел
	ErrSlotNoLongerAvailable = errors.New("create_appointment: slot is no longer available")

	// ErrInvalidDate возвращается при дате в прошлом
	ErrInvalidDate = errors.New("create_appointment: invalid appointment date")

	// ErrDateTooFarInFuture возвращается, когда дата превышает ограничение maxAdvanceDays
	ErrDateTooFarInFuture = errors.New("create_appointment: date is too far in the future")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_appointment: internal error")
)

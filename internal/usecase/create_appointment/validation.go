package create_appointment

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customerID must be positive", ErrInvalidInput)
	}

	if req.BusinessID <= 0 {
		return fmt.Errorf("%w: businessID must be positive", ErrInvalidInput)
	}

	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	if err := req.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: invalid startTime format: %v", ErrInvalidInput, err)
	}

	return validateNotes(req.Notes)
}

func validateNotes(notes *string) error {
	if notes != nil && len([]rune(*notes)) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}
	return nil
}

// validateDate проверяет, что дата не в прошлом и не дальше maxAdvanceDays от сегодня
func validateDate(date time.Time, now time.Time, maxAdvanceDays int) error {
	today := domain.DateOnly(now)
	day := domain.DateOnly(date)

	if day.Before(today) {
		return fmt.Errorf("%w: %s is in the past", ErrInvalidDate, day.Format(domain.DateFormat))
	}

	if maxAdvanceDays > 0 && day.After(today.AddDate(0, 0, maxAdvanceDays)) {
		return fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, maxAdvanceDays)
	}

	return nil
}

// validateSlotShape проверяет услугу и время начала без учета занятости
func validateSlotShape(req *ReserveRequest) error {
	service := req.Service

	if !service.IsActive {
		return ErrServiceDisabled
	}

	if !service.Availability.IsOfferedOn(req.Date.Weekday()) {
		return fmt.Errorf("%w: %s", ErrInvalidDay, req.Date.Weekday())
	}

	onLadder, err := domain.IsOnLadder(service, req.StartTime)
	if err != nil {
		return fmt.Errorf("%w: service id=%d: %v", ErrInternal, service.ID, err)
	}
	if !onLadder {
		return fmt.Errorf("%w: %s is not a slot start of service id=%d", ErrInvalidTimeSlot, req.StartTime, service.ID)
	}

	return nil
}

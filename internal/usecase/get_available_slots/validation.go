package get_available_slots

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	return nil
}

// validateDate проверяет, что дата не в прошлом и не дальше maxAdvanceDays от сегодня.
// maxAdvanceDays = 0 снимает ограничение сверху.
func validateDate(date time.Time, now time.Time, maxAdvanceDays int) error {
	today := domain.DateOnly(now)
	day := domain.DateOnly(date)

	if day.Before(today) {
		return fmt.Errorf("%w: %s is in the past", ErrInvalidDate, day.Format(domain.DateFormat))
	}

	if maxAdvanceDays == 0 {
		return nil
	}

	if day.After(today.AddDate(0, 0, maxAdvanceDays)) {
		return fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, maxAdvanceDays)
	}

	return nil
}

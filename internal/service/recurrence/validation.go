package recurrence

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
)

// validateCreateRequest валидирует входные данные запроса на создание серии
func validateCreateRequest(req *models.CreateSeriesRequest) error {
	if req.BusinessID <= 0 {
		return fmt.Errorf("%w: businessID must be positive", ErrInvalidInput)
	}

	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customerID must be positive", ErrInvalidInput)
	}

	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	if err := req.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: invalid startTime format: %v", ErrInvalidInput, err)
	}

	if req.Notes != nil && len([]rune(*req.Notes)) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}

	return nil
}

// ownsNewSeries клиент создает серию для себя, бизнес - для своих услуг
func ownsNewSeries(req *models.CreateSeriesRequest) bool {
	switch req.Actor.Role {
	case domain.ActorCustomer:
		return req.Actor.UserID == req.CustomerID
	case domain.ActorBusiness:
		return req.Actor.UserID == req.BusinessID
	default:
		return false
	}
}

// buildSeries собирает доменную серию и проверяет правило повторения
func buildSeries(req *models.CreateSeriesRequest) (*domain.RecurringAppointment, error) {
	pattern, err := domain.ParseRecurrencePattern(req.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}

	series := &domain.RecurringAppointment{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		Pattern:    pattern,
		StartDate:  domain.DateOnly(req.StartDate),
		StartTime:  req.StartTime,
		Notes:      req.Notes,
	}

	if req.EndDate != nil {
		end := domain.DateOnly(*req.EndDate)
		series.EndDate = &end
	}

	// поля другого шаблона не сохраняются
	switch pattern {
	case domain.PatternWeekly, domain.PatternBiweekly:
		if req.DayOfWeek != nil {
			if *req.DayOfWeek < int(time.Sunday) || *req.DayOfWeek > int(time.Saturday) {
				return nil, fmt.Errorf("%w: dayOfWeek %d out of range", ErrInvalidRecurrence, *req.DayOfWeek)
			}
			day := time.Weekday(*req.DayOfWeek)
			series.DayOfWeek = &day
		}
	case domain.PatternMonthly:
		series.DayOfMonth = req.DayOfMonth
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}

	return series, nil
}

// checkServiceFits проверяет, что серия совместима с услугой: услуга активна,
// время начала совпадает со слотом, день недели (для weekly/biweekly) рабочий
func checkServiceFits(series *domain.RecurringAppointment, service *domain.Service) error {
	if !service.IsActive {
		return ErrServiceDisabled
	}

	onLadder, err := domain.IsOnLadder(service, series.StartTime)
	if err != nil {
		return fmt.Errorf("%w: service id=%d: %v", ErrInternal, service.ID, err)
	}
	if !onLadder {
		return fmt.Errorf("%w: %s is not a slot start of service id=%d", ErrInvalidTimeSlot, series.StartTime, service.ID)
	}

	if series.DayOfWeek != nil && !service.Availability.IsOfferedOn(*series.DayOfWeek) {
		return fmt.Errorf("%w: %s", ErrInvalidDay, *series.DayOfWeek)
	}

	return nil
}

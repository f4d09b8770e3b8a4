package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	catalogClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/catalogservice"
)

// UseCase use case для получения доступных слотов для записи
type UseCase struct {
	appointmentRepo AppointmentRepository
	catalogClient   CatalogClient
	timeProvider    TimeProvider
	maxAdvanceDays  int
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	catalogClient CatalogClient,
	timeProvider TimeProvider,
	maxAdvanceDays int,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		catalogClient:   catalogClient,
		timeProvider:    timeProvider,
		maxAdvanceDays:  maxAdvanceDays,
		logger:          logger,
	}
}

// Execute выполняет use case получения доступных слотов.
// Не блокирует слоты: при создании записи доступность проверяется заново.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: service=%d, date=%s", req.ServiceID, req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()
	date := domain.DateOnly(req.Date)

	// 2. Валидация даты
	if err := validateDate(date, now, uc.maxAdvanceDays); err != nil {
		uc.logger.Warn("GetAvailableSlots: date validation failed: %v", err)
		return nil, err
	}

	// 3. Получаем услугу из каталога
	service, err := uc.catalogClient.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	if !service.IsActive {
		uc.logger.Warn("GetAvailableSlots: service id=%d is disabled", req.ServiceID)
		return nil, ErrServiceDisabled
	}

	response := &Response{
		Date:            date,
		ServiceID:       service.ID,
		BusinessID:      service.BusinessID,
		DurationMinutes: service.DurationMinutes,
		Slots:           []Slot{},
	}

	// 4. Выходной день услуги: пустой результат, не ошибка
	if !service.Availability.IsOfferedOn(date.Weekday()) {
		uc.logger.Info("GetAvailableSlots: service id=%d is not offered on %s", req.ServiceID, date.Weekday())
		response.NotAvailableDay = true
		return response, nil
	}

	// 5. Получаем активные записи на эту дату
	appointments, err := uc.appointmentRepo.GetActiveByResourceAndDate(ctx, service.BusinessID, service.ID, date)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 6. Вычисляем свободные слоты
	result, err := domain.ComputeSlots(service, date, domain.BookedIntervals(appointments), now)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to compute slots for service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to compute slots: %v", ErrInternal, err)
	}

	for _, s := range result.Slots {
		response.Slots = append(response.Slots, Slot{StartTime: s.StartTime, EndTime: s.EndTime})
	}

	uc.logger.Info("GetAvailableSlots: %d free slots for service=%d, date=%s",
		len(response.Slots), req.ServiceID, date.Format(domain.DateFormat))

	return response, nil
}

package create_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/appointment"
	catalogClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// maxCommitAttempts первая попытка и один повтор после конфликта
const maxCommitAttempts = 2

const defaultPaymentTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment")

// UseCase use case для создания записи.
// Проверка слота и вставка выполняются атомарно для ключа бизнес+услуга+дата.
type UseCase struct {
	appointmentRepo AppointmentRepository
	catalogClient   CatalogClient
	locker          Locker
	txManager       TransactionManager
	payment         PaymentProvider
	dispatcher      Dispatcher
	metrics         Metrics
	timeProvider    TimeProvider
	logger          Logger

	maxAdvanceDays int
	paymentTimeout time.Duration
	runAsync       func(func())
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	catalogClient CatalogClient,
	locker Locker,
	txManager TransactionManager,
	payment PaymentProvider,
	dispatcher Dispatcher,
	metrics Metrics,
	timeProvider TimeProvider,
	maxAdvanceDays int,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		catalogClient:   catalogClient,
		locker:          locker,
		txManager:       txManager,
		payment:         payment,
		dispatcher:      dispatcher,
		metrics:         metrics,
		timeProvider:    timeProvider,
		logger:          logger,
		maxAdvanceDays:  maxAdvanceDays,
		paymentTimeout:  defaultPaymentTimeout,
		runAsync:        func(fn func()) { go fn() },
	}
}

// Execute выполняет use case создания записи
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateAppointment: customer=%d, business=%d, service=%d, date=%s, time=%s",
		req.CustomerID, req.BusinessID, req.ServiceID, req.Date.Format(domain.DateFormat), req.StartTime)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Валидация даты
	if err := validateDate(req.Date, uc.timeProvider.Now(), uc.maxAdvanceDays); err != nil {
		uc.logger.Warn("CreateAppointment: date validation failed: %v", err)
		return nil, err
	}

	// 3. Получаем услугу
	service, err := uc.catalogClient.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("CreateAppointment: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	if service.BusinessID != req.BusinessID {
		uc.logger.Warn("CreateAppointment: service id=%d belongs to business=%d, not %d",
			req.ServiceID, service.BusinessID, req.BusinessID)
		return nil, ErrServiceNotFound
	}

	// 4. Резервируем слот
	created, err := uc.Reserve(ctx, &ReserveRequest{
		Service:    service,
		CustomerID: req.CustomerID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, err
	}

	return newResponse(created), nil
}

// Reserve проверяет слот и создает запись.
// При конфликте на commit проверка повторяется один раз, затем возвращается ErrSlotNoLongerAvailable.
// Оплата и уведомления запускаются в фоне и не влияют на результат.
func (uc *UseCase) Reserve(ctx context.Context, req *ReserveRequest) (*domain.Appointment, error) {
	req.Date = domain.DateOnly(req.Date)
	service := req.Service

	if err := validateNotes(req.Notes); err != nil {
		return nil, err
	}

	if err := validateSlotShape(req); err != nil {
		uc.logger.Warn("CreateAppointment: slot validation failed for service id=%d on %s %s: %v",
			service.ID, req.Date.Format(domain.DateFormat), req.StartTime, err)
		return nil, err
	}

	endTime, err := req.StartTime.AddMinutes(service.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive end time: %v", ErrInternal, err)
	}

	ctx, span := tracer.Start(ctx, "BookingCoordinator.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("business.id", service.BusinessID),
		attribute.Int64("service.id", service.ID),
		attribute.String("appointment.date", req.Date.Format(domain.DateFormat)),
		attribute.String("appointment.start_time", req.StartTime.String()),
	)

	var created *domain.Appointment
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		created, err = uc.commit(ctx, req, endTime)
		if err == nil {
			break
		}
		if !appointmentRepo.IsConflict(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reserve failed")
			return nil, err
		}

		uc.metrics.IncBookingConflict()
		uc.logger.Warn("CreateAppointment: commit conflict on attempt %d for service id=%d on %s %s: %v",
			attempt, service.ID, req.Date.Format(domain.DateFormat), req.StartTime, err)
	}
	if err != nil {
		span.SetStatus(codes.Error, "slot no longer available")
		return nil, ErrSlotNoLongerAvailable
	}

	origin := OriginBooking
	if req.RecurringID != nil {
		origin = OriginRecurring
	}
	uc.metrics.IncAppointmentCreated(string(created.Status), origin)
	span.SetAttributes(attribute.Int64("appointment.id", created.ID))

	uc.logger.Info("CreateAppointment: successfully created appointment id=%d with status=%s",
		created.ID, created.Status)

	if service.RequiresPayment() {
		uc.startPayment(ctx, created)
	}

	// экземпляры серии уведомляются одним событием series.materialized
	if req.RecurringID == nil {
		uc.dispatcher.Dispatch(ctx, domain.AppointmentEvent{
			Type:          domain.EventAppointmentCreated,
			AppointmentID: created.ID,
			BusinessID:    created.BusinessID,
			CustomerID:    created.CustomerID,
			Status:        string(created.Status),
			Date:          created.Date,
			StartTime:     created.StartTime,
			OccurredAt:    uc.timeProvider.Now(),
		})
	}

	return created, nil
}

// commit выполняет проверку занятости и вставку под блокировкой ключа в сериализуемой транзакции
func (uc *UseCase) commit(ctx context.Context, req *ReserveRequest, endTime types.TimeString) (*domain.Appointment, error) {
	service := req.Service
	key := domain.ResourceDayKey(service.BusinessID, service.ID, req.Date)

	unlock, err := uc.locker.Lock(ctx, key)
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to acquire lock %s: %v", key, err)
		return nil, fmt.Errorf("%w: failed to acquire lock: %v", ErrInternal, err)
	}
	defer unlock()

	var result *domain.Appointment

	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// Активные записи на эту дату с блокировкой (FOR UPDATE)
		appointments, err := uc.appointmentRepo.GetActiveByResourceAndDate(txCtx, service.BusinessID, service.ID, req.Date)
		if err != nil {
			if appointmentRepo.IsConflict(err) {
				return err
			}
			uc.logger.Error("CreateAppointment: failed to get appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
		}

		// Повторная проверка на момент commit
		slots, err := domain.ComputeSlots(service, req.Date, domain.BookedIntervals(appointments), uc.timeProvider.Now())
		if err != nil {
			return fmt.Errorf("%w: failed to compute slots: %v", ErrInternal, err)
		}
		if !slots.Contains(req.StartTime) {
			uc.logger.Warn("CreateAppointment: slot %s on %s is taken or has passed",
				req.StartTime, req.Date.Format(domain.DateFormat))
			return ErrSlotNoLongerAvailable
		}

		appt := &domain.Appointment{
			ServiceID:   service.ID,
			BusinessID:  service.BusinessID,
			CustomerID:  req.CustomerID,
			Date:        req.Date,
			StartTime:   req.StartTime,
			EndTime:     endTime,
			Status:      domain.InitialStatus(service.Price),
			Notes:       req.Notes,
			RecurringID: req.RecurringID,
			ServiceName: service.Name,
			Price:       service.Price,
		}

		created, err := uc.appointmentRepo.Create(txCtx, appt)
		if err != nil {
			if appointmentRepo.IsConflict(err) {
				return err
			}
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// startPayment инициирует оплату в фоне; ссылка на checkout сохраняется в записи
func (uc *UseCase) startPayment(ctx context.Context, appt *domain.Appointment) {
	bg := context.WithoutCancel(ctx)
	snapshot := *appt

	uc.runAsync(func() {
		ctx, cancel := context.WithTimeout(bg, uc.paymentTimeout)
		defer cancel()

		reference, err := uc.payment.InitializePayment(ctx, &snapshot)
		if err != nil {
			uc.logger.Warn("CreateAppointment: failed to initialize payment for appointment id=%d: %v", snapshot.ID, err)
			return
		}
		if reference == "" {
			return
		}

		if err := uc.appointmentRepo.SetPaymentReference(ctx, snapshot.ID, reference); err != nil {
			uc.logger.Error("CreateAppointment: failed to store payment reference for appointment id=%d: %v", snapshot.ID, err)
			return
		}

		uc.logger.Info("CreateAppointment: payment %s started for appointment id=%d", reference, snapshot.ID)
	})
}

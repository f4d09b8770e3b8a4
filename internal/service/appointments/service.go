package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
)

// Service сервис для работы с записями.
// Единственная точка изменения статуса записи.
type Service struct {
	appointmentRepo AppointmentRepository
	txManager       TransactionManager
	dispatcher      Dispatcher
	metrics         Metrics
	timeProvider    TimeProvider
	logger          Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	txManager TransactionManager,
	dispatcher Dispatcher,
	metrics Metrics,
	timeProvider TimeProvider,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo: appointmentRepo,
		txManager:       txManager,
		dispatcher:      dispatcher,
		metrics:         metrics,
		timeProvider:    timeProvider,
		logger:          logger,
	}
}

// GetByID получает запись по ID.
// Бизнес видит только свои записи, клиент только свои.
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for %s=%d", id, actor.Role, actor.UserID)

	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByID: appointment id=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if !appt.BelongsTo(actor) {
		s.logger.Warn("GetByID: access denied for %s=%d to appointment id=%d", actor.Role, actor.UserID, id)
		return nil, ErrAccessDenied
	}

	return models.FromDomainAppointment(appt), nil
}

// ListByBusiness получает записи бизнеса с фильтрацией по периоду, услуге, серии и статусу
func (s *Service) ListByBusiness(ctx context.Context, req *models.ListAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("ListByBusiness: fetching appointments for business=%d", req.OwnerID)

	if req.Actor.Role != domain.ActorBusiness || req.Actor.UserID != req.OwnerID {
		s.logger.Warn("ListByBusiness: access denied for %s=%d to business=%d", req.Actor.Role, req.Actor.UserID, req.OwnerID)
		return nil, ErrAccessDenied
	}

	filter, err := toFilter(req)
	if err != nil {
		s.logger.Warn("ListByBusiness: invalid filter: %v", err)
		return nil, err
	}
	filter.BusinessID = &req.OwnerID

	return s.list(ctx, "ListByBusiness", filter)
}

// ListByCustomer получает записи клиента
func (s *Service) ListByCustomer(ctx context.Context, req *models.ListAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("ListByCustomer: fetching appointments for customer=%d", req.OwnerID)

	if req.Actor.Role != domain.ActorCustomer || req.Actor.UserID != req.OwnerID {
		s.logger.Warn("ListByCustomer: access denied for %s=%d to customer=%d", req.Actor.Role, req.Actor.UserID, req.OwnerID)
		return nil, ErrAccessDenied
	}

	filter, err := toFilter(req)
	if err != nil {
		s.logger.Warn("ListByCustomer: invalid filter: %v", err)
		return nil, err
	}
	filter.CustomerID = &req.OwnerID

	return s.list(ctx, "ListByCustomer", filter)
}

func (s *Service) list(ctx context.Context, op string, filter domain.AppointmentFilter) (*models.AppointmentListResponse, error) {
	items, err := s.appointmentRepo.GetWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("%s: repository error: %v", op, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}

	s.logger.Info("%s: successfully fetched %d appointments", op, len(items))
	return models.FromDomainAppointmentList(items), nil
}

// UpdateStatus изменяет статус записи через таблицу переходов.
// Строка блокируется на время проверки, обновление выполняется только из прочитанного статуса.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req *models.UpdateStatusRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("UpdateStatus: appointment id=%d to status=%s by %s=%d", id, req.Status, req.Actor.Role, req.Actor.UserID)

	to, err := domain.ParseAppointmentStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for appointment id=%d", req.Status, id)
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	updated, _, err := s.transition(ctx, "UpdateStatus", id, to, req.Actor, false)
	if err != nil {
		return nil, err
	}

	return models.FromDomainAppointment(updated), nil
}

// OnPaymentConfirmed переводит запись из pending в confirmed после успешной оплаты.
// Повторный вызов для уже подтвержденной записи ничего не делает.
func (s *Service) OnPaymentConfirmed(ctx context.Context, appointmentID int64) error {
	return s.applyPayment(ctx, "OnPaymentConfirmed", appointmentID, domain.StatusConfirmed)
}

// OnPaymentFailed переводит запись из pending в cancelled после неудачной оплаты
func (s *Service) OnPaymentFailed(ctx context.Context, appointmentID int64) error {
	return s.applyPayment(ctx, "OnPaymentFailed", appointmentID, domain.StatusCancelled)
}

// HandlePaymentEvent применяет результат оплаты от провайдера
func (s *Service) HandlePaymentEvent(ctx context.Context, event *domain.PaymentEvent) error {
	s.logger.Info("HandlePaymentEvent: event=%s appointment id=%d outcome=%s", event.ProviderEventID, event.AppointmentID, event.Outcome)

	switch event.Outcome {
	case domain.PaymentConfirmed:
		return s.OnPaymentConfirmed(ctx, event.AppointmentID)
	case domain.PaymentFailed:
		return s.OnPaymentFailed(ctx, event.AppointmentID)
	default:
		return fmt.Errorf("%w: unknown payment outcome %q", ErrInvalidInput, event.Outcome)
	}
}

func (s *Service) applyPayment(ctx context.Context, op string, id int64, to domain.AppointmentStatus) error {
	_, applied, err := s.transition(ctx, op, id, to, domain.PaymentActor, true)
	if err != nil {
		// запись уже ушла из pending (например, отменена клиентом): результат оплаты устарел
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrActorNotAllowed) {
			s.logger.Warn("%s: stale payment callback for appointment id=%d: %v", op, id, err)
			return nil
		}
		return err
	}
	if !applied {
		s.logger.Info("%s: appointment id=%d already %s", op, id, to)
	}
	return nil
}

// transition применяет переход в транзакции.
// При idempotent=true совпадение текущего статуса с целевым не считается ошибкой.
func (s *Service) transition(
	ctx context.Context,
	op string,
	id int64,
	to domain.AppointmentStatus,
	actor domain.Actor,
	idempotent bool,
) (*domain.Appointment, bool, error) {
	var (
		updated *domain.Appointment
		from    domain.AppointmentStatus
		applied bool
	)

	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		appt, err := s.appointmentRepo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				s.logger.Warn("%s: appointment id=%d not found", op, id)
				return ErrAppointmentNotFound
			}
			s.logger.Error("%s: repository error for appointment id=%d: %v", op, id, err)
			return fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
		}

		if !appt.BelongsTo(actor) {
			s.logger.Warn("%s: access denied for %s=%d to appointment id=%d", op, actor.Role, actor.UserID, id)
			return ErrAccessDenied
		}

		if idempotent && appt.Status == to {
			updated = appt
			return nil
		}

		if err := domain.ValidateTransition(appt, to, actor.Role, s.timeProvider.Now()); err != nil {
			s.logger.Warn("%s: appointment id=%d: %v", op, id, err)
			return mapTransitionError(err)
		}

		from = appt.Status
		if err := s.appointmentRepo.UpdateStatus(txCtx, id, from, to); err != nil {
			if errors.Is(err, appointmentRepo.ErrStatusConflict) {
				s.logger.Warn("%s: appointment id=%d changed concurrently", op, id)
				return ErrStatusChanged
			}
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			s.logger.Error("%s: repository error for appointment id=%d: %v", op, id, err)
			return fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
		}

		updated, err = s.appointmentRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: %s - failed to reload appointment: %v", ErrInternal, op, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if applied {
		s.metrics.IncStatusTransition(string(from), string(to), string(actor.Role))
		s.logger.Info("%s: appointment id=%d %s -> %s by %s", op, id, from, to, actor.Role)

		s.dispatcher.Dispatch(ctx, domain.AppointmentEvent{
			Type:           domain.EventAppointmentStatusChanged,
			AppointmentID:  updated.ID,
			SeriesID:       updated.RecurringID,
			BusinessID:     updated.BusinessID,
			CustomerID:     updated.CustomerID,
			Status:         string(updated.Status),
			PreviousStatus: string(from),
			Date:           updated.Date,
			StartTime:      updated.StartTime,
			OccurredAt:     s.timeProvider.Now(),
		})
	}

	return updated, applied, nil
}

// mapTransitionError переводит ошибку таблицы переходов в ошибку сервиса, сохраняя текст с парой статусов
func mapTransitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, domain.ErrActorNotAllowed):
		return fmt.Errorf("%w: %v", ErrActorNotAllowed, err)
	case errors.Is(err, domain.ErrTransitionTooEarly):
		return fmt.Errorf("%w: %v", ErrTransitionTooEarly, err)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

func toFilter(req *models.ListAppointmentsRequest) (domain.AppointmentFilter, error) {
	filter := domain.AppointmentFilter{
		ServiceID:   req.ServiceID,
		RecurringID: req.RecurringID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}

	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return filter, fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}

	if req.Status != nil {
		status, err := domain.ParseAppointmentStatus(*req.Status)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		filter.Statuses = []domain.AppointmentStatus{status}
	}

	return filter, nil
}

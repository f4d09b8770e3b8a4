package recurrence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	recurringRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/recurring"
	catalogClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
	apptModels "github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
	"github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
)

// Результат обработки даты серии (метка метрики)
const (
	OccurrenceCreated = "created"
	OccurrenceSkipped = "skipped"
)

var tracer = otel.Tracer("github.com/m04kA/SMC-SchedulingService/internal/service/recurrence")

const (
	defaultHorizonDays = 30
	defaultMaxPerRun   = 100
)

// Service сервис повторяющихся записей.
// Генерирует экземпляры серии через резервирование слотов и распространяет на них изменения статуса серии.
type Service struct {
	seriesRepo      SeriesRepository
	appointmentRepo AppointmentRepository
	catalogClient   CatalogClient
	reserver        Reserver
	statusUpdater   StatusUpdater
	locker          Locker
	dispatcher      Dispatcher
	metrics         Metrics
	timeProvider    TimeProvider
	logger          Logger

	horizonDays int
	maxPerRun   int
}

// NewService создает новый экземпляр сервиса серий
func NewService(
	seriesRepo SeriesRepository,
	appointmentRepo AppointmentRepository,
	catalogClient CatalogClient,
	reserver Reserver,
	statusUpdater StatusUpdater,
	locker Locker,
	dispatcher Dispatcher,
	metrics Metrics,
	timeProvider TimeProvider,
	horizonDays int,
	maxPerRun int,
	logger Logger,
) *Service {
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	if maxPerRun <= 0 {
		maxPerRun = defaultMaxPerRun
	}
	return &Service{
		seriesRepo:      seriesRepo,
		appointmentRepo: appointmentRepo,
		catalogClient:   catalogClient,
		reserver:        reserver,
		statusUpdater:   statusUpdater,
		locker:          locker,
		dispatcher:      dispatcher,
		metrics:         metrics,
		timeProvider:    timeProvider,
		logger:          logger,
		horizonDays:     horizonDays,
		maxPerRun:       maxPerRun,
	}
}

// CreateSeries создает серию и сразу генерирует записи на горизонт по умолчанию.
// Ошибка генерации не отменяет создание серии: она будет догенерирована плановым запуском.
func (s *Service) CreateSeries(ctx context.Context, req *models.CreateSeriesRequest) (*models.SeriesResponse, error) {
	s.logger.Info("CreateSeries: business=%d, service=%d, customer=%d, pattern=%s by %s=%d",
		req.BusinessID, req.ServiceID, req.CustomerID, req.Pattern, req.Actor.Role, req.Actor.UserID)

	// 1. Валидация входных данных
	if err := validateCreateRequest(req); err != nil {
		s.logger.Warn("CreateSeries: validation failed: %v", err)
		return nil, err
	}

	if !ownsNewSeries(req) {
		s.logger.Warn("CreateSeries: %s=%d cannot create series for business=%d customer=%d",
			req.Actor.Role, req.Actor.UserID, req.BusinessID, req.CustomerID)
		return nil, ErrAccessDenied
	}

	series, err := buildSeries(req)
	if err != nil {
		s.logger.Warn("CreateSeries: invalid recurrence: %v", err)
		return nil, err
	}

	today := domain.DateOnly(s.timeProvider.Now())
	if series.EndDate != nil && series.EndDate.Before(today) {
		s.logger.Warn("CreateSeries: endDate %s is in the past", series.EndDate.Format(domain.DateFormat))
		return nil, fmt.Errorf("%w: endDate is in the past", ErrInvalidRecurrence)
	}

	// 2. Проверяем услугу
	service, err := s.getService(ctx, "CreateSeries", req.ServiceID)
	if err != nil {
		return nil, err
	}
	if service.BusinessID != req.BusinessID {
		s.logger.Warn("CreateSeries: service id=%d belongs to business=%d, not %d",
			service.ID, service.BusinessID, req.BusinessID)
		return nil, ErrServiceNotFound
	}
	if err := checkServiceFits(series, service); err != nil {
		s.logger.Warn("CreateSeries: series does not fit service id=%d: %v", service.ID, err)
		return nil, err
	}

	endTime, err := series.StartTime.AddMinutes(service.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive end time: %v", ErrInternal, err)
	}
	series.EndTime = endTime
	series.Status = domain.RecurrenceActive

	// 3. Сохраняем серию
	created, err := s.seriesRepo.Create(ctx, series)
	if err != nil {
		s.logger.Error("CreateSeries: failed to create series: %v", err)
		return nil, fmt.Errorf("%w: failed to create series: %v", ErrInternal, err)
	}

	s.logger.Info("CreateSeries: successfully created series id=%d", created.ID)

	// 4. Генерируем ближайшие записи
	if _, err := s.materialize(ctx, created.ID, s.horizonDays); err != nil {
		s.logger.Warn("CreateSeries: initial materialization of series id=%d incomplete: %v", created.ID, err)
	}

	current, err := s.seriesRepo.GetByID(ctx, created.ID)
	if err != nil {
		s.logger.Error("CreateSeries: failed to reload series id=%d: %v", created.ID, err)
		return nil, fmt.Errorf("%w: failed to reload series: %v", ErrInternal, err)
	}

	return models.FromDomainSeries(current), nil
}

// GetByID получает серию по ID для бизнеса или клиента серии
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.SeriesResponse, error) {
	series, err := s.getSeries(ctx, "GetSeries", id)
	if err != nil {
		return nil, err
	}
	if !series.BelongsTo(actor) {
		s.logger.Warn("GetSeries: access denied for %s=%d to series id=%d", actor.Role, actor.UserID, id)
		return nil, ErrAccessDenied
	}
	return models.FromDomainSeries(series), nil
}

// List получает серии бизнеса с фильтрацией по статусу, клиенту и услуге
func (s *Service) List(ctx context.Context, req *models.ListSeriesRequest) (*models.SeriesListResponse, error) {
	s.logger.Info("ListSeries: fetching series for business=%d", req.BusinessID)

	if req.Actor.Role != domain.ActorBusiness || req.Actor.UserID != req.BusinessID {
		s.logger.Warn("ListSeries: access denied for %s=%d to business=%d", req.Actor.Role, req.Actor.UserID, req.BusinessID)
		return nil, ErrAccessDenied
	}

	filter := domain.RecurringFilter{
		BusinessID: &req.BusinessID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
	}
	if req.Status != nil {
		status, err := domain.ParseRecurrenceStatus(*req.Status)
		if err != nil {
			s.logger.Warn("ListSeries: invalid status filter %q", *req.Status)
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		filter.Status = &status
	}

	items, err := s.seriesRepo.GetWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ListSeries: repository error: %v", err)
		return nil, fmt.Errorf("%w: ListSeries - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("ListSeries: successfully fetched %d series", len(items))
	return models.FromDomainSeriesList(items), nil
}

// Materialize генерирует записи серии на horizonDays вперед (0 - горизонт по умолчанию).
// Доступно только бизнесу серии.
func (s *Service) Materialize(ctx context.Context, id int64, actor domain.Actor, horizonDays int) (*models.MaterializeResponse, error) {
	s.logger.Info("Materialize: series id=%d horizon=%d by %s=%d", id, horizonDays, actor.Role, actor.UserID)

	if horizonDays < 0 || horizonDays > domain.MaxHorizonDays {
		return nil, fmt.Errorf("%w: horizonDays must be between 0 and %d", ErrInvalidInput, domain.MaxHorizonDays)
	}
	if horizonDays == 0 {
		horizonDays = s.horizonDays
	}

	series, err := s.getSeries(ctx, "Materialize", id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.ActorBusiness || !series.BelongsTo(actor) {
		s.logger.Warn("Materialize: access denied for %s=%d to series id=%d", actor.Role, actor.UserID, id)
		return nil, ErrAccessDenied
	}

	return s.materialize(ctx, id, horizonDays)
}

// MaintainActiveSeries догенерирует записи всех активных серий на горизонт по умолчанию.
// Ошибка одной серии не останавливает обработку остальных.
func (s *Service) MaintainActiveSeries(ctx context.Context) error {
	status := domain.RecurrenceActive
	items, err := s.seriesRepo.GetWithFilter(ctx, domain.RecurringFilter{Status: &status})
	if err != nil {
		s.logger.Error("MaintainActiveSeries: failed to list active series: %v", err)
		return fmt.Errorf("%w: failed to list active series: %v", ErrInternal, err)
	}

	var created, skipped, failed int
	for _, series := range items {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("MaintainActiveSeries: interrupted after %d of %d series", created+skipped+failed, len(items))
			return err
		}

		result, err := s.materialize(ctx, series.ID, s.horizonDays)
		if result != nil {
			created += len(result.Created)
			skipped += len(result.Skipped)
		}
		if err != nil {
			if errors.Is(err, ErrSeriesNotActive) {
				continue
			}
			failed++
			s.logger.Warn("MaintainActiveSeries: series id=%d: %v", series.ID, err)
		}
	}

	s.logger.Info("MaintainActiveSeries: processed %d series, created=%d, skipped=%d, failed=%d",
		len(items), created, skipped, failed)
	return nil
}

// ApplyBulkStatus изменяет статус серии.
// Отмена серии отменяет её будущие активные записи, прошедшие и завершенные не меняются.
// Возобновление сразу догенерирует записи с первой необработанной даты.
func (s *Service) ApplyBulkStatus(ctx context.Context, id int64, req *models.UpdateSeriesStatusRequest) (*models.SeriesResponse, error) {
	s.logger.Info("ApplyBulkStatus: series id=%d to status=%s by %s=%d", id, req.Status, req.Actor.Role, req.Actor.UserID)

	to, err := domain.ParseRecurrenceStatus(req.Status)
	if err != nil {
		s.logger.Warn("ApplyBulkStatus: invalid status=%s for series id=%d", req.Status, id)
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	series, from, err := s.changeStatus(ctx, id, to, req.Actor)
	if err != nil {
		return nil, err
	}

	if from != to {
		s.dispatcher.Dispatch(ctx, domain.AppointmentEvent{
			Type:           domain.EventSeriesStatusChanged,
			SeriesID:       &series.ID,
			BusinessID:     series.BusinessID,
			CustomerID:     series.CustomerID,
			Status:         string(to),
			PreviousStatus: string(from),
			Date:           series.StartDate,
			StartTime:      series.StartTime,
			OccurredAt:     s.timeProvider.Now(),
		})
	}

	switch {
	case to == domain.RecurrenceCancelled:
		// серия уже отменена и не генерирует записи, поэтому каскад идет без блокировки серии
		cancelled, err := s.cascadeCancel(ctx, series)
		if err != nil {
			return nil, err
		}
		s.logger.Info("ApplyBulkStatus: cancelled %d upcoming appointments of series id=%d", cancelled, id)

	case from == domain.RecurrencePaused && to == domain.RecurrenceActive:
		if _, err := s.materialize(ctx, id, s.horizonDays); err != nil {
			s.logger.Warn("ApplyBulkStatus: materialization after resume of series id=%d incomplete: %v", id, err)
		}
	}

	current, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("ApplyBulkStatus: failed to reload series id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: failed to reload series: %v", ErrInternal, err)
	}

	return models.FromDomainSeries(current), nil
}

// changeStatus меняет статус под блокировкой серии, чтобы не пересечься с генерацией
func (s *Service) changeStatus(
	ctx context.Context,
	id int64,
	to domain.RecurrenceStatus,
	actor domain.Actor,
) (*domain.RecurringAppointment, domain.RecurrenceStatus, error) {
	unlock, err := s.locker.Lock(ctx, domain.SeriesKey(id))
	if err != nil {
		s.logger.Error("ApplyBulkStatus: failed to acquire lock for series id=%d: %v", id, err)
		return nil, "", fmt.Errorf("%w: failed to acquire lock: %v", ErrInternal, err)
	}
	defer unlock()

	series, err := s.getSeries(ctx, "ApplyBulkStatus", id)
	if err != nil {
		return nil, "", err
	}

	if !series.BelongsTo(actor) {
		s.logger.Warn("ApplyBulkStatus: access denied for %s=%d to series id=%d", actor.Role, actor.UserID, id)
		return nil, "", ErrAccessDenied
	}
	if to == domain.RecurrenceCompleted && actor.Role != domain.ActorBusiness {
		s.logger.Warn("ApplyBulkStatus: %s=%d cannot complete series id=%d", actor.Role, actor.UserID, id)
		return nil, "", ErrAccessDenied
	}

	from := series.Status
	if from == domain.RecurrenceCancelled && to == domain.RecurrenceCancelled {
		// повторная отмена только догоняет записи, которые не удалось отменить в прошлый раз
		s.logger.Info("ApplyBulkStatus: series id=%d is already cancelled, repeating cascade", id)
		return series, from, nil
	}
	if err := domain.ValidateSeriesTransition(from, to); err != nil {
		s.logger.Warn("ApplyBulkStatus: series id=%d: %v", id, err)
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	if err := s.seriesRepo.UpdateStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, recurringRepo.ErrStatusConflict) {
			s.logger.Warn("ApplyBulkStatus: series id=%d changed concurrently", id)
			return nil, "", fmt.Errorf("%w: series status changed concurrently", ErrInvalidTransition)
		}
		s.logger.Error("ApplyBulkStatus: repository error for series id=%d: %v", id, err)
		return nil, "", fmt.Errorf("%w: ApplyBulkStatus - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("ApplyBulkStatus: series id=%d %s -> %s", id, from, to)

	return series, from, nil
}

// cascadeCancel отменяет активные записи серии, которые еще не начались.
// Отмена идет через сервис записей от имени бизнеса. Записи, изменившиеся параллельно, пропускаются,
// остальные ошибки возвращаются, и повторная отмена серии догоняет неотмененные записи.
func (s *Service) cascadeCancel(ctx context.Context, series *domain.RecurringAppointment) (int, error) {
	if len(series.AppointmentIDs) == 0 {
		return 0, nil
	}

	items, err := s.appointmentRepo.GetByIDs(ctx, series.AppointmentIDs)
	if err != nil {
		s.logger.Error("ApplyBulkStatus: failed to load appointments of series id=%d: %v", series.ID, err)
		return 0, fmt.Errorf("%w: failed to load appointments of series: %v", ErrInternal, err)
	}

	now := s.timeProvider.Now()

	var cancelled, failed int
	for _, appt := range items {
		if !appt.IsActive() {
			continue
		}
		startsAt, err := appt.StartsAt(now.Location())
		if err != nil {
			s.logger.Warn("ApplyBulkStatus: appointment id=%d has invalid start time: %v", appt.ID, err)
			continue
		}
		if !startsAt.After(now) {
			continue
		}

		if err := s.cancelInstance(ctx, series, appt.ID); err != nil {
			if isStaleInstance(err) {
				s.logger.Warn("ApplyBulkStatus: appointment id=%d of series id=%d changed concurrently: %v", appt.ID, series.ID, err)
				continue
			}
			s.logger.Error("ApplyBulkStatus: failed to cancel appointment id=%d of series id=%d: %v", appt.ID, series.ID, err)
			failed++
			continue
		}
		cancelled++
	}

	if failed > 0 {
		return cancelled, fmt.Errorf("%w: failed to cancel %d appointments of series id=%d", ErrInternal, failed, series.ID)
	}
	return cancelled, nil
}

func (s *Service) cancelInstance(ctx context.Context, series *domain.RecurringAppointment, appointmentID int64) error {
	_, err := s.statusUpdater.UpdateStatus(ctx, appointmentID, &apptModels.UpdateStatusRequest{
		Status: string(domain.StatusCancelled),
		Actor:  domain.Actor{Role: domain.ActorBusiness, UserID: series.BusinessID},
	})
	return err
}

// materialize создает записи серии на даты после курсора в пределах горизонта.
// Занятые и недоступные даты пропускаются, курсор сдвигается и по ним.
// При отмене контекста уже созданные записи остаются в серии.
func (s *Service) materialize(ctx context.Context, id int64, horizonDays int) (*models.MaterializeResponse, error) {
	result := &models.MaterializeResponse{SeriesID: id, Created: []int64{}, Skipped: []string{}}

	ctx, span := tracer.Start(ctx, "RecurrenceExpander.Materialize", trace.WithAttributes(
		attribute.Int64("series.id", id),
		attribute.Int("horizon.days", horizonDays),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("occurrences.created", len(result.Created)),
			attribute.Int("occurrences.skipped", len(result.Skipped)),
		)
		span.End()
	}()

	unlock, err := s.locker.Lock(ctx, domain.SeriesKey(id))
	if err != nil {
		s.logger.Error("Materialize: failed to acquire lock for series id=%d: %v", id, err)
		return result, fmt.Errorf("%w: failed to acquire lock: %v", ErrInternal, err)
	}
	defer unlock()

	series, err := s.getSeries(ctx, "Materialize", id)
	if err != nil {
		return result, err
	}
	if series.Status != domain.RecurrenceActive {
		return result, fmt.Errorf("%w: series id=%d is %s", ErrSeriesNotActive, id, series.Status)
	}

	service, err := s.getService(ctx, "Materialize", series.ServiceID)
	if err != nil {
		return result, err
	}
	if !service.IsActive {
		s.logger.Warn("Materialize: service id=%d of series id=%d is disabled", service.ID, id)
		return result, ErrServiceDisabled
	}

	today := domain.DateOnly(s.timeProvider.Now())
	dates := series.OccurrencesBetween(nextDate(series.MaterializedThrough, today), today.AddDate(0, 0, horizonDays), s.maxPerRun)

	// учет в серии не должен обрываться вместе с запросом: запись уже создана
	bookkeeping := context.WithoutCancel(ctx)

	seriesID := series.ID
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Materialize: series id=%d interrupted after %d created: %v", id, len(result.Created), err)
			s.notifyMaterialized(ctx, series, result)
			return result, err
		}

		appt, err := s.reserver.Reserve(ctx, &create_appointment.ReserveRequest{
			Service:     service,
			CustomerID:  series.CustomerID,
			Date:        date,
			StartTime:   series.StartTime,
			Notes:       series.Notes,
			RecurringID: &seriesID,
		})
		if errors.Is(err, create_appointment.ErrSlotNoLongerAvailable) {
			// слот может занимать запись этой же серии, не попавшая в список прошлым прогоном
			if orphan := s.findUnlinked(bookkeeping, series, date); orphan != nil {
				appt, err = orphan, nil
				s.logger.Warn("Materialize: series id=%d adopts unlinked appointment id=%d on %s",
					id, orphan.ID, date.Format(domain.DateFormat))
			}
		}
		if err != nil {
			if isSkippable(err) {
				s.logger.Warn("Materialize: series id=%d skipped %s: %v", id, date.Format(domain.DateFormat), err)
				if err := s.seriesRepo.AdvanceCursor(bookkeeping, id, date); err != nil {
					s.logger.Error("Materialize: failed to advance cursor of series id=%d: %v", id, err)
					s.notifyMaterialized(ctx, series, result)
					return result, fmt.Errorf("%w: failed to advance cursor: %v", ErrInternal, err)
				}
				result.Skipped = append(result.Skipped, date.Format(domain.DateFormat))
				s.metrics.IncOccurrence(OccurrenceSkipped)
				continue
			}

			s.notifyMaterialized(ctx, series, result)
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.logger.Warn("Materialize: series id=%d interrupted after %d created: %v", id, len(result.Created), ctxErr)
				return result, ctxErr
			}
			s.logger.Error("Materialize: series id=%d failed on %s: %v", id, date.Format(domain.DateFormat), err)
			return result, fmt.Errorf("%w: failed to reserve %s: %v", ErrInternal, date.Format(domain.DateFormat), err)
		}

		if err := s.seriesRepo.AppendAppointment(bookkeeping, id, appt.ID, date); err != nil {
			s.logger.Error("Materialize: appointment id=%d created but not linked to series id=%d: %v", appt.ID, id, err)
			s.releaseUnlinked(bookkeeping, series, appt.ID)
			s.notifyMaterialized(ctx, series, result)
			return result, fmt.Errorf("%w: failed to link appointment: %v", ErrInternal, err)
		}
		result.Created = append(result.Created, appt.ID)
		s.metrics.IncOccurrence(OccurrenceCreated)
	}

	s.completeIfExhausted(bookkeeping, id, today)
	s.notifyMaterialized(ctx, series, result)

	s.logger.Info("Materialize: series id=%d created=%d skipped=%d", id, len(result.Created), len(result.Skipped))
	return result, nil
}

// releaseUnlinked отменяет запись, которую не удалось добавить в серию, чтобы дата досталась следующему прогону.
// Если отмена не удалась, запись будет подхвачена следующим прогоном через findUnlinked.
func (s *Service) releaseUnlinked(ctx context.Context, series *domain.RecurringAppointment, appointmentID int64) {
	if err := s.cancelInstance(ctx, series, appointmentID); err != nil {
		s.logger.Error("Materialize: failed to cancel unlinked appointment id=%d of series id=%d: %v", appointmentID, series.ID, err)
		return
	}
	s.logger.Warn("Materialize: unlinked appointment id=%d of series id=%d cancelled", appointmentID, series.ID)
}

// findUnlinked ищет активную запись серии на дату, отсутствующую в списке записей серии
func (s *Service) findUnlinked(ctx context.Context, series *domain.RecurringAppointment, date time.Time) *domain.Appointment {
	items, err := s.appointmentRepo.GetWithFilter(ctx, domain.AppointmentFilter{
		RecurringID: &series.ID,
		StartDate:   &date,
		EndDate:     &date,
		Statuses:    []domain.AppointmentStatus{domain.StatusPending, domain.StatusConfirmed},
	})
	if err != nil {
		s.logger.Warn("Materialize: failed to look up appointments of series id=%d on %s: %v",
			series.ID, date.Format(domain.DateFormat), err)
		return nil
	}

	for _, appt := range items {
		if appt.StartTime == series.StartTime && !slices.Contains(series.AppointmentIDs, appt.ID) {
			return appt
		}
	}
	return nil
}

// completeIfExhausted завершает серию, когда её дата окончания прошла и все даты обработаны.
// До этого серия остается активной, чтобы её отмена доходила до будущих записей.
func (s *Service) completeIfExhausted(ctx context.Context, id int64, today time.Time) {
	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Materialize: failed to reload series id=%d: %v", id, err)
		return
	}
	if series.EndDate == nil || series.Status != domain.RecurrenceActive || !today.After(*series.EndDate) {
		return
	}

	if len(series.OccurrencesBetween(nextDate(series.MaterializedThrough, today), *series.EndDate, 1)) > 0 {
		return
	}

	if err := s.seriesRepo.UpdateStatus(ctx, id, domain.RecurrenceActive, domain.RecurrenceCompleted); err != nil {
		if !errors.Is(err, recurringRepo.ErrStatusConflict) {
			s.logger.Error("Materialize: failed to complete series id=%d: %v", id, err)
		}
		return
	}

	s.logger.Info("Materialize: series id=%d reached its end date and is completed", id)
	s.dispatcher.Dispatch(ctx, domain.AppointmentEvent{
		Type:           domain.EventSeriesStatusChanged,
		SeriesID:       &series.ID,
		BusinessID:     series.BusinessID,
		CustomerID:     series.CustomerID,
		Status:         string(domain.RecurrenceCompleted),
		PreviousStatus: string(domain.RecurrenceActive),
		Date:           *series.EndDate,
		StartTime:      series.StartTime,
		OccurredAt:     s.timeProvider.Now(),
	})
}

// notifyMaterialized отправляет одно событие на все записи, созданные за прогон
func (s *Service) notifyMaterialized(ctx context.Context, series *domain.RecurringAppointment, result *models.MaterializeResponse) {
	if len(result.Created) == 0 {
		return
	}
	s.dispatcher.Dispatch(ctx, domain.AppointmentEvent{
		Type:           domain.EventSeriesMaterialized,
		SeriesID:       &series.ID,
		BusinessID:     series.BusinessID,
		CustomerID:     series.CustomerID,
		Status:         string(series.Status),
		Date:           series.StartDate,
		StartTime:      series.StartTime,
		AppointmentIDs: append([]int64{}, result.Created...),
		OccurredAt:     s.timeProvider.Now(),
	})
}

func (s *Service) getSeries(ctx context.Context, op string, id int64) (*domain.RecurringAppointment, error) {
	series, err := s.seriesRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, recurringRepo.ErrSeriesNotFound) {
			s.logger.Warn("%s: series id=%d not found", op, id)
			return nil, ErrSeriesNotFound
		}
		s.logger.Error("%s: repository error for series id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return series, nil
}

func (s *Service) getService(ctx context.Context, op string, serviceID int64) (*domain.Service, error) {
	service, err := s.catalogClient.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			s.logger.Warn("%s: service id=%d not found", op, serviceID)
			return nil, ErrServiceNotFound
		}
		s.logger.Error("%s: failed to get service id=%d: %v", op, serviceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	return service, nil
}

// nextDate возвращает первую необработанную дату: день после курсора, но не раньше сегодняшнего
func nextDate(cursor *time.Time, today time.Time) time.Time {
	if cursor != nil && !cursor.Before(today) {
		return domain.DateOnly(cursor.AddDate(0, 0, 1))
	}
	return today
}

// isStaleInstance ошибки отмены записи, которая уже не активна (изменена параллельно)
func isStaleInstance(err error) bool {
	return errors.Is(err, appointments.ErrInvalidTransition) ||
		errors.Is(err, appointments.ErrStatusChanged) ||
		errors.Is(err, appointments.ErrAppointmentNotFound)
}

// isSkippable ошибки резервирования, при которых дата пропускается, а генерация продолжается
func isSkippable(err error) bool {
	return errors.Is(err, create_appointment.ErrSlotNoLongerAvailable) ||
		errors.Is(err, create_appointment.ErrInvalidDay) ||
		errors.Is(err, create_appointment.ErrInvalidTimeSlot)
}

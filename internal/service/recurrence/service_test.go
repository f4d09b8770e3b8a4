package recurrence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/lock"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	catalogClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/payment"
	"github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
	apptModels "github.com/m04kA/SMC-SchedulingService/internal/service/appointments/models"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
	"github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
	"github.com/m04kA/SMC-SchedulingService/pkg/clock"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/ptr"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
)

type stubCatalog struct {
	services map[int64]*domain.Service
}

func (s *stubCatalog) GetService(_ context.Context, id int64) (*domain.Service, error) {
	svc, ok := s.services[id]
	if !ok {
		return nil, catalogClient.ErrServiceNotFound
	}
	return svc, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.AppointmentEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event domain.AppointmentEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) ofType(t domain.EventType) []domain.AppointmentEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.AppointmentEvent
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) IncAppointmentCreated(string, string) {}
func (nopMetrics) IncBookingConflict() {}
func (nopMetrics) IncStatusTransition(string, string, string) {}
func (nopMetrics) IncOccurrence(string) {}

// cancellingReserver отменяет контекст генерации после заданного числа созданных записей
type cancellingReserver struct {
	inner  Reserver
	after  int
	cancel context.CancelFunc
	count  int
}

func (r *cancellingReserver) Reserve(ctx context.Context, req *create_appointment.ReserveRequest) (*domain.Appointment, error) {
	appt, err := r.inner.Reserve(ctx, req)
	if err == nil {
		r.count++
		if r.count == r.after {
			r.cancel()
		}
	}
	return appt, err
}

var errStorage = errors.New("connection reset by peer")

// flakySeries отдает ошибку на первые failAppends добавлений записи в серию
type flakySeries struct {
	*memory.RecurringRepository
	failAppends int
}

func (r *flakySeries) AppendAppointment(ctx context.Context, id, appointmentID int64, date time.Time) error {
	if r.failAppends > 0 {
		r.failAppends--
		return errStorage
	}
	return r.RecurringRepository.AppendAppointment(ctx, id, appointmentID, date)
}

// flakyAppointments отдает ошибку на чтение записей серии, пока выставлен failGetByIDs
type flakyAppointments struct {
	*memory.AppointmentRepository
	failGetByIDs bool
}

func (r *flakyAppointments) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Appointment, error) {
	if r.failGetByIDs {
		return nil, errStorage
	}
	return r.AppointmentRepository.GetByIDs(ctx, ids)
}

// flakyUpdater отдает внутреннюю ошибку при изменении статуса выбранных записей
type flakyUpdater struct {
	inner   StatusUpdater
	failAll bool
	failIDs map[int64]bool
}

func (u *flakyUpdater) UpdateStatus(ctx context.Context, id int64, req *apptModels.UpdateStatusRequest) (*apptModels.AppointmentResponse, error) {
	if u.failAll || u.failIDs[id] {
		return nil, fmt.Errorf("%w: %v", appointments.ErrInternal, errStorage)
	}
	return u.inner.UpdateStatus(ctx, id, req)
}

const (
	businessID   = int64(1)
	customerID   = int64(7)
	everyDaySvc  = int64(2)
	weekdaysSvc  = int64(3)
	otherBizSvc  = int64(4)
	defaultHoriz = 30
)

var (
	business = domain.Actor{Role: domain.ActorBusiness, UserID: businessID}
	customer = domain.Actor{Role: domain.ActorCustomer, UserID: customerID}

	// 2024-01-01 понедельник
	newYear = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func catalog() *stubCatalog {
	allWeek := domain.Availability{
		Days: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
		},
		StartTime: "09:00",
		EndTime:   "12:00",
	}
	weekdays := domain.Availability{
		Days:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		StartTime: "09:00",
		EndTime:   "12:00",
	}
	return &stubCatalog{services: map[int64]*domain.Service{
		everyDaySvc: {ID: everyDaySvc, BusinessID: businessID, Name: "Training", DurationMinutes: 60, Availability: allWeek, IsActive: true},
		weekdaysSvc: {ID: weekdaysSvc, BusinessID: businessID, Name: "Lesson", DurationMinutes: 60, Availability: weekdays, IsActive: true},
		otherBizSvc: {ID: otherBizSvc, BusinessID: 99, Name: "Elsewhere", DurationMinutes: 60, Availability: allWeek, IsActive: true},
	}}
}

type fixture struct {
	svc          *Service
	series       *memory.RecurringRepository
	appointments *memory.AppointmentRepository
	apptService  *appointments.Service
	booking      *create_appointment.UseCase
	catalog      *stubCatalog
	locker       *lock.Local
	dispatcher   *recordingDispatcher
	clock        *clock.Fixed
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		series:       memory.NewRecurringRepository(),
		appointments: memory.NewAppointmentRepository(),
		catalog:      catalog(),
		locker:       lock.NewLocal(),
		dispatcher:   &recordingDispatcher{},
		clock:        clock.NewFixed(now),
	}
	f.booking = create_appointment.NewUseCase(
		f.appointments,
		f.catalog,
		f.locker,
		txmanager.Noop{},
		payment.NewNoop(logger.Discard()),
		f.dispatcher,
		nopMetrics{},
		f.clock,
		0,
		logger.Discard(),
	)
	f.apptService = appointments.NewService(f.appointments, txmanager.Noop{}, f.dispatcher, nopMetrics{}, f.clock, logger.Discard())
	f.svc = f.newService(f.booking, defaultHoriz)
	return f
}

func (f *fixture) newService(reserver Reserver, horizonDays int) *Service {
	return f.build(f.series, f.appointments, reserver, f.apptService, horizonDays)
}

func (f *fixture) build(
	series SeriesRepository,
	appts AppointmentRepository,
	reserver Reserver,
	updater StatusUpdater,
	horizonDays int,
) *Service {
	return NewService(
		series,
		appts,
		f.catalog,
		reserver,
		updater,
		f.locker,
		f.dispatcher,
		nopMetrics{},
		f.clock,
		horizonDays,
		100,
		logger.Discard(),
	)
}

func weekly(day time.Weekday, start time.Time, end *time.Time) *models.CreateSeriesRequest {
	return &models.CreateSeriesRequest{
		Actor:      customer,
		BusinessID: businessID,
		ServiceID:  everyDaySvc,
		CustomerID: customerID,
		Pattern:    "weekly",
		DayOfWeek:  ptr.Ptr(int(day)),
		StartDate:  start,
		EndDate:    end,
		StartTime:  "10:00",
	}
}

func (f *fixture) instanceDates(t *testing.T, seriesID int64) []string {
	t.Helper()
	series, err := f.series.GetByID(context.Background(), seriesID)
	require.NoError(t, err)
	appts, err := f.appointments.GetByIDs(context.Background(), series.AppointmentIDs)
	require.NoError(t, err)

	out := make([]string, 0, len(appts))
	for _, a := range appts {
		require.NotNil(t, a.RecurringID)
		assert.Equal(t, seriesID, *a.RecurringID)
		out = append(out, a.Date.Format(domain.DateFormat))
	}
	return out
}

func (f *fixture) statuses(t *testing.T, seriesID int64) []domain.AppointmentStatus {
	t.Helper()
	series, err := f.series.GetByID(context.Background(), seriesID)
	require.NoError(t, err)
	appts, err := f.appointments.GetByIDs(context.Background(), series.AppointmentIDs)
	require.NoError(t, err)

	out := make([]domain.AppointmentStatus, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.Status)
	}
	return out
}

func TestService_CreateSeries_WeeklyProducesEveryWednesday(t *testing.T) {
	f := newFixture(t, date(2023, 12, 31))
	f.svc.horizonDays = 60

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), ptr.Ptr(date(2024, 1, 31))))

	require.NoError(t, err)
	assert.Equal(t, "10:00", resp.StartTime)
	assert.Equal(t, "11:00", resp.EndTime)
	assert.Len(t, resp.AppointmentIDs, 5)
	assert.Equal(t,
		[]string{"2024-01-03", "2024-01-10", "2024-01-17", "2024-01-24", "2024-01-31"},
		f.instanceDates(t, resp.ID),
	)
	// все даты обработаны, но записи еще впереди
	assert.Equal(t, string(domain.RecurrenceActive), resp.Status)

	materialized := f.dispatcher.ofType(domain.EventSeriesMaterialized)
	require.Len(t, materialized, 1)
	assert.Equal(t, resp.AppointmentIDs, materialized[0].AppointmentIDs)
	assert.Empty(t, f.dispatcher.ofType(domain.EventAppointmentCreated))
}

func TestService_Materialize_IsIdempotent(t *testing.T) {
	f := newFixture(t, newYear)

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	require.Len(t, resp.AppointmentIDs, 5)

	again, err := f.svc.Materialize(context.Background(), resp.ID, business, 0)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Empty(t, again.Skipped)

	require.NoError(t, f.svc.MaintainActiveSeries(context.Background()))

	current, err := f.svc.GetByID(context.Background(), resp.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, resp.AppointmentIDs, current.AppointmentIDs)
	assert.Equal(t, string(domain.RecurrenceActive), current.Status)
}

func TestService_Materialize_ExtendsWithTime(t *testing.T) {
	f := newFixture(t, newYear)

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)

	f.clock.Set(date(2024, 1, 15))
	require.NoError(t, f.svc.MaintainActiveSeries(context.Background()))

	assert.Equal(t,
		[]string{"2024-01-03", "2024-01-10", "2024-01-17", "2024-01-24", "2024-01-31", "2024-02-07", "2024-02-14"},
		f.instanceDates(t, resp.ID),
	)
}

func TestService_ApplyBulkStatus_CancelPreservesHistory(t *testing.T) {
	f := newFixture(t, newYear)

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	require.Len(t, resp.AppointmentIDs, 5)

	// первые три прошли и завершены
	f.clock.Set(time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))
	for _, id := range resp.AppointmentIDs[:3] {
		_, err := f.apptService.UpdateStatus(context.Background(), id, &apptModels.UpdateStatusRequest{Status: "completed", Actor: business})
		require.NoError(t, err)
	}

	updated, err := f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: "cancelled", Actor: customer})

	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrenceCancelled), updated.Status)
	assert.Equal(t, resp.AppointmentIDs, updated.AppointmentIDs)
	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusCompleted, domain.StatusCompleted, domain.StatusCompleted,
		domain.StatusCancelled, domain.StatusCancelled,
	}, f.statuses(t, resp.ID))

	changed := f.dispatcher.ofType(domain.EventSeriesStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, string(domain.RecurrenceActive), changed[0].PreviousStatus)
}

func TestService_ApplyBulkStatus_CancelLeavesStartedInstance(t *testing.T) {
	f := newFixture(t, newYear)

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)

	// 2024-01-10 10:30: запись этого дня уже идет
	f.clock.Set(time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC))

	_, err = f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: "cancelled", Actor: business})
	require.NoError(t, err)

	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusConfirmed, domain.StatusConfirmed,
		domain.StatusCancelled, domain.StatusCancelled, domain.StatusCancelled,
	}, f.statuses(t, resp.ID))
}

func TestService_ApplyBulkStatus_PauseAndResume(t *testing.T) {
	f := newFixture(t, newYear)
	f.svc.horizonDays = 14

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01-03", "2024-01-10"}, f.instanceDates(t, resp.ID))

	paused, err := f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: "paused", Actor: customer})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrencePaused), paused.Status)
	assert.Equal(t, []domain.AppointmentStatus{domain.StatusConfirmed, domain.StatusConfirmed}, f.statuses(t, resp.ID))

	f.clock.Set(date(2024, 1, 15))
	require.NoError(t, f.svc.MaintainActiveSeries(context.Background()))
	_, err = f.svc.Materialize(context.Background(), resp.ID, business, 0)
	require.ErrorIs(t, err, ErrSeriesNotActive)
	assert.Len(t, f.instanceDates(t, resp.ID), 2)

	resumed, err := f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: "active", Actor: customer})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrenceActive), resumed.Status)
	assert.Equal(t, []string{"2024-01-03", "2024-01-10", "2024-01-17", "2024-01-24"}, f.instanceDates(t, resp.ID))
}

func TestService_Materialize_SkipsConflictingDate(t *testing.T) {
	f := newFixture(t, newYear)

	_, err := f.appointments.Create(context.Background(), &domain.Appointment{
		ServiceID: everyDaySvc, BusinessID: businessID, CustomerID: 42,
		Date:      date(2024, 1, 10),
		StartTime: "10:00", EndTime: "11:00",
		Status:    domain.StatusConfirmed,
	})
	require.NoError(t, err)

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-03", "2024-01-17", "2024-01-24", "2024-01-31"}, f.instanceDates(t, resp.ID))
	require.NotNil(t, resp.MaterializedThrough)
	assert.Equal(t, "2024-01-31", *resp.MaterializedThrough)

	// пропущенная дата не создается повторно
	again, err := f.svc.Materialize(context.Background(), resp.ID, business, 0)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
}

func TestService_Materialize_CancelKeepsPartialProgress(t *testing.T) {
	f := newFixture(t, newYear)
	f.svc.horizonDays = 14

	// первая дата серии за горизонтом: при создании ничего не генерируется
	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 3, 1), nil))
	require.NoError(t, err)
	require.Empty(t, resp.AppointmentIDs)

	f.clock.Set(date(2024, 3, 1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupted := f.newService(&cancellingReserver{inner: f.booking, after: 2, cancel: cancel}, 14)

	result, err := interrupted.Materialize(ctx, resp.ID, business, 30)

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.Created, 2)
	assert.Equal(t, []string{"2024-03-06", "2024-03-13"}, f.instanceDates(t, resp.ID))

	result, err = f.svc.Materialize(context.Background(), resp.ID, business, 30)
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Equal(t, []string{"2024-03-06", "2024-03-13", "2024-03-20", "2024-03-27"}, f.instanceDates(t, resp.ID))
}

func TestService_CreateSeries_MonthlySkipsShortMonths(t *testing.T) {
	f := newFixture(t, date(2023, 12, 31))
	f.svc.horizonDays = 240

	resp, err := f.svc.CreateSeries(context.Background(), &models.CreateSeriesRequest{
		Actor:      business,
		BusinessID: businessID,
		ServiceID:  everyDaySvc,
		CustomerID: customerID,
		Pattern:    "monthly",
		DayOfMonth: ptr.Ptr(31),
		StartDate:  date(2024, 1, 1),
		EndDate:    ptr.Ptr(date(2024, 7, 31)),
		StartTime:  "09:00",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-31", "2024-03-31", "2024-05-31", "2024-07-31"}, f.instanceDates(t, resp.ID))
	assert.Equal(t, string(domain.RecurrenceActive), resp.Status)
}

func TestService_CreateSeries_DailySkipsDaysOff(t *testing.T) {
	f := newFixture(t, newYear)

	resp, err := f.svc.CreateSeries(context.Background(), &models.CreateSeriesRequest{
		Actor:      customer,
		BusinessID: businessID,
		ServiceID:  weekdaysSvc,
		CustomerID: customerID,
		Pattern:    "daily",
		StartDate:  date(2024, 1, 5),
		EndDate:    ptr.Ptr(date(2024, 1, 9)),
		StartTime:  "11:00",
	})

	require.NoError(t, err)
	// 6 и 7 января - выходные услуги
	assert.Equal(t, []string{"2024-01-05", "2024-01-08", "2024-01-09"}, f.instanceDates(t, resp.ID))
	assert.Equal(t, string(domain.RecurrenceActive), resp.Status)
}

func TestService_Maintain_CompletesSeriesAfterEndDate(t *testing.T) {
	f := newFixture(t, date(2023, 12, 31))
	f.svc.horizonDays = 60

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), ptr.Ptr(date(2024, 1, 31))))
	require.NoError(t, err)

	// в день окончания последняя запись еще впереди
	f.clock.Set(date(2024, 1, 31))
	require.NoError(t, f.svc.MaintainActiveSeries(context.Background()))
	current, err := f.svc.GetByID(context.Background(), resp.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrenceActive), current.Status)

	f.clock.Set(date(2024, 2, 1))
	require.NoError(t, f.svc.MaintainActiveSeries(context.Background()))
	current, err = f.svc.GetByID(context.Background(), resp.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrenceCompleted), current.Status)
	assert.Equal(t, resp.AppointmentIDs, current.AppointmentIDs)

	changed := f.dispatcher.ofType(domain.EventSeriesStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, string(domain.RecurrenceCompleted), changed[0].Status)
}

func TestService_ApplyBulkStatus_CancelFullyMaterializedSeries(t *testing.T) {
	f := newFixture(t, date(2023, 12, 31))
	f.svc.horizonDays = 60

	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), ptr.Ptr(date(2024, 1, 31))))
	require.NoError(t, err)
	require.Len(t, resp.AppointmentIDs, 5)

	updated, err := f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: "cancelled", Actor: customer})

	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrenceCancelled), updated.Status)
	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusCancelled, domain.StatusCancelled, domain.StatusCancelled,
		domain.StatusCancelled, domain.StatusCancelled,
	}, f.statuses(t, resp.ID))
}

func TestService_CreateSeries_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *models.CreateSeriesRequest)
		wantErr error
	}{
		{name: "missing day of week", mutate: func(r *models.CreateSeriesRequest) { r.DayOfWeek = nil }, wantErr: ErrInvalidRecurrence},
		{name: "day of week out of range", mutate: func(r *models.CreateSeriesRequest) { r.DayOfWeek = ptr.Ptr(7) }, wantErr: ErrInvalidRecurrence},
		{name: "unknown pattern", mutate: func(r *models.CreateSeriesRequest) { r.Pattern = "yearly" }, wantErr: ErrInvalidRecurrence},
		{name: "monthly without day", mutate: func(r *models.CreateSeriesRequest) { r.Pattern = "monthly" }, wantErr: ErrInvalidRecurrence},
		{name: "end before start", mutate: func(r *models.CreateSeriesRequest) { r.EndDate = ptr.Ptr(date(2024, 1, 2)); r.StartDate = date(2024, 1, 5) }, wantErr: ErrInvalidRecurrence},
		{name: "end in the past", mutate: func(r *models.CreateSeriesRequest) {
			r.StartDate = date(2023, 12, 1)
			r.EndDate = ptr.Ptr(date(2023, 12, 20))
		}, wantErr: ErrInvalidRecurrence},
		{name: "missing start date", mutate: func(r *models.CreateSeriesRequest) { r.StartDate = time.Time{} }, wantErr: ErrInvalidRecurrence},
		{name: "bad start time", mutate: func(r *models.CreateSeriesRequest) { r.StartTime = "25:00" }, wantErr: ErrInvalidInput},
		{name: "off the slot ladder", mutate: func(r *models.CreateSeriesRequest) { r.StartTime = "10:30" }, wantErr: ErrInvalidTimeSlot},
		{name: "day not offered", mutate: func(r *models.CreateSeriesRequest) {
			r.ServiceID = weekdaysSvc
			r.DayOfWeek = ptr.Ptr(int(time.Sunday))
		}, wantErr: ErrInvalidDay},
		{name: "service of another business", mutate: func(r *models.CreateSeriesRequest) { r.ServiceID = otherBizSvc }, wantErr: ErrServiceNotFound},
		{name: "unknown service", mutate: func(r *models.CreateSeriesRequest) { r.ServiceID = 404 }, wantErr: ErrServiceNotFound},
		{name: "for another customer", mutate: func(r *models.CreateSeriesRequest) { r.CustomerID = 8 }, wantErr: ErrAccessDenied},
		{name: "for another business", mutate: func(r *models.CreateSeriesRequest) {
			r.Actor = domain.Actor{Role: domain.ActorBusiness, UserID: 99}
		}, wantErr: ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newYear)
			req := weekly(time.Wednesday, date(2024, 1, 1), nil)
			tt.mutate(req)

			_, err := f.svc.CreateSeries(context.Background(), req)

			require.ErrorIs(t, err, tt.wantErr)
			items, err := f.series.GetWithFilter(context.Background(), domain.RecurringFilter{})
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestService_ApplyBulkStatus_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   string
		status  string
		actor   domain.Actor
		wantErr error
	}{
		{name: "unknown status", status: "archived", actor: business, wantErr: ErrInvalidStatus},
		{name: "cancelled is final", setup: "cancelled", status: "active", actor: business, wantErr: ErrInvalidTransition},
		{name: "resume active series", status: "active", actor: business, wantErr: ErrInvalidTransition},
		{name: "paused cannot complete", setup: "paused", status: "completed", actor: business, wantErr: ErrInvalidTransition},
		{name: "customer cannot complete", status: "completed", actor: customer, wantErr: ErrAccessDenied},
		{name: "other customer", status: "paused", actor: domain.Actor{Role: domain.ActorCustomer, UserID: 8}, wantErr: ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newYear)
			resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
			require.NoError(t, err)
			if tt.setup != "" {
				_, err := f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: tt.setup, Actor: business})
				require.NoError(t, err)
			}

			_, err = f.svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: tt.status, Actor: tt.actor})

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_ApplyBulkStatus_NotFound(t *testing.T) {
	f := newFixture(t, newYear)

	_, err := f.svc.ApplyBulkStatus(context.Background(), 404, &models.UpdateSeriesStatusRequest{Status: "paused", Actor: business})

	require.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestService_Materialize_Rejections(t *testing.T) {
	f := newFixture(t, newYear)
	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)

	_, err = f.svc.Materialize(context.Background(), resp.ID, customer, 0)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.Materialize(context.Background(), resp.ID, business, domain.MaxHorizonDays+1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Materialize(context.Background(), 404, business, 0)
	require.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestService_List(t *testing.T) {
	f := newFixture(t, newYear)

	first, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	second, err := f.svc.CreateSeries(context.Background(), weekly(time.Thursday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	_, err = f.svc.ApplyBulkStatus(context.Background(), second.ID, &models.UpdateSeriesStatusRequest{Status: "paused", Actor: business})
	require.NoError(t, err)

	all, err := f.svc.List(context.Background(), &models.ListSeriesRequest{Actor: business, BusinessID: businessID})
	require.NoError(t, err)
	assert.Len(t, all.Series, 2)

	active, err := f.svc.List(context.Background(), &models.ListSeriesRequest{Actor: business, BusinessID: businessID, Status: ptr.Ptr("active")})
	require.NoError(t, err)
	require.Len(t, active.Series, 1)
	assert.Equal(t, first.ID, active.Series[0].ID)

	_, err = f.svc.List(context.Background(), &models.ListSeriesRequest{Actor: business, BusinessID: businessID, Status: ptr.Ptr("archived")})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.List(context.Background(), &models.ListSeriesRequest{Actor: customer, BusinessID: businessID})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestService_ApplyBulkStatus_CancelRepeatsAfterLoadFailure(t *testing.T) {
	f := newFixture(t, newYear)
	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	require.Len(t, resp.AppointmentIDs, 5)

	appts := &flakyAppointments{AppointmentRepository: f.appointments, failGetByIDs: true}
	svc := f.build(f.series, appts, f.booking, f.apptService, defaultHoriz)
	cancel := &models.UpdateSeriesStatusRequest{Status: "cancelled", Actor: business}

	_, err = svc.ApplyBulkStatus(context.Background(), resp.ID, cancel)

	require.ErrorIs(t, err, ErrInternal)
	series, err := f.series.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecurrenceCancelled, series.Status)
	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusConfirmed, domain.StatusConfirmed, domain.StatusConfirmed,
		domain.StatusConfirmed, domain.StatusConfirmed,
	}, f.statuses(t, resp.ID))

	appts.failGetByIDs = false
	updated, err := svc.ApplyBulkStatus(context.Background(), resp.ID, cancel)

	require.NoError(t, err)
	assert.Equal(t, string(domain.RecurrenceCancelled), updated.Status)
	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusCancelled, domain.StatusCancelled, domain.StatusCancelled,
		domain.StatusCancelled, domain.StatusCancelled,
	}, f.statuses(t, resp.ID))
	// событие об отмене серии отправляется один раз
	assert.Len(t, f.dispatcher.ofType(domain.EventSeriesStatusChanged), 1)
}

func TestService_ApplyBulkStatus_CancelReportsFailedInstances(t *testing.T) {
	f := newFixture(t, newYear)
	resp, err := f.svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	require.Len(t, resp.AppointmentIDs, 5)

	updater := &flakyUpdater{inner: f.apptService, failIDs: map[int64]bool{resp.AppointmentIDs[1]: true}}
	svc := f.build(f.series, f.appointments, f.booking, updater, defaultHoriz)
	cancel := &models.UpdateSeriesStatusRequest{Status: "cancelled", Actor: customer}

	_, err = svc.ApplyBulkStatus(context.Background(), resp.ID, cancel)

	require.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusCancelled, domain.StatusConfirmed, domain.StatusCancelled,
		domain.StatusCancelled, domain.StatusCancelled,
	}, f.statuses(t, resp.ID))

	updater.failIDs = nil
	_, err = svc.ApplyBulkStatus(context.Background(), resp.ID, cancel)

	require.NoError(t, err)
	assert.Equal(t, []domain.AppointmentStatus{
		domain.StatusCancelled, domain.StatusCancelled, domain.StatusCancelled,
		domain.StatusCancelled, domain.StatusCancelled,
	}, f.statuses(t, resp.ID))
}

func (f *fixture) activeOfSeries(t *testing.T, seriesID int64) []*domain.Appointment {
	t.Helper()
	items, err := f.appointments.GetWithFilter(context.Background(), domain.AppointmentFilter{
		RecurringID: &seriesID,
		Statuses:    []domain.AppointmentStatus{domain.StatusPending, domain.StatusConfirmed},
	})
	require.NoError(t, err)
	return items
}

func TestService_Materialize_ReleasesAppointmentWhenLinkFails(t *testing.T) {
	f := newFixture(t, newYear)
	svc := f.build(&flakySeries{RecurringRepository: f.series, failAppends: 1}, f.appointments, f.booking, f.apptService, 14)

	resp, err := svc.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))

	require.NoError(t, err)
	assert.Empty(t, resp.AppointmentIDs)
	assert.Empty(t, f.activeOfSeries(t, resp.ID))

	result, err := svc.Materialize(context.Background(), resp.ID, business, 0)

	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Equal(t, []string{"2024-01-03", "2024-01-10"}, f.instanceDates(t, resp.ID))

	series, err := f.series.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	active := f.activeOfSeries(t, resp.ID)
	require.Len(t, active, 2)
	for _, appt := range active {
		assert.Contains(t, series.AppointmentIDs, appt.ID)
	}
}

func TestService_Materialize_AdoptsUnlinkedAppointment(t *testing.T) {
	f := newFixture(t, newYear)
	// запись создана, но ни добавить её в серию, ни отменить не удалось
	broken := f.build(
		&flakySeries{RecurringRepository: f.series, failAppends: 1},
		f.appointments,
		f.booking,
		&flakyUpdater{inner: f.apptService, failAll: true},
		14,
	)

	resp, err := broken.CreateSeries(context.Background(), weekly(time.Wednesday, date(2024, 1, 1), nil))
	require.NoError(t, err)
	require.Empty(t, resp.AppointmentIDs)
	orphans := f.activeOfSeries(t, resp.ID)
	require.Len(t, orphans, 1)

	svc := f.newService(f.booking, 14)
	result, err := svc.Materialize(context.Background(), resp.ID, business, 0)

	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, orphans[0].ID, result.Created[0])
	assert.Empty(t, result.Skipped)
	assert.Equal(t, []string{"2024-01-03", "2024-01-10"}, f.instanceDates(t, resp.ID))

	_, err = svc.ApplyBulkStatus(context.Background(), resp.ID, &models.UpdateSeriesStatusRequest{Status: "cancelled", Actor: business})
	require.NoError(t, err)
	assert.Empty(t, f.activeOfSeries(t, resp.ID))
}

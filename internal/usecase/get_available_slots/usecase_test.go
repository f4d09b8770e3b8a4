package get_available_slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	catalogClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-SchedulingService/pkg/clock"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
)

type stubCatalog struct {
	services map[int64]*domain.Service
	err      error
}

func (s *stubCatalog) GetService(_ context.Context, id int64) (*domain.Service, error) {
	if s.err != nil {
		return nil, s.err
	}
	svc, ok := s.services[id]
	if !ok {
		return nil, catalogClient.ErrServiceNotFound
	}
	return svc, nil
}

func testService() *domain.Service {
	return &domain.Service{
		ID:              2,
		BusinessID:      1,
		Name:            "Haircut",
		DurationMinutes: 60,
		Availability: domain.Availability{
			Days:      []time.Weekday{time.Wednesday},
			StartTime: "09:00",
			EndTime:   "12:00",
		},
		IsActive: true,
	}
}

// 2024-01-08 понедельник; 2024-01-10 среда
var monday = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

func newUseCase(t *testing.T, svc *domain.Service, now time.Time) (*UseCase, *memory.AppointmentRepository) {
	t.Helper()
	repo := memory.NewAppointmentRepository()
	catalog := &stubCatalog{services: map[int64]*domain.Service{svc.ID: svc}}
	return NewUseCase(repo, catalog, clock.NewFixed(now), 30, logger.Discard()), repo
}

func TestUseCase_Execute_FreeSlots(t *testing.T) {
	svc := testService()
	uc, repo := newUseCase(t, svc, monday)

	_, err := repo.Create(context.Background(), &domain.Appointment{
		ServiceID: svc.ID, BusinessID: svc.BusinessID, CustomerID: 5,
		Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "10:00", EndTime: "11:00",
		Status:    domain.StatusConfirmed,
	})
	require.NoError(t, err)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: svc.ID, Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)})

	require.NoError(t, err)
	assert.False(t, resp.NotAvailableDay)
	assert.Equal(t, int64(1), resp.BusinessID)
	want := []Slot{{StartTime: "09:00", EndTime: "10:00"}, {StartTime: "11:00", EndTime: "12:00"}}
	if diff := cmp.Diff(want, resp.Slots); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
}

func TestUseCase_Execute_CancelledDoesNotBlock(t *testing.T) {
	svc := testService()
	uc, repo := newUseCase(t, svc, monday)

	_, err := repo.Create(context.Background(), &domain.Appointment{
		ServiceID: svc.ID, BusinessID: svc.BusinessID, CustomerID: 5,
		Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "10:00", EndTime: "11:00",
		Status:    domain.StatusCancelled,
	})
	require.NoError(t, err)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: svc.ID, Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)})

	require.NoError(t, err)
	assert.Len(t, resp.Slots, 3)
}

func TestUseCase_Execute_NotAvailableDay(t *testing.T) {
	svc := testService()
	uc, _ := newUseCase(t, svc, monday)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: svc.ID, Date: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)})

	require.NoError(t, err)
	assert.True(t, resp.NotAvailableDay)
	assert.Empty(t, resp.Slots)
}

func TestUseCase_Execute_TodayDropsPastSlots(t *testing.T) {
	svc := testService()
	now := time.Date(2024, 1, 10, 10, 15, 0, 0, time.UTC)
	uc, _ := newUseCase(t, svc, now)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: svc.ID, Date: now})

	require.NoError(t, err)
	assert.Equal(t, []Slot{{StartTime: "11:00", EndTime: "12:00"}}, resp.Slots)
}

func TestUseCase_Execute_Errors(t *testing.T) {
	disabled := testService()
	disabled.IsActive = false

	tests := []struct {
		name    string
		svc     *domain.Service
		req     *Request
		wantErr error
	}{
		{name: "zero service id", svc: testService(), req: &Request{Date: monday}, wantErr: ErrInvalidInput},
		{name: "zero date", svc: testService(), req: &Request{ServiceID: 2}, wantErr: ErrInvalidInput},
		{name: "date in the past", svc: testService(), req: &Request{ServiceID: 2, Date: monday.AddDate(0, 0, -1)}, wantErr: ErrInvalidDate},
		{name: "too far ahead", svc: testService(), req: &Request{ServiceID: 2, Date: monday.AddDate(0, 0, 31)}, wantErr: ErrDateTooFarInFuture},
		{name: "unknown service", svc: testService(), req: &Request{ServiceID: 99, Date: monday}, wantErr: ErrServiceNotFound},
		{name: "disabled service", svc: disabled, req: &Request{ServiceID: 2, Date: monday}, wantErr: ErrServiceDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _ := newUseCase(t, tt.svc, monday)

			_, err := uc.Execute(context.Background(), tt.req)

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUseCase_Execute_CatalogFailure(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("connection refused")}
	uc := NewUseCase(memory.NewAppointmentRepository(), catalog, clock.NewFixed(monday), 0, logger.Discard())

	_, err := uc.Execute(context.Background(), &Request{ServiceID: 2, Date: monday})

	require.ErrorIs(t, err, ErrInternal)
}

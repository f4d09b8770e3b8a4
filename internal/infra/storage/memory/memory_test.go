package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/appointment"
	recurringRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/recurring"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

func newAppt(start, end string, status domain.AppointmentStatus) *domain.Appointment {
	return &domain.Appointment{
		BusinessID: 1,
		ServiceID:  2,
		CustomerID: 3,
		Date:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  types.TimeString(start),
		EndTime:    types.TimeString(end),
		Status:     status,
	}
}

func TestAppointmentRepository_ActiveSlotIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepository()

	first, err := repo.Create(ctx, newAppt("10:00", "10:30", domain.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	_, err = repo.Create(ctx, newAppt("10:00", "10:30", domain.StatusConfirmed))
	require.ErrorIs(t, err, appointmentRepo.ErrConflict)
	assert.True(t, appointmentRepo.IsConflict(err))

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.StatusPending, domain.StatusCancelled))

	_, err = repo.Create(ctx, newAppt("10:00", "10:30", domain.StatusConfirmed))
	require.NoError(t, err)
}

func TestAppointmentRepository_UpdateStatusConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepository()

	created, err := repo.Create(ctx, newAppt("10:00", "10:30", domain.StatusPending))
	require.NoError(t, err)

	err = repo.UpdateStatus(ctx, created.ID, domain.StatusConfirmed, domain.StatusCompleted)
	require.ErrorIs(t, err, appointmentRepo.ErrStatusConflict)

	err = repo.UpdateStatus(ctx, 999, domain.StatusPending, domain.StatusConfirmed)
	require.ErrorIs(t, err, appointmentRepo.ErrAppointmentNotFound)
}

func TestAppointmentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepository()

	created, err := repo.Create(ctx, newAppt("10:00", "10:30", domain.StatusPending))
	require.NoError(t, err)

	created.Status = domain.StatusNoShow

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestRecurringRepository_AppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewRecurringRepository()

	series, err := repo.Create(ctx, &domain.RecurringAppointment{Pattern: domain.PatternDaily, Status: domain.RecurrenceActive})
	require.NoError(t, err)

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	require.NoError(t, repo.AppendAppointment(ctx, series.ID, 10, d1))
	require.NoError(t, repo.AdvanceCursor(ctx, series.ID, d2))
	require.NoError(t, repo.AppendAppointment(ctx, series.ID, 11, d2.AddDate(0, 0, 1)))
	require.NoError(t, repo.AdvanceCursor(ctx, series.ID, d1))

	got, err := repo.GetByID(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, got.AppointmentIDs)
	assert.Equal(t, d2.AddDate(0, 0, 1), *got.MaterializedThrough)

	err = repo.UpdateStatus(ctx, series.ID, domain.RecurrencePaused, domain.RecurrenceActive)
	require.ErrorIs(t, err, recurringRepo.ErrStatusConflict)
}

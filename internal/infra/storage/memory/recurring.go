package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	recurringRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/recurring"
)

// RecurringRepository хранилище серий в памяти процесса
type RecurringRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.RecurringAppointment
	now    func() time.Time
}

// NewRecurringRepository создает пустое хранилище
func NewRecurringRepository() *RecurringRepository {
	return &RecurringRepository{
		items: make(map[int64]domain.RecurringAppointment),
		now:   time.Now,
	}
}

func (r *RecurringRepository) Create(_ context.Context, series *domain.RecurringAppointment) (*domain.RecurringAppointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	series.ID = r.nextID
	series.AppointmentIDs = []int64{}
	series.MaterializedThrough = nil
	series.CreatedAt = r.now()
	series.UpdatedAt = series.CreatedAt
	r.items[series.ID] = cloneSeries(*series)

	return cloneSeriesPtr(*series), nil
}

func (r *RecurringRepository) GetByID(_ context.Context, id int64) (*domain.RecurringAppointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return nil, recurringRepo.ErrSeriesNotFound
	}
	return cloneSeriesPtr(s), nil
}

func (r *RecurringRepository) GetWithFilter(_ context.Context, f domain.RecurringFilter) ([]*domain.RecurringAppointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.RecurringAppointment, 0)
	for _, s := range r.items {
		if f.BusinessID != nil && s.BusinessID != *f.BusinessID {
			continue
		}
		if f.CustomerID != nil && s.CustomerID != *f.CustomerID {
			continue
		}
		if f.ServiceID != nil && s.ServiceID != *f.ServiceID {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		out = append(out, cloneSeriesPtr(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RecurringRepository) UpdateStatus(_ context.Context, id int64, from, to domain.RecurrenceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok {
		return recurringRepo.ErrSeriesNotFound
	}
	if s.Status != from {
		return recurringRepo.ErrStatusConflict
	}
	s.Status = to
	s.UpdatedAt = r.now()
	r.items[id] = s
	return nil
}

func (r *RecurringRepository) AppendAppointment(_ context.Context, id, appointmentID int64, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok {
		return recurringRepo.ErrSeriesNotFound
	}
	ids := make([]int64, len(s.AppointmentIDs), len(s.AppointmentIDs)+1)
	copy(ids, s.AppointmentIDs)
	s.AppointmentIDs = append(ids, appointmentID)
	s.MaterializedThrough = advance(s.MaterializedThrough, date)
	s.UpdatedAt = r.now()
	r.items[id] = s
	return nil
}

func (r *RecurringRepository) AdvanceCursor(_ context.Context, id int64, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok {
		return recurringRepo.ErrSeriesNotFound
	}
	s.MaterializedThrough = advance(s.MaterializedThrough, date)
	s.UpdatedAt = r.now()
	r.items[id] = s
	return nil
}

func advance(cursor *time.Time, date time.Time) *time.Time {
	d := domain.DateOnly(date)
	if cursor != nil && !cursor.Before(d) {
		return cursor
	}
	return &d
}

func cloneSeries(s domain.RecurringAppointment) domain.RecurringAppointment {
	c := s
	c.AppointmentIDs = append([]int64{}, s.AppointmentIDs...)
	return c
}

func cloneSeriesPtr(s domain.RecurringAppointment) *domain.RecurringAppointment {
	c := cloneSeries(s)
	return &c
}

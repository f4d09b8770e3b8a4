package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/appointment"
)

// AppointmentRepository хранилище записей в памяти процесса.
// Повторяет правило уникального индекса: один активный слот на (бизнес, услуга, дата, начало).
type AppointmentRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Appointment
	now    func() time.Time
}

// NewAppointmentRepository создает пустое хранилище
func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{
		items: make(map[int64]domain.Appointment),
		now:   time.Now,
	}
}

func (r *AppointmentRepository) Create(_ context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if appt.Status.IsActive() {
		for _, existing := range r.items {
			if existing.Status.IsActive() &&
				existing.BusinessID == appt.BusinessID &&
				existing.ServiceID == appt.ServiceID &&
				domain.SameDate(existing.Date, appt.Date) &&
				existing.Interval().Overlaps(appt.Interval()) {
				return nil, fmt.Errorf("%w: Create: overlaps appointment id=%d", appointmentRepo.ErrConflict, existing.ID)
			}
		}
	}

	r.nextID++
	stored := *appt
	stored.ID = r.nextID
	stored.Date = domain.DateOnly(appt.Date)
	stored.CreatedAt = r.now()
	stored.UpdatedAt = stored.CreatedAt
	r.items[stored.ID] = stored

	*appt = stored
	return clone(stored), nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.items[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	return clone(appt), nil
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r *AppointmentRepository) GetByIDs(_ context.Context, ids []int64) ([]*domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Appointment, 0, len(ids))
	for _, id := range ids {
		if appt, ok := r.items[id]; ok {
			out = append(out, clone(appt))
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *AppointmentRepository) GetActiveByResourceAndDate(_ context.Context, businessID, serviceID int64, date time.Time) ([]*domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Appointment, 0)
	for _, appt := range r.items {
		if appt.Status.IsActive() &&
			appt.BusinessID == businessID &&
			appt.ServiceID == serviceID &&
			domain.SameDate(appt.Date, date) {
			out = append(out, clone(appt))
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *AppointmentRepository) GetWithFilter(_ context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Appointment, 0)
	for _, appt := range r.items {
		if matchesFilter(appt, filter) {
			out = append(out, clone(appt))
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *AppointmentRepository) UpdateStatus(_ context.Context, id int64, from, to domain.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.items[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	if appt.Status != from {
		return appointmentRepo.ErrStatusConflict
	}
	appt.Status = to
	appt.UpdatedAt = r.now()
	r.items[id] = appt
	return nil
}

func (r *AppointmentRepository) SetPaymentReference(_ context.Context, id int64, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.items[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	appt.PaymentReference = &reference
	appt.UpdatedAt = r.now()
	r.items[id] = appt
	return nil
}

func matchesFilter(appt domain.Appointment, f domain.AppointmentFilter) bool {
	if f.BusinessID != nil && appt.BusinessID != *f.BusinessID {
		return false
	}
	if f.CustomerID != nil && appt.CustomerID != *f.CustomerID {
		return false
	}
	if f.ServiceID != nil && appt.ServiceID != *f.ServiceID {
		return false
	}
	if f.RecurringID != nil && (appt.RecurringID == nil || *appt.RecurringID != *f.RecurringID) {
		return false
	}
	if f.StartDate != nil && appt.Date.Before(domain.DateOnly(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && appt.Date.After(domain.DateOnly(*f.EndDate)) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if appt.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func sortByDate(items []*domain.Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		if items[i].StartTime != items[j].StartTime {
			return items[i].StartTime.IsBefore(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})
}

func clone(appt domain.Appointment) *domain.Appointment {
	c := appt
	return &c
}

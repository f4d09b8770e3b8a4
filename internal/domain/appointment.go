package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// ErrUnknownStatus is returned when a string is not a known appointment status
var ErrUnknownStatus = errors.New("domain: unknown appointment status")

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// ParseAppointmentStatus converts an external value into a known status
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch st := AppointmentStatus(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// IsActive returns true if the status holds a slot
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal returns true if no transition leaves the status
func (s AppointmentStatus) IsTerminal() bool {
	return !s.IsActive()
}

// Appointment represents a booked time slot for a service
type Appointment struct {
	ID          int64
	ServiceID   int64
	BusinessID  int64
	CustomerID  int64
	Date        time.Time
	StartTime   types.TimeString
	EndTime     types.TimeString // derived from StartTime + service duration
	Status      AppointmentStatus
	Notes       *string
	RecurringID *int64 // back-reference to the series that produced it

	// Denormalized data for history
	ServiceName string
	Price       float64

	PaymentReference *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the appointment holds its slot
func (a *Appointment) IsActive() bool {
	return a.Status.IsActive()
}

// Interval returns the [start, end) interval the appointment occupies
func (a *Appointment) Interval() TimeInterval {
	return TimeInterval{Start: a.StartTime, End: a.EndTime}
}

// StartsAt returns the start moment of the appointment in loc
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return a.StartTime.On(a.Date, loc)
}

// EndsAt returns the end moment of the appointment in loc
func (a *Appointment) EndsAt(loc *time.Location) (time.Time, error) {
	return a.EndTime.On(a.Date, loc)
}

// BelongsTo reports whether the actor owns the appointment on their side
func (a *Appointment) BelongsTo(actor Actor) bool {
	switch actor.Role {
	case ActorBusiness:
		return a.BusinessID == actor.UserID
	case ActorCustomer:
		return a.CustomerID == actor.UserID
	case ActorPayment:
		return true
	default:
		return false
	}
}

// AppointmentFilter фильтр для выборки записей
type AppointmentFilter struct {
	BusinessID  *int64
	CustomerID  *int64
	ServiceID   *int64
	RecurringID *int64
	StartDate   *time.Time         // Начало периода (включительно)
	EndDate     *time.Time         // Конец периода (включительно)
	Statuses    []AppointmentStatus // Пусто - все статусы
}

// ActorRole is the role of whoever triggers a status change
type ActorRole string

const (
	ActorBusiness ActorRole = "business"
	ActorCustomer ActorRole = "customer"
	ActorPayment  ActorRole = "payment"
)

// ParseActorRole converts an external value into a role that users may hold.
// The payment role is internal and cannot be claimed by a caller.
func ParseActorRole(s string) (ActorRole, error) {
	switch r := ActorRole(s); r {
	case ActorBusiness, ActorCustomer:
		return r, nil
	default:
		return "", fmt.Errorf("domain: unknown actor role %q", s)
	}
}

// Actor identifies who is acting. For business actors UserID is the business id.
type Actor struct {
	Role   ActorRole
	UserID int64
}

// PaymentActor is the actor used for payment collaborator callbacks
var PaymentActor = Actor{Role: ActorPayment}

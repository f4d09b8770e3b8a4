package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

var (
	// ErrInvalidRecurrence is returned for a malformed series definition
	ErrInvalidRecurrence = errors.New("domain: invalid recurrence definition")

	// ErrInvalidSeriesTransition is returned when a series status change is not allowed
	ErrInvalidSeriesTransition = errors.New("domain: invalid series status transition")
)

// RecurrencePattern is how often a series repeats
type RecurrencePattern string

const (
	PatternDaily    RecurrencePattern = "daily"
	PatternWeekly   RecurrencePattern = "weekly"
	PatternBiweekly RecurrencePattern = "biweekly"
	PatternMonthly  RecurrencePattern = "monthly"
)

// ParseRecurrencePattern converts an external value into a known pattern
func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	switch p := RecurrencePattern(s); p {
	case PatternDaily, PatternWeekly, PatternBiweekly, PatternMonthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrence, s)
	}
}

// RecurrenceStatus is the lifecycle status of a series
type RecurrenceStatus string

const (
	RecurrenceActive    RecurrenceStatus = "active"
	RecurrencePaused    RecurrenceStatus = "paused"
	RecurrenceCompleted RecurrenceStatus = "completed"
	RecurrenceCancelled RecurrenceStatus = "cancelled"
)

// ParseRecurrenceStatus converts an external value into a known series status
func ParseRecurrenceStatus(s string) (RecurrenceStatus, error) {
	switch st := RecurrenceStatus(s); st {
	case RecurrenceActive, RecurrencePaused, RecurrenceCompleted, RecurrenceCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown series status %q", ErrInvalidSeriesTransition, s)
	}
}

var seriesTransitions = map[RecurrenceStatus][]RecurrenceStatus{
	RecurrenceActive: {RecurrencePaused, RecurrenceCancelled, RecurrenceCompleted},
	RecurrencePaused: {RecurrenceActive, RecurrenceCancelled},
}

// ValidateSeriesTransition checks a series status change
func ValidateSeriesTransition(from, to RecurrenceStatus) error {
	for _, allowed := range seriesTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidSeriesTransition, from, to)
}

// RecurringAppointment is the authoring record of a repeating booking
type RecurringAppointment struct {
	ID         int64
	BusinessID int64
	ServiceID  int64
	CustomerID int64
	Pattern    RecurrencePattern
	DayOfWeek  *time.Weekday // weekly, biweekly
	DayOfMonth *int          // monthly
	StartDate  time.Time
	EndDate    *time.Time // nil - open-ended
	StartTime  types.TimeString
	EndTime    types.TimeString
	Notes      *string
	Status     RecurrenceStatus

	// AppointmentIDs is append-only, in materialization order
	AppointmentIDs []int64
	// MaterializedThrough is the last occurrence date already processed (created or skipped)
	MaterializedThrough *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelongsTo reports whether the actor owns the series on their side
func (r *RecurringAppointment) BelongsTo(actor Actor) bool {
	switch actor.Role {
	case ActorBusiness:
		return r.BusinessID == actor.UserID
	case ActorCustomer:
		return r.CustomerID == actor.UserID
	default:
		return false
	}
}

// Validate checks the pattern fields and the date range
func (r *RecurringAppointment) Validate() error {
	switch r.Pattern {
	case PatternDaily:
	case PatternWeekly, PatternBiweekly:
		if r.DayOfWeek == nil {
			return fmt.Errorf("%w: dayOfWeek is required for %s", ErrInvalidRecurrence, r.Pattern)
		}
		if *r.DayOfWeek < time.Sunday || *r.DayOfWeek > time.Saturday {
			return fmt.Errorf("%w: dayOfWeek %d out of range", ErrInvalidRecurrence, *r.DayOfWeek)
		}
	case PatternMonthly:
		if r.DayOfMonth == nil {
			return fmt.Errorf("%w: dayOfMonth is required for monthly", ErrInvalidRecurrence)
		}
		if *r.DayOfMonth < 1 || *r.DayOfMonth > 31 {
			return fmt.Errorf("%w: dayOfMonth %d out of range", ErrInvalidRecurrence, *r.DayOfMonth)
		}
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrence, r.Pattern)
	}

	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: startDate is required", ErrInvalidRecurrence)
	}
	if r.EndDate != nil && DateOnly(*r.EndDate).Before(DateOnly(r.StartDate)) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidRecurrence)
	}
	return nil
}

// Matches reports whether date satisfies the series rule, bounds included
func (r *RecurringAppointment) Matches(date time.Time) bool {
	d := DateOnly(date)
	start := DateOnly(r.StartDate)
	if d.Before(start) || (r.EndDate != nil && d.After(DateOnly(*r.EndDate))) {
		return false
	}
	switch r.Pattern {
	case PatternDaily:
		return true
	case PatternWeekly:
		return r.DayOfWeek != nil && d.Weekday() == *r.DayOfWeek
	case PatternBiweekly:
		if r.DayOfWeek == nil || d.Weekday() != *r.DayOfWeek {
			return false
		}
		return daysBetween(firstWeekday(start, *r.DayOfWeek), d)%14 == 0
	case PatternMonthly:
		return r.DayOfMonth != nil && d.Day() == *r.DayOfMonth
	default:
		return false
	}
}

// OccurrencesBetween returns the series dates in [from, to] in ascending order, at most limit
// of them (limit <= 0 means no limit). The series own bounds always apply.
// Monthly series skip months that have no such day.
func (r *RecurringAppointment) OccurrencesBetween(from, to time.Time, limit int) []time.Time {
	lo := DateOnly(from)
	if start := DateOnly(r.StartDate); lo.Before(start) {
		lo = start
	}
	hi := DateOnly(to)
	if r.EndDate != nil {
		if end := DateOnly(*r.EndDate); end.Before(hi) {
			hi = end
		}
	}
	if hi.Before(lo) {
		return nil
	}

	var out []time.Time
	push := func(d time.Time) bool {
		out = append(out, d)
		return limit <= 0 || len(out) < limit
	}

	switch r.Pattern {
	case PatternDaily:
		for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
			if !push(d) {
				break
			}
		}
	case PatternWeekly, PatternBiweekly:
		if r.DayOfWeek == nil {
			return nil
		}
		step := 7
		if r.Pattern == PatternBiweekly {
			step = 14
		}
		anchor := firstWeekday(DateOnly(r.StartDate), *r.DayOfWeek)
		d := anchor
		if d.Before(lo) {
			// jump to the first step on or after lo
			k := (daysBetween(anchor, lo) + step - 1) / step
			d = anchor.AddDate(0, 0, k*step)
		}
		for ; !d.After(hi); d = d.AddDate(0, 0, step) {
			if !push(d) {
				break
			}
		}
	case PatternMonthly:
		if r.DayOfMonth == nil {
			return nil
		}
		for y, m := lo.Year(), lo.Month(); ; {
			first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
			if first.After(hi) {
				break
			}
			d := time.Date(y, m, *r.DayOfMonth, 0, 0, 0, 0, time.UTC)
			if d.Month() == m && !d.Before(lo) && !d.After(hi) {
				if !push(d) {
					break
				}
			}
			next := first.AddDate(0, 1, 0)
			y, m = next.Year(), next.Month()
		}
	}
	return out
}

// firstWeekday returns the first date on or after d that falls on day
func firstWeekday(d time.Time, day time.Weekday) time.Time {
	offset := (int(day) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

func daysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// RecurringFilter фильтр для выборки серий
type RecurringFilter struct {
	BusinessID *int64
	CustomerID *int64
	ServiceID  *int64
	Status     *RecurrenceStatus
}

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// ErrInvalidAvailability is returned when a service cannot be laid out into slots
var ErrInvalidAvailability = errors.New("domain: invalid service availability")

// TimeInterval is a half-open [Start, End) interval within a day
type TimeInterval struct {
	Start types.TimeString
	End   types.TimeString
}

// Overlaps reports whether two half-open intervals intersect
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start.IsBefore(other.End) && other.Start.IsBefore(i.End)
}

// Slot is a bookable interval
type Slot struct {
	StartTime types.TimeString
	EndTime   types.TimeString
}

// SlotsResult is the outcome of a slot computation.
// NotAvailableDay is set when the service does not run on that weekday; Slots is empty then.
type SlotsResult struct {
	Slots           []Slot
	NotAvailableDay bool
}

// Contains reports whether a slot starting at start is in the result
func (r SlotsResult) Contains(start types.TimeString) bool {
	for _, s := range r.Slots {
		if s.StartTime == start {
			return true
		}
	}
	return false
}

// CandidateSlots builds the full slot ladder of the service window, ignoring bookings.
// A trailing piece shorter than the duration is not offered.
func CandidateSlots(service *Service) ([]Slot, error) {
	duration := service.DurationMinutes
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration %d", ErrInvalidAvailability, duration)
	}
	open, err := service.Availability.StartTime.Minutes()
	if err != nil {
		return nil, fmt.Errorf("%w: start time: %v", ErrInvalidAvailability, err)
	}
	closeAt, err := service.Availability.EndTime.Minutes()
	if err != nil {
		return nil, fmt.Errorf("%w: end time: %v", ErrInvalidAvailability, err)
	}

	slots := make([]Slot, 0)
	for start := open; start+duration <= closeAt; start += duration {
		startTS, err := types.FromMinutes(start)
		if err != nil {
			return nil, err
		}
		endTS, err := types.FromMinutes(start + duration)
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{StartTime: startTS, EndTime: endTS})
	}
	return slots, nil
}

// IsOnLadder reports whether start is one of the service's candidate slot starts
func IsOnLadder(service *Service, start types.TimeString) (bool, error) {
	candidates, err := CandidateSlots(service)
	if err != nil {
		return false, err
	}
	for _, c := range candidates {
		if c.StartTime == start {
			return true, nil
		}
	}
	return false, nil
}

// ComputeSlots returns the free slots of a service on a date, in chronological order.
// Slots overlapping booked intervals and slots starting before now are dropped.
// now also defines the location in which date's wall-clock times are interpreted.
func ComputeSlots(service *Service, date time.Time, booked []TimeInterval, now time.Time) (SlotsResult, error) {
	if !service.Availability.IsOfferedOn(date.Weekday()) {
		return SlotsResult{Slots: []Slot{}, NotAvailableDay: true}, nil
	}

	candidates, err := CandidateSlots(service)
	if err != nil {
		return SlotsResult{}, err
	}

	free := make([]Slot, 0, len(candidates))
	for _, c := range candidates {
		startsAt, err := c.StartTime.On(date, now.Location())
		if err != nil {
			return SlotsResult{}, err
		}
		if startsAt.Before(now) {
			continue
		}
		if overlapsAny(TimeInterval{Start: c.StartTime, End: c.EndTime}, booked) {
			continue
		}
		free = append(free, c)
	}

	return SlotsResult{Slots: free}, nil
}

// BookedIntervals collects the intervals held by active appointments
func BookedIntervals(appointments []*Appointment) []TimeInterval {
	intervals := make([]TimeInterval, 0, len(appointments))
	for _, a := range appointments {
		if a.IsActive() {
			intervals = append(intervals, a.Interval())
		}
	}
	return intervals
}

func overlapsAny(slot TimeInterval, booked []TimeInterval) bool {
	for _, b := range booked {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}

package domain

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Availability is the single daily booking window of a service
type Availability struct {
	Days      []time.Weekday
	StartTime types.TimeString
	EndTime   types.TimeString
}

// IsOfferedOn returns true if the service takes bookings on the given weekday
func (a Availability) IsOfferedOn(day time.Weekday) bool {
	for _, d := range a.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Service is an appointment-type service owned by a business.
// Read-only for scheduling; provided by the catalog.
type Service struct {
	ID              int64
	BusinessID      int64
	Name            string
	DurationMinutes int
	Price           float64
	Availability    Availability
	IsActive        bool
}

// RequiresPayment returns true if booking the service starts a payment
func (s *Service) RequiresPayment() bool {
	return s.Price > 0
}

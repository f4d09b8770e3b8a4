package domain

import (
	"fmt"
	"time"
)

// DateOnly truncates t to its calendar date (midnight UTC).
// All appointment and series dates are stored in this form.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate compares calendar dates ignoring time and location
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// ResourceDayKey identifies the contention unit for booking: one service of one business on one date
func ResourceDayKey(businessID, serviceID int64, date time.Time) string {
	return fmt.Sprintf("appt:%d:%d:%s", businessID, serviceID, date.Format(DateFormat))
}

// SeriesKey identifies a recurring series for materialization runs
func SeriesKey(seriesID int64) string {
	return fmt.Sprintf("series:%d", seriesID)
}

package domain

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// EventType is the kind of a scheduling notification
type EventType string

const (
	EventAppointmentCreated       EventType = "appointment.created"
	EventAppointmentStatusChanged EventType = "appointment.status_changed"
	EventSeriesMaterialized       EventType = "series.materialized"
	EventSeriesStatusChanged      EventType = "series.status_changed"
)

// Recipient is who a notification is addressed to
type Recipient struct {
	Role ActorRole
	ID   int64
}

// AppointmentEvent is handed to the notification collaborator
type AppointmentEvent struct {
	Type           EventType
	AppointmentID  int64
	SeriesID       *int64
	BusinessID     int64
	CustomerID     int64
	Status         string
	PreviousStatus string
	Date           time.Time
	StartTime      types.TimeString
	AppointmentIDs []int64 // series.materialized: instances created in the run
	OccurredAt     time.Time
}

// PaymentOutcome is the result reported by the payment collaborator
type PaymentOutcome string

const (
	PaymentConfirmed PaymentOutcome = "confirmed"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentEvent is a callback from the payment collaborator
type PaymentEvent struct {
	ProviderEventID string
	AppointmentID   int64
	Outcome         PaymentOutcome
}

package notifications

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Message тело уведомления в топике
type Message struct {
	EventID        string  `json:"event_id"`
	EventType      string  `json:"event_type"`
	RecipientRole  string  `json:"recipient_role"`
	RecipientID    int64   `json:"recipient_id"`
	AppointmentID  int64   `json:"appointment_id,omitempty"`
	SeriesID       *int64  `json:"series_id,omitempty"`
	BusinessID     int64   `json:"business_id"`
	CustomerID     int64   `json:"customer_id"`
	Status         string  `json:"status,omitempty"`
	PreviousStatus string  `json:"previous_status,omitempty"`
	Date           string  `json:"date,omitempty"`
	StartTime      string  `json:"start_time,omitempty"`
	AppointmentIDs []int64 `json:"appointment_ids,omitempty"`
	OccurredAt     string  `json:"occurred_at"`
}

// NewMessage формирует тело уведомления для получателя
func NewMessage(eventID string, recipient domain.Recipient, event domain.AppointmentEvent) Message {
	msg := Message{
		EventID:        eventID,
		EventType:      string(event.Type),
		RecipientRole:  string(recipient.Role),
		RecipientID:    recipient.ID,
		AppointmentID:  event.AppointmentID,
		SeriesID:       event.SeriesID,
		BusinessID:     event.BusinessID,
		CustomerID:     event.CustomerID,
		Status:         event.Status,
		PreviousStatus: event.PreviousStatus,
		StartTime:      event.StartTime.String(),
		AppointmentIDs: event.AppointmentIDs,
		OccurredAt:     event.OccurredAt.UTC().Format(time.RFC3339),
	}
	if !event.Date.IsZero() {
		msg.Date = event.Date.Format(domain.DateFormat)
	}
	return msg
}

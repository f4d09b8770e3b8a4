package create_recurring_appointment

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// CreateSeriesRequest HTTP request model
type CreateSeriesRequest struct {
	BusinessID int64   `json:"businessId"`
	ServiceID  int64   `json:"serviceId"`
	CustomerID int64   `json:"customerId,omitempty"` // для клиента берется из заголовков
	Pattern    string  `json:"pattern"`              // daily, weekly, biweekly, monthly
	DayOfWeek  *int    `json:"dayOfWeek,omitempty"`  // 0 - воскресенье
	DayOfMonth *int    `json:"dayOfMonth,omitempty"` // 1-31
	StartDate  string  `json:"startDate"`            // "2025-10-15"
	EndDate    *string `json:"endDate,omitempty"`
	StartTime  string  `json:"startTime"` // "10:00"
	Notes      *string `json:"notes,omitempty"`
}

// ToServiceRequest конвертирует HTTP request в запрос сервиса
func (r *CreateSeriesRequest) ToServiceRequest(actor domain.Actor) (*models.CreateSeriesRequest, error) {
	startDate, err := time.Parse(domain.DateFormat, r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}

	var endDate *time.Time
	if r.EndDate != nil {
		parsed, err := time.Parse(domain.DateFormat, *r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("endDate: %w", err)
		}
		endDate = &parsed
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("startTime: %w", err)
	}

	customerID := r.CustomerID
	if actor.Role == domain.ActorCustomer && customerID == 0 {
		customerID = actor.UserID
	}

	return &models.CreateSeriesRequest{
		Actor:      actor,
		BusinessID: r.BusinessID,
		ServiceID:  r.ServiceID,
		CustomerID: customerID,
		Pattern:    r.Pattern,
		DayOfWeek:  r.DayOfWeek,
		DayOfMonth: r.DayOfMonth,
		StartDate:  startDate,
		EndDate:    endDate,
		StartTime:  startTime,
		Notes:      r.Notes,
	}, nil
}

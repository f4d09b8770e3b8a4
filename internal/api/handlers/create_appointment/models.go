package create_appointment

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	createAppointment "github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	BusinessID int64   `json:"businessId"`
	ServiceID  int64   `json:"serviceId"`
	Date       string  `json:"date"`      // "2025-10-15"
	StartTime  string  `json:"startTime"` // "10:00"
	Notes      *string `json:"notes,omitempty"`
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID          int64   `json:"id"`
	ServiceID   int64   `json:"serviceId"`
	BusinessID  int64   `json:"businessId"`
	CustomerID  int64   `json:"customerId"`
	Date        string  `json:"date"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes,omitempty"`
	RecurringID *int64  `json:"recurringId,omitempty"`
	ServiceName string  `json:"serviceName"`
	Price       float64 `json:"price"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP request в use case request.
// customerID берется из заголовков авторизации, а не из тела.
func (r *CreateAppointmentRequest) ToUseCaseRequest(customerID int64) (*createAppointment.Request, error) {
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, err
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, err
	}

	return &createAppointment.Request{
		CustomerID: customerID,
		BusinessID: r.BusinessID,
		ServiceID:  r.ServiceID,
		Date:       date,
		StartTime:  startTime,
		Notes:      r.Notes,
	}, nil
}

// FromUseCaseResponse конвертирует use case response в HTTP response
func FromUseCaseResponse(resp *createAppointment.Response) *AppointmentResponse {
	return &AppointmentResponse{
		ID:          resp.ID,
		ServiceID:   resp.ServiceID,
		BusinessID:  resp.BusinessID,
		CustomerID:  resp.CustomerID,
		Date:        resp.Date.Format(domain.DateFormat),
		StartTime:   resp.StartTime.String(),
		EndTime:     resp.EndTime.String(),
		Status:      resp.Status,
		Notes:       resp.Notes,
		RecurringID: resp.RecurringID,
		ServiceName: resp.ServiceName,
		Price:       resp.Price,
		CreatedAt:   resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   resp.UpdatedAt.Format(time.RFC3339),
	}
}

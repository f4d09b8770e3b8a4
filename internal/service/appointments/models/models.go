package models

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Request модели

// UpdateStatusRequest запрос на изменение статуса записи
type UpdateStatusRequest struct {
	Status string       `json:"status"`
	Actor  domain.Actor `json:"-"`
}

// ListAppointmentsRequest запрос на получение записей бизнеса или клиента
type ListAppointmentsRequest struct {
	Actor       domain.Actor `json:"-"`
	OwnerID     int64        `json:"ownerId"`               // ID бизнеса или клиента из пути
	ServiceID   *int64       `json:"serviceId,omitempty"`   // Фильтр по услуге (опционально)
	RecurringID *int64       `json:"recurringId,omitempty"` // Фильтр по серии (опционально)
	StartDate   *time.Time   `json:"startDate,omitempty"`   // Начало периода (опционально)
	EndDate     *time.Time   `json:"endDate,omitempty"`     // Конец периода (опционально)
	Status      *string      `json:"status,omitempty"`      // Фильтр по статусу (опционально)
}

// Response модели

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID          int64  `json:"id"`
	ServiceID   int64  `json:"serviceId"`
	BusinessID  int64  `json:"businessId"`
	CustomerID  int64  `json:"customerId"`
	Date        string `json:"date"`      // "2025-10-15"
	StartTime   string `json:"startTime"` // "10:00"
	EndTime     string `json:"endTime"`   // "11:00"
	Status      string `json:"status"`
	RecurringID *int64 `json:"recurringId,omitempty"`

	// Денормализованные данные
	ServiceName      string  `json:"serviceName"`
	Price            float64 `json:"price"`
	Notes            *string `json:"notes,omitempty"`
	PaymentReference *string `json:"paymentReference,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppointmentListResponse ответ со списком записей
type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

// Методы конвертации

// FromDomainAppointment конвертирует domain модель в DTO
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}

	return &AppointmentResponse{
		ID:               a.ID,
		ServiceID:        a.ServiceID,
		BusinessID:       a.BusinessID,
		CustomerID:       a.CustomerID,
		Date:             a.Date.Format(domain.DateFormat),
		StartTime:        a.StartTime.String(),
		EndTime:          a.EndTime.String(),
		Status:           string(a.Status),
		RecurringID:      a.RecurringID,
		ServiceName:      a.ServiceName,
		Price:            a.Price,
		Notes:            a.Notes,
		PaymentReference: a.PaymentReference,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// FromDomainAppointmentList конвертирует список domain моделей в DTO
func FromDomainAppointmentList(items []*domain.Appointment) *AppointmentListResponse {
	result := &AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(items)),
	}
	for _, a := range items {
		result.Appointments = append(result.Appointments, *FromDomainAppointment(a))
	}
	return result
}

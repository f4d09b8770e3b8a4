package models

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// CreateSeriesRequest запрос на создание повторяющейся записи
type CreateSeriesRequest struct {
	Actor      domain.Actor
	BusinessID int64
	ServiceID  int64
	CustomerID int64
	Pattern    string
	DayOfWeek  *int // 0 - воскресенье, для weekly и biweekly
	DayOfMonth *int // для monthly
	StartDate  time.Time
	EndDate    *time.Time
	StartTime  types.TimeString
	Notes      *string
}

// UpdateSeriesStatusRequest запрос на изменение статуса серии
type UpdateSeriesStatusRequest struct {
	Status string
	Actor  domain.Actor
}

// ListSeriesRequest запрос списка серий бизнеса
type ListSeriesRequest struct {
	Actor      domain.Actor
	BusinessID int64
	Status     *string
	CustomerID *int64
	ServiceID  *int64
}

// SeriesResponse модель серии для ответа
type SeriesResponse struct {
	ID                  int64   `json:"id"`
	BusinessID          int64   `json:"businessId"`
	ServiceID           int64   `json:"serviceId"`
	CustomerID          int64   `json:"customerId"`
	Pattern             string  `json:"pattern"`
	DayOfWeek           *int    `json:"dayOfWeek,omitempty"`
	DayOfMonth          *int    `json:"dayOfMonth,omitempty"`
	StartDate           string  `json:"startDate"`
	EndDate             *string `json:"endDate,omitempty"`
	StartTime           string  `json:"startTime"`
	EndTime             string  `json:"endTime"`
	Notes               *string `json:"notes,omitempty"`
	Status              string  `json:"status"`
	AppointmentIDs      []int64 `json:"appointmentIds"`
	MaterializedThrough *string `json:"materializedThrough,omitempty"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

// SeriesListResponse список серий
type SeriesListResponse struct {
	Series []SeriesResponse `json:"series"`
}

// MaterializeResponse результат одного прогона генерации
type MaterializeResponse struct {
	SeriesID int64    `json:"seriesId"`
	Created  []int64  `json:"created"`
	Skipped  []string `json:"skipped"`
}

// FromDomainSeries конвертирует доменную серию в модель ответа
func FromDomainSeries(s *domain.RecurringAppointment) *SeriesResponse {
	resp := &SeriesResponse{
		ID:             s.ID,
		BusinessID:     s.BusinessID,
		ServiceID:      s.ServiceID,
		CustomerID:     s.CustomerID,
		Pattern:        string(s.Pattern),
		DayOfMonth:     s.DayOfMonth,
		StartDate:      s.StartDate.Format(domain.DateFormat),
		StartTime:      s.StartTime.String(),
		EndTime:        s.EndTime.String(),
		Notes:          s.Notes,
		Status:         string(s.Status),
		AppointmentIDs: append([]int64{}, s.AppointmentIDs...),
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
	}

	if s.DayOfWeek != nil {
		day := int(*s.DayOfWeek)
		resp.DayOfWeek = &day
	}
	if s.EndDate != nil {
		end := s.EndDate.Format(domain.DateFormat)
		resp.EndDate = &end
	}
	if s.MaterializedThrough != nil {
		through := s.MaterializedThrough.Format(domain.DateFormat)
		resp.MaterializedThrough = &through
	}

	return resp
}

// FromDomainSeriesList конвертирует список серий
func FromDomainSeriesList(items []*domain.RecurringAppointment) *SeriesListResponse {
	resp := &SeriesListResponse{Series: make([]SeriesResponse, 0, len(items))}
	for _, s := range items {
		resp.Series = append(resp.Series, *FromDomainSeries(s))
	}
	return resp
}

package catalogservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Service модель услуги из каталога
type Service struct {
	ID              int64        `json:"id"`
	BusinessID      int64        `json:"business_id"`
	Name            string       `json:"name"`
	Type            string       `json:"type"` // appointment | product
	DurationMinutes int          `json:"duration_minutes"`
	Price           float64      `json:"price"`
	IsActive        bool         `json:"is_active"`
	Availability    Availability `json:"availability"`
}

// Availability окно записи на услугу
type Availability struct {
	Days      []string `json:"days"` // monday ... sunday
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

// ErrorResponse модель ошибки от каталога
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const serviceTypeAppointment = "appointment"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ToDomain конвертирует ответ каталога в доменную модель.
// Услуги, которые не бронируются по времени, считаются недоступными для записи.
func (s *Service) ToDomain() (*domain.Service, error) {
	start, err := types.NewTimeStringFromString(s.Availability.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	end, err := types.NewTimeStringFromString(s.Availability.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end_time: %w", err)
	}
	if end.IsBefore(start) {
		return nil, fmt.Errorf("availability window %s-%s is inverted", start, end)
	}

	days := make([]time.Weekday, 0, len(s.Availability.Days))
	for _, d := range s.Availability.Days {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", d)
		}
		days = append(days, wd)
	}

	isAppointment := s.Type == "" || s.Type == serviceTypeAppointment

	return &domain.Service{
		ID:              s.ID,
		BusinessID:      s.BusinessID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		IsActive:        s.IsActive && isAppointment,
		Availability: domain.Availability{
			Days:      days,
			StartTime: start,
			EndTime:   end,
		},
	}, nil
}

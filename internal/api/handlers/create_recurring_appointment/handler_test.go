package create_recurring_appointment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence"
	"github.com/m04kA/SMC-SchedulingService/internal/service/recurrence/models"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) CreateSeries(ctx context.Context, req *models.CreateSeriesRequest) (*models.SeriesResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.SeriesResponse)
	return resp, args.Error(1)
}

var (
	business = domain.Actor{Role: domain.ActorBusiness, UserID: 1}
	customer = domain.Actor{Role: domain.ActorCustomer, UserID: 7}
)

const weeklyBody = `{"businessId":1,"serviceId":2,"pattern":"weekly","dayOfWeek":3,"startDate":"2024-01-01","endDate":"2024-01-31","startTime":"10:00"}`

func post(h *Handler, body string, actor *domain.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recurring-appointments", strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandler_CustomerCreatesOwnSeries(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateSeries", mock.Anything, mock.MatchedBy(func(req *models.CreateSeriesRequest) bool {
		return req.Actor == customer &&
			req.CustomerID == customer.UserID &&
			req.Pattern == "weekly" &&
			*req.DayOfWeek == 3 &&
			req.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			req.EndDate.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) &&
			req.StartTime == "10:00"
	})).Return(&models.SeriesResponse{ID: 5, Pattern: "weekly", Status: "active", AppointmentIDs: []int64{10, 11}}, nil)

	rec := post(NewHandler(svc, logger.Discard()), weeklyBody, &customer)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"appointmentIds":[10,11]`)
	svc.AssertExpectations(t)
}

func TestHandler_RejectsBeforeService(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		actor      *domain.Actor
		wantStatus int
	}{
		{name: "no actor", body: weeklyBody, wantStatus: http.StatusUnauthorized},
		{name: "malformed json", body: `{"pattern":`, actor: &business, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"pattern":"weekly","interval":2}`, actor: &business, wantStatus: http.StatusBadRequest},
		{name: "bad start date", body: `{"pattern":"daily","startDate":"01.01.2024","startTime":"10:00"}`, actor: &business, wantStatus: http.StatusBadRequest},
		{name: "bad end date", body: `{"pattern":"daily","startDate":"2024-01-01","endDate":"soon","startTime":"10:00"}`, actor: &business, wantStatus: http.StatusBadRequest},
		{name: "bad start time", body: `{"pattern":"daily","startDate":"2024-01-01","startTime":"10am"}`, actor: &business, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}

			rec := post(NewHandler(svc, logger.Discard()), tt.body, tt.actor)

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertNotCalled(t, "CreateSeries", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{err: fmt.Errorf("%w: dayOfWeek is required", recurrence.ErrInvalidRecurrence), wantStatus: http.StatusBadRequest},
		{err: recurrence.ErrInvalidInput, wantStatus: http.StatusBadRequest},
		{err: recurrence.ErrAccessDenied, wantStatus: http.StatusForbidden},
		{err: recurrence.ErrServiceNotFound, wantStatus: http.StatusNotFound},
		{err: recurrence.ErrServiceDisabled, wantStatus: http.StatusBadRequest},
		{err: recurrence.ErrInvalidDay, wantStatus: http.StatusBadRequest},
		{err: recurrence.ErrInvalidTimeSlot, wantStatus: http.StatusBadRequest},
		{err: recurrence.ErrInternal, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := &mockService{}
			svc.On("CreateSeries", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := post(NewHandler(svc, logger.Discard()), weeklyBody, &business)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"message"`)
		})
	}
}

package create_appointment

import (
	"context"
	"encoding/json"
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
	createAppointment "github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
)

type mockUseCase struct {
	mock.Mock
}

func (m *mockUseCase) Execute(ctx context.Context, req *createAppointment.Request) (*createAppointment.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*createAppointment.Response)
	return resp, args.Error(1)
}

const validBody = `{"businessId":1,"serviceId":2,"date":"2024-01-10","startTime":"10:00"}`

func newRequest(body string, actor *domain.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	return req
}

func TestHandler_Created(t *testing.T) {
	uc := &mockUseCase{}
	created := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	uc.On("Execute", mock.Anything, mock.MatchedBy(func(req *createAppointment.Request) bool {
		return req.CustomerID == 7 && req.ServiceID == 2 && req.StartTime == "10:00" &&
			req.Date.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	})).Return(&createAppointment.Response{
		ID:         11,
		ServiceID:  2,
		BusinessID: 1,
		CustomerID: 7,
		Date:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  "10:00",
		EndTime:    "11:00",
		Status:     "pending",
		CreatedAt:  created,
		UpdatedAt:  created,
	}, nil)

	rec := httptest.NewRecorder()
	NewHandler(uc, logger.Discard()).Handle(rec, newRequest(validBody, &domain.Actor{Role: domain.ActorCustomer, UserID: 7}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp AppointmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(11), resp.ID)
	assert.Equal(t, "2024-01-10", resp.Date)
	assert.Equal(t, "11:00", resp.EndTime)
	assert.Equal(t, "pending", resp.Status)
	uc.AssertExpectations(t)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{err: createAppointment.ErrSlotNoLongerAvailable, wantStatus: http.StatusConflict},
		{err: createAppointment.ErrServiceNotFound, wantStatus: http.StatusNotFound},
		{err: createAppointment.ErrInvalidTimeSlot, wantStatus: http.StatusBadRequest},
		{err: createAppointment.ErrInvalidDay, wantStatus: http.StatusBadRequest},
		{err: createAppointment.ErrDateTooFarInFuture, wantStatus: http.StatusBadRequest},
		{err: fmt.Errorf("%w: db down", createAppointment.ErrInternal), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			uc := &mockUseCase{}
			uc.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			NewHandler(uc, logger.Discard()).Handle(rec, newRequest(validBody, &domain.Actor{Role: domain.ActorCustomer, UserID: 7}))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_RejectedBeforeUseCase(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		actor      *domain.Actor
		wantStatus int
	}{
		{name: "no actor", body: validBody, wantStatus: http.StatusUnauthorized},
		{name: "business cannot book", body: validBody, actor: &domain.Actor{Role: domain.ActorBusiness, UserID: 1}, wantStatus: http.StatusForbidden},
		{name: "unknown field", body: `{"serviceId":2,"customerId":9}`, actor: &domain.Actor{Role: domain.ActorCustomer, UserID: 7}, wantStatus: http.StatusBadRequest},
		{name: "bad date", body: `{"businessId":1,"serviceId":2,"date":"10.01.2024","startTime":"10:00"}`, actor: &domain.Actor{Role: domain.ActorCustomer, UserID: 7}, wantStatus: http.StatusBadRequest},
		{name: "bad time", body: `{"businessId":1,"serviceId":2,"date":"2024-01-10","startTime":"25:00"}`, actor: &domain.Actor{Role: domain.ActorCustomer, UserID: 7}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockUseCase{}

			rec := httptest.NewRecorder()
			NewHandler(uc, logger.Discard()).Handle(rec, newRequest(tt.body, tt.actor))

			assert.Equal(t, tt.wantStatus, rec.Code)
			uc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

package get_available_slots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	getAvailableSlots "github.com/m04kA/SMC-SchedulingService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
)

type fakeUseCase struct {
	resp *getAvailableSlots.Response
	err  error
	got  *getAvailableSlots.Request
}

func (f *fakeUseCase) Execute(_ context.Context, req *getAvailableSlots.Request) (*getAvailableSlots.Response, error) {
	f.got = req
	return f.resp, f.err
}

func get(h *Handler, serviceID, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/"+serviceID+"/available-slots"+query, nil)
	req = mux.SetURLVars(req, map[string]string{"serviceId": serviceID})
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandler_Slots(t *testing.T) {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	uc := &fakeUseCase{resp: &getAvailableSlots.Response{
		Date:            date,
		ServiceID:       2,
		BusinessID:      1,
		DurationMinutes: 60,
		Slots: []getAvailableSlots.Slot{
			{StartTime: "09:00", EndTime: "10:00"},
			{StartTime: "11:00", EndTime: "12:00"},
		},
	}}

	rec := get(NewHandler(uc, logger.Discard()), "2", "?date=2024-01-10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), uc.got.ServiceID)
	assert.True(t, uc.got.Date.Equal(date))

	var resp AvailableSlotsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "2024-01-10", resp.Date)
	assert.Equal(t, []SlotResponse{{StartTime: "09:00", EndTime: "10:00"}, {StartTime: "11:00", EndTime: "12:00"}}, resp.Slots)
}

func TestHandler_EmptyDayEncodesEmptyList(t *testing.T) {
	uc := &fakeUseCase{resp: &getAvailableSlots.Response{
		Date:            time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		ServiceID:       3,
		NotAvailableDay: true,
	}}

	rec := get(NewHandler(uc, logger.Discard()), "3", "?date=2024-01-14")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2024-01-14","serviceId":3,"businessId":0,"durationMinutes":0,"notAvailableDay":true,"slots":[]}`, rec.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		serviceID  string
		query      string
		err        error
		wantStatus int
	}{
		{name: "bad service id", serviceID: "x", query: "?date=2024-01-10", wantStatus: http.StatusBadRequest},
		{name: "missing date", serviceID: "2", wantStatus: http.StatusBadRequest},
		{name: "bad date", serviceID: "2", query: "?date=tomorrow", wantStatus: http.StatusBadRequest},
		{name: "service not found", serviceID: "2", query: "?date=2024-01-10", err: getAvailableSlots.ErrServiceNotFound, wantStatus: http.StatusNotFound},
		{name: "past date", serviceID: "2", query: "?date=2024-01-10", err: getAvailableSlots.ErrInvalidDate, wantStatus: http.StatusBadRequest},
		{name: "internal", serviceID: "2", query: "?date=2024-01-10", err: getAvailableSlots.ErrInternal, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(NewHandler(&fakeUseCase{err: tt.err}, logger.Discard()), tt.serviceID, tt.query)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

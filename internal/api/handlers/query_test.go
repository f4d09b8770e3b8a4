package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?serviceId=4&startDate=2024-01-10&status=pending&bad=-1&day=10.01", nil)

	id, err := QueryInt64(r, "serviceId")
	require.NoError(t, err)
	assert.Equal(t, int64(4), *id)

	missing, err := QueryInt64(r, "recurringId")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = QueryInt64(r, "bad")
	assert.Error(t, err)

	date, err := QueryDate(r, "startDate")
	require.NoError(t, err)
	assert.True(t, date.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))

	_, err = QueryDate(r, "day")
	assert.Error(t, err)

	assert.Equal(t, "pending", *QueryString(r, "status"))
	assert.Nil(t, QueryString(r, "endDate"))
}

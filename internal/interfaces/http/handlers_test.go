package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormeda/labdesk/internal/apperr"
)

func periodContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/stats?"+query, nil)
	return c
}

func TestParsePeriodRejectsReversedCustomRange(t *testing.T) {
	c := periodContext(t, "period=custom&start=2026-01-02&end=2026-01-01")

	_, err := parsePeriod(c)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParsePeriodAcceptsSingleDayCustomRange(t *testing.T) {
	c := periodContext(t, "period=custom&start=2026-01-01&end=2026-01-01")

	dr, err := parsePeriod(c)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, dr.Start.AddDate(0, 0, 1), dr.End, "bare end date spans through the end of that day")
}

func TestParsePeriodRejectsMalformedBounds(t *testing.T) {
	c := periodContext(t, "period=custom&start=yesterday&end=2026-01-01")

	_, err := parsePeriod(c)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

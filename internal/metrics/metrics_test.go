package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Requests.WithLabelValues("/items/:id", "204")))
}

func TestCheckoutCounters(t *testing.T) {
	m := New("test")
	m.CheckoutSucceeded(3, 2700)
	m.CheckoutFailed("insufficient_stock")
	m.OrderCancelled()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues("success")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ReservedUnits))
	assert.Equal(t, float64(2700), testutil.ToFloat64(m.Revenue))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Cancellations))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "marketplace_test_checkouts_total"))
}

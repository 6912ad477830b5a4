package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/pizza-bot/internal/metrics"
)

func TestMetrics_Observe(t *testing.T) {
	m := metrics.New()

	m.ObserveTransition("viewing_cart", "awaiting_location")
	m.ObserveTransition("viewing_cart", "awaiting_location")
	m.ObserveOrder("delivery", 1000)
	m.ObserveOrder("delivery", 250)
	m.ObserveTokenRefresh(nil)
	m.ObserveTokenRefresh(errors.New("401"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("viewing_cart", "awaiting_location")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Orders.WithLabelValues("delivery")))
	assert.Equal(t, 1250.0, testutil.ToFloat64(m.OrderAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Events.WithLabelValues("callback").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `pizza_bot_events_total{kind="callback"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

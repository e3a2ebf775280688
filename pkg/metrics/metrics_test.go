package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysv/peatio-core/internal/common/config"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(config.MetricsConfig{Namespace: "ranger_test"})

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.AuthResult("success")
	m.AuthResult("failure")
	m.EventConsumed("public")
	m.EventDelivered("public")
	m.EventDropped("queue_full")

	families, err := m.registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ranger_test_connections"])
	assert.True(t, names["ranger_test_auth_total"])
	assert.True(t, names["ranger_test_events_consumed_total"])
	assert.True(t, names["ranger_test_events_delivered_total"])
	assert.True(t, names["ranger_test_events_dropped_total"])
}

func TestMetrics_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "ranger_test"})
	m.EventDelivered("private")

	router := gin.New()
	router.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ranger_test_events_delivered_total")
}

package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Init()
	Init()

	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/api/v1/transfers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := HTTP.RequestsTotal.WithLabelValues("GET", "/api/v1/transfers/:id", "200")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transfers/abc", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTP.InFlight))
}

func TestStreamsAreCountedSeparately(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Init()

	var during float64
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/api/v1/transfers/:id/stream", func(c *gin.Context) {
		during = testutil.ToFloat64(HTTP.ActiveStreams)
		c.Status(http.StatusSwitchingProtocols)
	})

	base := testutil.ToFloat64(HTTP.ActiveStreams)
	histBefore := testutil.CollectAndCount(HTTP.RequestDuration)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/abc/stream", nil)
	req.Header.Set("Connection", "upgrade")
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, base+1, during)
	assert.Equal(t, base, testutil.ToFloat64(HTTP.ActiveStreams))
	assert.Equal(t, histBefore, testutil.CollectAndCount(HTTP.RequestDuration), "streams are not timed")
}

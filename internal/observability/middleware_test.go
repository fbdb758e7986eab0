package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/diagctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestMiddlewareLabelsRoutesAndPeripherals(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	RegisterMetrics()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	e := gin.New()
	e.Use(RequestLogger(logger), RequestMetricsMiddleware("mw-test"))
	e.GET("/peripherals/:name", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/peripherals/modem", "/nowhere"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	if got := testutil.ToFloat64(httpRequests.WithLabelValues("mw-test", "GET", "/peripherals/:name", "200")); got != 1 {
		t.Fatalf("expected one routed request, got %v", got)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("mw-test", "GET", unmatchedRoute, "404")); got != 1 {
		t.Fatalf("expected unmatched request under bounded label, got %v", got)
	}
	out := buf.String()
	if !strings.Contains(out, `"peripheral":"modem"`) || !strings.Contains(out, `"route":"unmatched"`) {
		t.Fatalf("unexpected request log: %s", out)
	}
}

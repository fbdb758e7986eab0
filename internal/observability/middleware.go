package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// unmatchedRoute labels requests gin could not route, keeping the path
// label bounded.
const unmatchedRoute = "unmatched"

// quietRoutes are polled by scrapers and probes; they log at trace.
var quietRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

func routeOf(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return unmatchedRoute
}

// RequestLogger logs one event per admin request. Requests naming a
// peripheral carry it as a field.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			if _, quiet := quietRoutes[route]; quiet {
				event = logger.Trace()
			} else {
				event = logger.Debug()
			}
		}
		if name := c.Param("name"); name != "" {
			event = event.Str("peripheral", name)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("admin request")
	}
}

func RequestMetricsMiddleware(server string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(server, c.Request.Method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}

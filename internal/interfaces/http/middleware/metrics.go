package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records served requests. *telemetry.Registry implements it.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration, size int)
}

// InFlightTracker is optionally implemented by an HTTPObserver to track
// concurrent requests.
type InFlightTracker interface {
	IncInFlight()
	DecInFlight()
}

// HTTPMetrics returns a middleware that reports every request to obs.
// Routes are labelled by their template so path parameters such as ids
// never reach the label set.
func HTTPMetrics(obs HTTPObserver) gin.HandlerFunc {
	if obs == nil {
		return func(c *gin.Context) { c.Next() }
	}
	tracker, _ := obs.(InFlightTracker)

	return func(c *gin.Context) {
		if tracker != nil {
			tracker.IncInFlight()
			defer tracker.DecInFlight()
		}
		start := time.Now()

		c.Next()

		obs.ObserveHTTP(c.Request.Method, getRoutePattern(c), c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}

// getRoutePattern returns the matched route template, or "" for 404s.
func getRoutePattern(c *gin.Context) string {
	return c.FullPath()
}

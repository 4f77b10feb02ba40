package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flameberry/PrimePatrol/observability"
)

// Metrics records request counts and latency per matched route.
func Metrics(service string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.ObserveRequest(service, ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status()), time.Since(start).Seconds())
	}
}

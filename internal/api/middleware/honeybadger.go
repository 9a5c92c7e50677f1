package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/reporting"
	"github.com/gin-gonic/gin"
)

// ErrorReporting forwards panics and 5xx responses to the reporter.
// On panic, it reports and re-panics to allow gin.Recovery to handle the response.
func ErrorReporting(reporter reporting.Reporter) gin.HandlerFunc {
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				reporter.Report(
					fmt.Errorf("panic: %s %s: %v", c.Request.Method, c.Request.URL.Path, rec),
					[]string{"panic", "http"},
					map[string]any{"stack": string(debug.Stack())},
				)
				logger.WithComponent("http").Errorf("recovered from panic, reported: %v", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		switch {
		case status >= 500:
			reporter.Report(
				fmt.Errorf("HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path),
				[]string{"5XX", "http"},
				map[string]any{"path": c.FullPath()},
			)
			logger.WithComponent("http").Warnf("reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
		case status >= 400 && status != 404:
			logger.WithComponent("http").Debugf("HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
		}
	}
}

package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	errs []error
	tags [][]string
}

func (r *recordingReporter) Report(err error, tags []string, _ map[string]any) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordingReporter) Flush() {}

func newReportingEngine(rep *recordingReporter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorReporting(rep))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/conflict", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	return r
}

func TestErrorReporting_IgnoresSuccessAndClientErrors(t *testing.T) {
	rep := &recordingReporter{}
	r := newReportingEngine(rep)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok").Code)
	assert.Equal(t, http.StatusConflict, serve(r, http.MethodGet, "/conflict").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/missing").Code)
	assert.Empty(t, rep.errs)
}

func TestErrorReporting_Reports5xx(t *testing.T) {
	rep := &recordingReporter{}
	r := newReportingEngine(rep)

	w := serve(r, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, rep.errs, 1)
	assert.Contains(t, rep.errs[0].Error(), "HTTP 500: GET /boom")
	assert.Equal(t, []string{"5XX", "http"}, rep.tags[0])
}

func TestErrorReporting_ReportsPanicAndRepanics(t *testing.T) {
	rep := &recordingReporter{}
	r := newReportingEngine(rep)

	w := serve(r, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, rep.errs, 1)
	assert.Contains(t, rep.errs[0].Error(), "kaboom")
	assert.Equal(t, []string{"panic", "http"}, rep.tags[0])
}

func TestErrorReporting_NilReporter(t *testing.T) {
	r := gin.New()
	r.Use(ErrorReporting(nil))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.NotPanics(t, func() { serve(r, http.MethodGet, "/boom") })
}

package route

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bassista/go_weightsync/internal/app"
	"github.com/bassista/go_weightsync/internal/config"
	"github.com/bassista/go_weightsync/internal/measure"
	"github.com/bassista/go_weightsync/internal/notify"
	"github.com/bassista/go_weightsync/internal/orchestrator"
	"github.com/bassista/go_weightsync/internal/provider/fitbit"
	"github.com/bassista/go_weightsync/internal/reporting"
	"github.com/bassista/go_weightsync/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct{ err error }

func (s stubTokens) Acquire(context.Context, repository.Provider) (*repository.TokenRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &repository.TokenRecord{AccessToken: "access"}, nil
}

type stubSource struct{}

func (stubSource) GetMeasures(context.Context, string, time.Time) ([]measure.Group, error) {
	return nil, nil
}

type stubBodyLog struct{}

func (stubBodyLog) LogWeight(context.Context, string, string, string, string) (*fitbit.PostResult, error) {
	return &fitbit.PostResult{StatusCode: http.StatusCreated}, nil
}

func (stubBodyLog) LogFat(context.Context, string, string, string, string) (*fitbit.PostResult, error) {
	return &fitbit.PostResult{StatusCode: http.StatusCreated}, nil
}

func newTestEngine(t *testing.T, tokenErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Schedule: config.ScheduleConfig{Cron: "0 12 * * *", Timezone: "UTC", RunMode: config.RunModeScheduled, Location: time.UTC},
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
	}
	sync := orchestrator.New(orchestrator.Settings{Location: time.UTC}, stubTokens{err: tokenErr}, stubSource{}, stubBodyLog{}, notify.LogNotifier{}, reporting.NopReporter{})

	appCtx, err := app.New(cfg, sync, notify.LogNotifier{}, reporting.NopReporter{})
	require.NoError(t, err)
	t.Cleanup(appCtx.Shutdown)

	return SetupRoutes(appCtx)
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	r := newTestEngine(t, nil)

	w := serve(r, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"UP"}`, w.Body.String())
}

func TestSetupRoutes_Configuration(t *testing.T) {
	r := newTestEngine(t, nil)

	w := serve(r, http.MethodGet, "/configuration")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cron":"0 12 * * *"`)
}

func TestSetupRoutes_SyncThenStatus(t *testing.T) {
	r := newTestEngine(t, nil)

	w := serve(r, http.MethodGet, "/sync/status")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPost, "/sync")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"no_data"`)

	w = serve(r, http.MethodGet, "/sync/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"no_data"`)
}

func TestSetupRoutes_FailedSyncIsReportedInBody(t *testing.T) {
	r := newTestEngine(t, errors.New("invalid_grant"))

	w := serve(r, http.MethodPost, "/sync")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"failed"`)
	assert.Contains(t, w.Body.String(), "invalid_grant")
}

func TestSetupRoutes_MethodAndPathMismatch(t *testing.T) {
	r := newTestEngine(t, nil)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/sync").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/containers").Code)
}

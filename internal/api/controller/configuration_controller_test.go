package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bassista/go_weightsync/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationController_GetConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		cfg          config.Config
		wantNextRun  *time.Time
		wantNotified bool
	}{
		{
			name: "scheduled mode reports next run",
			cfg: config.Config{
				Schedule: config.ScheduleConfig{Cron: "0 12 * * *", Timezone: "UTC", RunMode: config.RunModeScheduled, Location: time.UTC},
				Misc:     config.MiscConfig{HTTPTimeout: 30 * time.Second},
			},
			wantNextRun: func() *time.Time { t := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC); return &t }(),
		},
		{
			name: "manual mode has no next run",
			cfg: config.Config{
				Schedule: config.ScheduleConfig{Cron: "0 12 * * *", Timezone: "UTC", RunMode: config.RunModeManual, Location: time.UTC},
				Notify:   config.NotifyConfig{PushoverUser: "u", PushoverToken: "t"},
			},
			wantNotified: true,
		},
		{
			name: "unparseable cron is omitted",
			cfg: config.Config{
				Schedule: config.ScheduleConfig{Cron: "whenever", RunMode: config.RunModeScheduled},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cc := NewConfigurationController(&cfg)
			cc.now = func() time.Time { return now }

			r := gin.New()
			r.GET("/configuration", cc.GetConfiguration)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/configuration", nil))

			require.Equal(t, http.StatusOK, w.Code)
			var body ConfigurationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

			assert.Equal(t, string(cfg.Schedule.RunMode), body.RunMode)
			assert.Equal(t, cfg.Schedule.Cron, body.Cron)
			assert.Equal(t, tt.wantNotified, body.NotificationsEnabled)
			if tt.wantNextRun == nil {
				assert.Nil(t, body.NextRun)
			} else {
				require.NotNil(t, body.NextRun)
				assert.True(t, tt.wantNextRun.Equal(*body.NextRun), "next run %s", body.NextRun)
			}
		})
	}
}

func TestConfigurationController_NeverExposesSecrets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Notify:   config.NotifyConfig{PushoverUser: "user-key", PushoverToken: "app-token"},
		Withings: config.ProviderConfig{ClientID: "wid", ClientSecret: "withings-secret", RefreshToken: "withings-refresh"},
		Fitbit:   config.ProviderConfig{ClientID: "fid", RefreshToken: "fitbit-refresh"},
		Schedule: config.ScheduleConfig{Cron: "0 12 * * *", RunMode: config.RunModeManual},
	}

	r := gin.New()
	r.GET("/configuration", NewConfigurationController(&cfg).GetConfiguration)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/configuration", nil))

	for _, secret := range []string{"user-key", "app-token", "withings-secret", "withings-refresh", "fitbit-refresh"} {
		assert.NotContains(t, w.Body.String(), secret)
	}
}

package controller

import (
	"net/http"
	"time"

	"github.com/bassista/go_weightsync/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// ConfigurationResponse is the non-secret part of the configuration.
type ConfigurationResponse struct {
	RunMode              string     `json:"runMode"`
	Cron                 string     `json:"cron"`
	Timezone             string     `json:"timezone"`
	NextRun              *time.Time `json:"nextRun,omitempty"`
	NotificationsEnabled bool       `json:"notificationsEnabled"`
	Debug                bool       `json:"debug"`
	HTTPTimeoutSec       int        `json:"httpTimeoutSec"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
	now    func() time.Time
}

func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
		now:    time.Now,
	}
}

// GetConfiguration returns the effective schedule and feature switches.
// Credentials and tokens are never included.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	sc := cc.config.Schedule
	response := ConfigurationResponse{
		RunMode:              string(sc.RunMode),
		Cron:                 sc.Cron,
		Timezone:             sc.Timezone,
		NotificationsEnabled: cc.config.Notify.Enabled(),
		Debug:                cc.config.Misc.Debug,
		HTTPTimeoutSec:       int(cc.config.Misc.HTTPTimeout / time.Second),
	}

	if sc.RunMode == config.RunModeScheduled {
		if schedule, err := cron.ParseStandard(sc.Cron); err == nil {
			loc := sc.Location
			if loc == nil {
				loc = time.Local
			}
			next := schedule.Next(cc.now().In(loc))
			response.NextRun = &next
		}
	}

	c.JSON(http.StatusOK, response)
}

package route

import (
	"net/http"

	"github.com/bassista/go_weightsync/internal/api/middleware"
	"github.com/bassista/go_weightsync/internal/app"
	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the control server: health, configuration, and manual
// sync trigger plus last-result status.
func SetupRoutes(appCtx *app.App) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorReporting(appCtx.Reporter))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	publicRouter := r.Group("")
	timeout := appCtx.Config.Server.RequestTimeout

	NewConfigurationRouter(timeout, publicRouter, appCtx.Config)
	NewSyncRouter(timeout, publicRouter, appCtx.Sync)

	return r
}

package route

import (
	"time"

	"github.com/bassista/go_weightsync/internal/api/controller"
	"github.com/bassista/go_weightsync/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

func NewSyncRouter(timeout time.Duration, group *gin.RouterGroup, runner controller.SyncRunner) {
	sc := controller.NewSyncController(runner)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("sync/status", sc.Status)
	group.POST("sync", timeoutMiddleware, sc.Trigger)
}

package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// SyncRunner is the part of the orchestrator exposed over HTTP.
type SyncRunner interface {
	Run(ctx context.Context) orchestrator.Result
	LastResult() (orchestrator.Result, bool)
}

type SyncController struct {
	runner SyncRunner
}

func NewSyncController(runner SyncRunner) *SyncController {
	return &SyncController{runner: runner}
}

// Trigger runs one sync bound to the request context and returns its result.
// Failed runs are still 200: the outcome is in the body and the failure was
// already notified and reported by the orchestrator.
// Returns 409 when another run is in progress.
func (sc *SyncController) Trigger(c *gin.Context) {
	logger.WithComponent("sync_controller").Info("sync triggered over HTTP")

	res := sc.runner.Run(c.Request.Context())
	if res.Outcome == orchestrator.OutcomeSkipped {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status returns the result of the most recent completed run.
func (sc *SyncController) Status(c *gin.Context) {
	res, ok := sc.runner.LastResult()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sync has run yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

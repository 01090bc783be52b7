package controllers

import (
	"context"
	"net/http"

	"github.com/digibiomics/LungSense-main/jobs"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/gin-gonic/gin"
)

// JobQueue is the part of jobs.Queue the API uses.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType, accountID string, payload any) (jobs.Job, error)
	Get(ctx context.Context, id string) (jobs.Job, error)
}

// PredictionsController accepts prediction requests for the worker. A nil
// Queue means background jobs are disabled.
type PredictionsController struct {
	Queue JobQueue
}

func (p *PredictionsController) Enqueue(c *gin.Context) {
	if p.Queue == nil {
		respondError(c, jobs.ErrQueueUnavailable)
		return
	}
	var input jobs.PredictRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		security.SendValidationError(c, "Invalid input data", err.Error())
		return
	}
	if err := input.Validate(); err != nil {
		security.SendValidationError(c, err.Error(), nil)
		return
	}
	job, err := p.Queue.Enqueue(c.Request.Context(), jobs.TypePredict, currentActor(c).AccountID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// Get returns a job owned by the caller. Jobs of other accounts read as
// missing.
func (p *PredictionsController) Get(c *gin.Context) {
	if p.Queue == nil {
		respondError(c, jobs.ErrQueueUnavailable)
		return
	}
	job, err := p.Queue.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if job.AccountID != currentActor(c).AccountID {
		respondError(c, jobs.ErrJobNotFound)
		return
	}
	c.JSON(http.StatusOK, job)
}

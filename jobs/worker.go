package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Handler runs one job and returns a JSON-encodable result.
type Handler func(ctx context.Context, job Job) (any, error)

type Worker struct {
	queue    *Queue
	handlers map[string]Handler
	wait     time.Duration
}

func NewWorker(queue *Queue) *Worker {
	return &Worker{queue: queue, handlers: map[string]Handler{}, wait: 2 * time.Second}
}

func (w *Worker) Handle(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// Run processes jobs until ctx is cancelled. Queue outages are logged and
// retried after a pause.
func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		_, err := w.RunOnce(ctx)
		switch {
		case err == nil, errors.Is(err, ErrJobNotFound):
		case ctx.Err() != nil:
			return
		default:
			log.Printf("Job worker error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// RunOnce waits for a single job and runs it. processed reports whether a job
// was taken off the queue.
func (w *Worker) RunOnce(ctx context.Context) (processed bool, err error) {
	job, err := w.queue.Dequeue(ctx, w.wait)
	if err != nil {
		return false, err
	}

	h, ok := w.handlers[job.Type]
	var result any
	var handlerErr error
	if !ok {
		handlerErr = fmt.Errorf("no handler for job type %q", job.Type)
	} else {
		result, handlerErr = h(ctx, job)
	}
	if handlerErr != nil {
		log.Printf("Job %s (%s) failed: %v", job.ID, job.Type, handlerErr)
	}
	if _, err := w.queue.Complete(ctx, job, result, handlerErr); err != nil {
		return true, err
	}
	return true, nil
}

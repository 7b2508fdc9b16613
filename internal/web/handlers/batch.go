package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-studio/internal/pipeline"
	"github.com/kozaktomas/face-studio/internal/session"
)

// BatchHandler handles batch swap endpoints.
type BatchHandler struct {
	session    *session.Manager
	runner     *pipeline.Runner
	jobManager *JobManager
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(sess *session.Manager, runner *pipeline.Runner, jm *JobManager) *BatchHandler {
	return &BatchHandler{
		session:    sess,
		runner:     runner,
		jobManager: jm,
	}
}

// Start kicks off a batch swap over every currently idle target.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	if len(h.session.Sources()) == 0 {
		respondError(w, http.StatusBadRequest, "no source images uploaded")
		return
	}
	if h.runner.Running() {
		respondError(w, http.StatusConflict, "a batch is already running")
		return
	}
	if len(h.session.IdleTargetIDs()) == 0 {
		respondError(w, http.StatusBadRequest, "no idle targets to process")
		return
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID)

	go h.runSwapJob(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

// Status returns the status of a batch job.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE.
func (h *BatchHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			swapJob, ok := job.(*SwapJob)
			if !ok {
				return nil
			}
			return swapJob.Snapshot()
		},
	)
}

// runSwapJob runs the batch in the background. There is no cancel endpoint:
// once started, a batch runs its worklist to the end. The job context exists
// so a server shutdown can stop the run; items not reached stay idle.
func (h *BatchHandler) runSwapJob(job *SwapJob) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	total := len(h.session.IdleTargetIDs())
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.TotalTargets = total
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Data: map[string]int{"total": total}})

	summary, err := h.runner.Run(ctx, func(p pipeline.Progress) {
		job.mu.Lock()
		job.ProcessedTargets = p.Done
		if p.Total > 0 {
			job.Progress = int(float64(p.Done) / float64(p.Total) * 100)
		}
		job.mu.Unlock()
		job.SendEvent(JobEvent{
			Type: "progress",
			Data: map[string]any{
				"target_id": p.TargetID,
				"status":    string(p.Status),
				"done":      p.Done,
				"total":     p.Total,
			},
		})
	})

	if err != nil {
		if ctx.Err() != nil {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.Result = &summary
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
			return
		}
		if errors.Is(err, pipeline.ErrBatchRunning) {
			h.failJob(job, "a batch is already running")
			return
		}
		h.failJob(job, err.Error())
		return
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.ProcessedTargets = summary.Completed + summary.Failed
	job.Progress = 100
	job.Result = &summary
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: summary})
}

func (h *BatchHandler) failJob(job *SwapJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}

package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-studio/internal/constants"
	"github.com/kozaktomas/face-studio/internal/pipeline"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// SwapJob represents an async face-swap batch job. The mutable fields are
// guarded by the broadcaster mutex; serialize through Snapshot, never the job
// itself.
type SwapJob struct {
	EventBroadcaster

	ID               string
	Status           JobStatus
	Progress         int
	TotalTargets     int
	ProcessedTargets int
	Error            string
	StartedAt        time.Time
	CompletedAt      *time.Time
	Result           *pipeline.Summary
}

// JobSnapshot is a point-in-time copy of a job, safe to serialize while the
// job is still being mutated by the batch goroutine.
type JobSnapshot struct {
	ID               string            `json:"id"`
	Status           JobStatus         `json:"status"`
	Progress         int               `json:"progress"`
	TotalTargets     int               `json:"total_targets"`
	ProcessedTargets int               `json:"processed_targets"`
	Error            string            `json:"error,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Result           *pipeline.Summary `json:"result,omitempty"`
}

// Snapshot returns a consistent copy of the job taken under the lock.
func (j *SwapJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobSnapshot{
		ID:               j.ID,
		Status:           j.Status,
		Progress:         j.Progress,
		TotalTargets:     j.TotalTargets,
		ProcessedTargets: j.ProcessedTargets,
		Error:            j.Error,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		Result:           j.Result,
	}
}

// GetStatus returns the current job status (implements SSEJob).
func (j *SwapJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the swap job.
func (j *SwapJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*SwapJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*SwapJob),
	}
}

// CreateJob creates a new swap job.
func (m *JobManager) CreateJob(id string) *SwapJob {
	job := &SwapJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *SwapJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*SwapJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*SwapJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

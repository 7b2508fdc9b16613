package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/pipeline"
	"github.com/kozaktomas/face-studio/internal/session"
)

func newBatchFixture(t *testing.T) (*BatchHandler, *session.Manager) {
	t.Helper()
	sess := newTestSession(t)
	runner := pipeline.NewRunner(sess, sess.Images(), &stubProvider{})
	runner.SetPacing(0)
	return NewBatchHandler(sess, runner, NewJobManager()), sess
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(t *testing.T, h *BatchHandler, jobID string) *SwapJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job := h.jobManager.GetJob(jobID)
		if job != nil && isJobTerminal(job.GetStatus()) {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestBatchStart_RunsAllTargets(t *testing.T) {
	h, sess := newBatchFixture(t)
	sess.AddSourceImage([]byte("identity"))
	ref, _ := sess.Images().Put([]byte("target"))
	sess.AddTarget(ref)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil))

	assertStatusCode(t, rec, http.StatusAccepted)
	var resp map[string]string
	parseJSONResponse(t, rec, &resp)
	if resp["job_id"] == "" {
		t.Fatal("expected job_id in response")
	}

	job := waitForJob(t, h, resp["job_id"])
	snap := job.Snapshot()
	if snap.Status != JobStatusCompleted {
		t.Errorf("expected job completed, got '%s'", snap.Status)
	}
	if snap.Result == nil || snap.Result.Completed != 1 {
		t.Errorf("expected 1 completed target, got %+v", snap.Result)
	}

	targets := sess.Targets()
	if targets[0].Status != session.StatusCompleted {
		t.Errorf("expected target completed, got '%s'", targets[0].Status)
	}
}

func TestBatchStart_NoSources(t *testing.T) {
	h, sess := newBatchFixture(t)
	ref, _ := sess.Images().Put([]byte("target"))
	sess.AddTarget(ref)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil))

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "no source images uploaded")
}

func TestBatchStart_NoIdleTargets(t *testing.T) {
	h, sess := newBatchFixture(t)
	sess.AddSourceImage([]byte("identity"))

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil))

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "no idle targets to process")
}

func TestBatchStatus_NotFound(t *testing.T) {
	h, _ := newBatchFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch/nope", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "nope"})
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestBatchStatus(t *testing.T) {
	h, sess := newBatchFixture(t)
	sess.AddSourceImage([]byte("identity"))
	ref, _ := sess.Images().Put([]byte("target"))
	sess.AddTarget(ref)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil))
	var resp map[string]string
	parseJSONResponse(t, rec, &resp)
	waitForJob(t, h, resp["job_id"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch/"+resp["job_id"], nil)
	req = requestWithChiParams(req, map[string]string{"jobId": resp["job_id"]})
	statusRec := httptest.NewRecorder()
	h.Status(statusRec, req)

	assertStatusCode(t, statusRec, http.StatusOK)
	var snap JobSnapshot
	parseJSONResponse(t, statusRec, &snap)
	if snap.Status != JobStatusCompleted {
		t.Errorf("expected completed job, got '%s'", snap.Status)
	}
	if snap.TotalTargets != 1 || snap.ProcessedTargets != 1 {
		t.Errorf("unexpected counters: %+v", snap)
	}
}

// gatedProvider suspends the first swap call until released so tests can
// observe a job mid-run.
type gatedProvider struct {
	stubProvider
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *gatedProvider) SwapFace(ctx context.Context, sources [][]byte, target []byte, settings ai.SwapSettings) ([]byte, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.stubProvider.SwapFace(ctx, sources, target, settings)
}

func TestBatchStatus_WhileRunning(t *testing.T) {
	sess := newTestSession(t)
	provider := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	runner := pipeline.NewRunner(sess, sess.Images(), provider)
	runner.SetPacing(0)
	h := NewBatchHandler(sess, runner, NewJobManager())

	sess.AddSourceImage([]byte("identity"))
	ref, _ := sess.Images().Put([]byte("target"))
	sess.AddTarget(ref)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil))
	var resp map[string]string
	parseJSONResponse(t, rec, &resp)

	// Poll the status while the engine call is suspended mid-batch.
	<-provider.started
	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch/"+resp["job_id"], nil)
	req = requestWithChiParams(req, map[string]string{"jobId": resp["job_id"]})
	statusRec := httptest.NewRecorder()
	h.Status(statusRec, req)

	assertStatusCode(t, statusRec, http.StatusOK)
	var snap JobSnapshot
	parseJSONResponse(t, statusRec, &snap)
	if snap.Status != JobStatusRunning {
		t.Errorf("expected running job, got '%s'", snap.Status)
	}
	if snap.TotalTargets != 1 {
		t.Errorf("expected 1 total target, got %d", snap.TotalTargets)
	}

	close(provider.release)
	waitForJob(t, h, resp["job_id"])
}

// Package pipeline runs face-swap batches: it walks the idle targets of a
// session one by one, calls the generative engine for each and records the
// outcome on the session model.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/session"
)

// defaultPacing is the pause between consecutive engine calls. The swap
// endpoint is rate limited upstream; hammering it buys nothing but 429s.
const defaultPacing = 1 * time.Second

// ErrBatchRunning is returned when a batch is started while another one is
// still in flight.
var ErrBatchRunning = errors.New("a batch is already running")

// ErrNoSources is returned when a batch is started without a source identity.
var ErrNoSources = errors.New("no source images uploaded")

// Summary is the outcome of one batch run.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Progress describes one finished work item. Delivered synchronously from the
// batch goroutine, so callbacks must not block.
type Progress struct {
	TargetID string
	Status   session.TargetStatus
	Done     int
	Total    int
}

// Runner executes swap batches against one session. Only one batch may run at
// a time.
type Runner struct {
	session  *session.Manager
	images   *imagestore.Store
	provider ai.Provider
	pacing   time.Duration

	mu      sync.Mutex
	running bool
}

// NewRunner creates a batch runner with the default pacing interval.
func NewRunner(sess *session.Manager, images *imagestore.Store, provider ai.Provider) *Runner {
	return &Runner{
		session:  sess,
		images:   images,
		provider: provider,
		pacing:   defaultPacing,
	}
}

// SetPacing overrides the pause between engine calls. Zero disables pacing;
// tests use that.
func (r *Runner) SetPacing(d time.Duration) {
	r.pacing = d
}

// Running reports whether a batch is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run processes every target that is idle at the moment the batch starts.
// The worklist is fixed up front; items added mid-run wait for the next
// batch. Each item is revalidated against the live model right before
// dispatch, so targets removed mid-run are skipped. Failures are isolated:
// one failed item never stops the rest.
//
// onProgress may be nil. Run blocks until the batch finishes or ctx is
// cancelled; remaining items stay idle on cancellation.
func (r *Runner) Run(ctx context.Context, onProgress func(Progress)) (Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return Summary{}, ErrBatchRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	sources, err := r.loadSources()
	if err != nil {
		return Summary{}, err
	}

	worklist := r.session.IdleTargetIDs()
	summary := Summary{Total: len(worklist)}

	for i, id := range worklist {
		if i > 0 && r.pacing > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(r.pacing):
			}
		}
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		status := r.processTarget(ctx, id, sources)
		switch status {
		case session.StatusCompleted:
			summary.Completed++
		case session.StatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
			continue
		}

		if onProgress != nil {
			onProgress(Progress{
				TargetID: id,
				Status:   status,
				Done:     summary.Completed + summary.Failed,
				Total:    summary.Total,
			})
		}
	}

	if summary.Completed > 0 {
		r.session.BookmarkLastGoodSource(ctx)
	}
	return summary, nil
}

// loadSources reads the source identity bytes once for the whole batch.
func (r *Runner) loadSources() ([][]byte, error) {
	refs := r.session.Sources()
	if len(refs) == 0 {
		return nil, ErrNoSources
	}

	sources := make([][]byte, 0, len(refs))
	for _, ref := range refs {
		data, err := r.images.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read source image %s: %w", ref, err)
		}
		sources = append(sources, data)
	}
	return sources, nil
}

// processTarget runs one item end to end and returns its terminal status, or
// the empty status when the item was skipped.
func (r *Runner) processTarget(ctx context.Context, id string, sources [][]byte) session.TargetStatus {
	// Revalidate against the live model: the item may have been removed or
	// changed since the worklist was taken.
	item, ok := r.session.Target(id)
	if !ok || item.Status != session.StatusIdle {
		return ""
	}
	if !r.session.MarkProcessing(id) {
		return ""
	}

	processed, err := r.swapOne(ctx, item.Original, sources)
	if err != nil {
		log.Printf("swap failed for target %s: %v", id, err)
		r.session.MarkFailed(id, err.Error())
		return session.StatusFailed
	}

	r.session.MarkCompleted(id, processed)
	return session.StatusCompleted
}

func (r *Runner) swapOne(ctx context.Context, original imagestore.Ref, sources [][]byte) (imagestore.Ref, error) {
	target, err := r.images.Get(original)
	if err != nil {
		return "", fmt.Errorf("failed to read target image: %w", err)
	}

	// Settings are read at dispatch time, so edits made mid-run apply to the
	// items that have not been dispatched yet.
	result, err := r.provider.SwapFace(ctx, sources, target, r.session.Settings())
	if err != nil {
		return "", err
	}

	ref, err := r.images.Put(result)
	if err != nil {
		return "", fmt.Errorf("failed to store swapped image: %w", err)
	}
	return ref, nil
}

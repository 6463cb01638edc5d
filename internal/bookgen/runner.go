package bookgen

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/model"
)

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

var ErrRunnerClosed = errors.New("design runner is closed")

type Job struct {
	ID         string    `json:"design_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type step struct {
	progress int
	message  string
}

var steps = []step{
	{10, "Préparation des messages..."},
	{25, "Génération de la mise en page..."},
	{40, "Application du style visuel..."},
	{60, "Optimisation des images..."},
	{75, "Génération des illustrations IA..."},
	{90, "Finalisation du document..."},
	{100, "Livre terminé!"},
}

type RunnerOption func(*Runner)

// WithStepDelay sets the pause between steps to a random value in [lo, hi).
func WithStepDelay(lo, hi time.Duration) RunnerOption {
	return func(r *Runner) {
		r.delay = func() time.Duration {
			if hi <= lo {
				return lo
			}
			return lo + rand.N(hi-lo)
		}
	}
}

// WithRetention sets how long finished jobs stay queryable.
func WithRetention(d time.Duration) RunnerOption {
	return func(r *Runner) { r.retention = d }
}

// Runner tracks book design jobs in memory. Each job runs in its own goroutine.
type Runner struct {
	store     *Store
	logger    *zap.Logger
	delay     func() time.Duration
	retention time.Duration

	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(store *Store, logger *zap.Logger, opts ...RunnerOption) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		store:     store,
		logger:    logger,
		retention: 24 * time.Hour,
		jobs:      make(map[string]*Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	WithStepDelay(time.Second, 3*time.Second)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Submit(d Design) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrRunnerClosed
	}
	r.prune(time.Now())

	id := uuid.NewString()
	r.jobs[id] = &Job{
		ID:        id,
		Status:    JobProcessing,
		Message:   "Initialisation du processus de création",
		CreatedAt: time.Now(),
	}

	r.wg.Add(1)
	go r.run(id, d)
	return id, nil
}

func (r *Runner) Status(id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, model.ErrNotFound
	}
	return *j, nil
}

// Cancel stops a processing job. Finished jobs are returned unchanged.
func (r *Runner) Cancel(id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, model.ErrNotFound
	}
	if j.Status == JobProcessing {
		j.Status = JobCancelled
		j.Message = "Création annulée par l'utilisateur"
	}
	return *j, nil
}

// Close stops all running jobs and waits for their goroutines.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(id string, d Design) {
	defer r.wg.Done()

	for _, s := range steps {
		if !r.processing(id) {
			return
		}

		if wait := r.delay(); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-r.ctx.Done():
				t.Stop()
				r.finish(id, JobCancelled, "Création interrompue")
				return
			case <-t.C:
			}
		}

		if s.progress == 100 {
			if _, err := r.store.SavePreview(id, func(w io.Writer) error {
				return Render(w, d, d.Messages)
			}); err != nil {
				r.logger.Error("failed to store preview", zap.String("design_id", id), zap.Error(err))
				r.finish(id, JobFailed, "La génération de l'aperçu a échoué")
				return
			}
		}

		r.mu.Lock()
		if j, ok := r.jobs[id]; ok && j.Status == JobProcessing {
			j.Progress = s.progress
			j.Message = s.message
			if s.progress == 100 {
				j.Status = JobCompleted
				j.PreviewURL = "/preview/" + id + ".html"
			}
		}
		r.mu.Unlock()
	}
}

func (r *Runner) processing(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return ok && j.Status == JobProcessing
}

func (r *Runner) finish(id string, status JobStatus, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok && j.Status == JobProcessing {
		j.Status = status
		j.Message = msg
	}
}

// prune drops finished jobs older than the retention. Callers hold mu.
func (r *Runner) prune(now time.Time) {
	for id, j := range r.jobs {
		if j.Status != JobProcessing && now.Sub(j.CreatedAt) > r.retention {
			delete(r.jobs, id)
		}
	}
}

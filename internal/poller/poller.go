package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateErrored    State = "errored"

	DefaultInterval = 60 * time.Second
	defaultJitter   = 2 * time.Second
)

var (
	ErrNotIdle    = errors.New("poller is not idle")
	ErrNotPolling = errors.New("poller has no job to poll")
)

// Client is the part of the job API the poller needs.
type Client interface {
	SubmitSequence(ctx context.Context, req api.SubmitSequenceRequest) (*api.SubmitSequenceResponse, error)
	JobStatus(ctx context.Context, jobID string) (*api.JobStatusResponse, error)
	CheckResult(ctx context.Context, jobID string) (*api.CheckResultResponse, error)
}

// Update is sent to the observer after every transition and every status check.
type Update struct {
	State    State
	JobID    string
	Status   api.JobStatus
	Progress *int
	Message  string
	Err      error
}

// Result is the outcome of a job that reached a final state.
type Result struct {
	JobID       string
	Status      api.JobStatus
	StorageURL  string
	Message     string
	CompletedAt *time.Time
}

type Option func(p *Poller)

func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		p.interval = interval
	}
}

// WithJitter sets the standard deviation applied to every tick.
func WithJitter(stdev time.Duration) Option {
	return func(p *Poller) {
		p.jitter = stdev
	}
}

func WithObserver(fn func(Update)) Option {
	return func(p *Poller) {
		p.observer = fn
	}
}

// Poller drives a single job from submission to a final state: idle, submitting, polling,
// then completed or errored. Resume jumps from idle straight to polling.
type Poller struct {
	client   Client
	interval time.Duration
	jitter   time.Duration
	observer func(Update)

	mu    sync.Mutex
	state State
	jobID string
}

func New(c Client, opts ...Option) *Poller {
	p := &Poller{
		client:   c,
		interval: DefaultInterval,
		jitter:   defaultJitter,
		state:    StateIdle,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) JobID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobID
}

// Submit sends the sequence and moves to polling. A rejected submission leaves the poller errored.
func (p *Poller) Submit(ctx context.Context, sequence, name string) (*api.SubmitSequenceResponse, error) {
	if err := p.transition(StateIdle, StateSubmitting, ""); err != nil {
		return nil, err
	}

	req := api.SubmitSequenceRequest{Sequence: sequence}
	if name != "" {
		req.Name = &name
	}

	resp, err := p.client.SubmitSequence(ctx, req)
	if err != nil {
		p.fail(err)
		return nil, fmt.Errorf("submitting sequence: %w", err)
	}

	p.mu.Lock()
	p.state = StatePolling
	p.jobID = resp.JobId
	p.mu.Unlock()
	p.notify(Update{State: StatePolling, JobID: resp.JobId, Status: resp.Status, Message: resp.Message})

	return resp, nil
}

// Resume starts polling a job submitted in another session.
func (p *Poller) Resume(jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	if err := p.transition(StateIdle, StatePolling, jobID); err != nil {
		return err
	}
	p.notify(Update{State: StatePolling, JobID: jobID})
	return nil
}

// Run checks the job immediately and then on every tick until it completes, fails or ctx
// is cancelled. No goroutine outlives Run.
func (p *Poller) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	state, jobID := p.state, p.jobID
	p.mu.Unlock()
	if state != StatePolling {
		return nil, ErrNotPolling
	}

	ticker := jitterbug.New(p.interval, &jitterbug.Norm{Stdev: p.jitter, Mean: 0})
	defer ticker.Stop()

	for {
		res, done, err := p.check(ctx, jobID)
		if done {
			return res, err
		}

		select {
		case <-ctx.Done():
			zap.S().Named("poller").Debugw("polling cancelled", "job_id", jobID)
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) check(ctx context.Context, jobID string) (*Result, bool, error) {
	status, err := p.client.JobStatus(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		p.fail(err)
		return nil, true, fmt.Errorf("checking job %s: %w", jobID, err)
	}

	p.notify(Update{State: StatePolling, JobID: jobID, Status: status.Status, Progress: status.Progress, Message: status.Message})

	switch status.Status {
	case api.JobStatusError:
		err := fmt.Errorf("prediction failed: %s", status.Error)
		p.fail(err)
		return &Result{JobID: jobID, Status: status.Status, Message: status.Message}, true, err
	case api.JobStatusCompleted:
		result, err := p.client.CheckResult(ctx, jobID)
		if err != nil {
			p.fail(err)
			return nil, true, fmt.Errorf("checking result of job %s: %w", jobID, err)
		}
		if result.Status != api.JobStatusCompleted {
			return nil, false, nil
		}

		p.mu.Lock()
		p.state = StateCompleted
		p.mu.Unlock()
		p.notify(Update{State: StateCompleted, JobID: jobID, Status: result.Status, Message: result.Message})

		return &Result{
			JobID:       jobID,
			Status:      result.Status,
			StorageURL:  result.StorageUrl,
			Message:     result.Message,
			CompletedAt: result.CompletedAt,
		}, true, nil
	default:
		return nil, false, nil
	}
}

func (p *Poller) transition(from, to State, jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return fmt.Errorf("%w: %s", ErrNotIdle, p.state)
	}
	p.state = to
	if jobID != "" {
		p.jobID = jobID
	}
	return nil
}

func (p *Poller) fail(err error) {
	p.mu.Lock()
	p.state = StateErrored
	jobID := p.jobID
	p.mu.Unlock()
	p.notify(Update{State: StateErrored, JobID: jobID, Err: err})
}

func (p *Poller) notify(u Update) {
	if p.observer != nil {
		p.observer(u)
	}
}

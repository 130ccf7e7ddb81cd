package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kubev2v/fold-planner/internal/events"
	"github.com/kubev2v/fold-planner/internal/handlers/validator"
	"github.com/kubev2v/fold-planner/internal/predictor"
	"github.com/kubev2v/fold-planner/internal/storage"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/internal/store/model"
	"github.com/kubev2v/fold-planner/pkg/log"
	"github.com/kubev2v/fold-planner/pkg/metrics"
)

const (
	MessageSubmitted      = "Sequence submitted successfully. Prediction is running."
	MessageDispatchFailed = "Sequence submitted but the prediction could not be started"
	MessageQueued         = "Job is queued"
	MessageProcessing     = "Prediction is still processing"
	MessageCompleted      = "Prediction completed"
	MessageFailed         = "Prediction failed"
)

// Predictor dispatches predictions and reports their progress.
type Predictor interface {
	Submit(ctx context.Context, req predictor.Request) error
	Progress(ctx context.Context, jobID string) (*predictor.Progress, error)
}

type EventWriter interface {
	WriteJobEvent(ctx context.Context, e events.JobEvent) error
}

type JobService struct {
	store     store.Store
	storage   storage.Adapter
	predictor Predictor
	validator *validator.Validator
	events    EventWriter
	now       func() time.Time
	logger    *log.StructuredLogger
}

type JobServiceOption func(s *JobService)

func WithEventWriter(w EventWriter) JobServiceOption {
	return func(s *JobService) {
		s.events = w
	}
}

func WithClock(now func() time.Time) JobServiceOption {
	return func(s *JobService) {
		s.now = now
	}
}

func NewJobService(s store.Store, a storage.Adapter, p Predictor, opts ...JobServiceOption) *JobService {
	js := &JobService{
		store:     s,
		storage:   a,
		predictor: p,
		validator: validator.NewSequenceValidator(),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.NewDebugLogger("job_service"),
	}
	for _, o := range opts {
		o(js)
	}
	return js
}

type SubmitResult struct {
	Job        model.Job
	StorageURL string
	Message    string
}

type JobStatus struct {
	Job        model.Job
	StorageURL string
	Uploaded   bool
	// Progress is the predictor progress in percent, only known while the job is processing.
	Progress *int
	Message  string
}

type ResultStatus struct {
	JobID       string
	Status      string
	StorageURL  string
	Message     string
	CompletedAt *time.Time
}

// Submit validates the sequence, queues a new job and dispatches it to the predictor.
// A dispatch failure is recorded on the job and is not returned.
func (s *JobService) Submit(ctx context.Context, sequence, name string) (*SubmitResult, error) {
	form := validator.NewSequenceForm(sequence, name)
	if err := s.validator.Struct(form); err != nil {
		return nil, NewErrInvalidSequence(err.Error())
	}

	id := uuid.NewString()
	objectName := storage.ObjectName(id)
	tracer := s.logger.WithContext(ctx).
		Operation("submit").
		WithString("job_id", id).
		WithParam("length", len(form.Sequence)).
		Build()

	storageURL, err := s.storage.ReadURL(ctx, objectName)
	if err != nil {
		tracer.Error(err).Log()
		return nil, NewErrStorageUnavailable(err)
	}

	job, err := s.store.Job().Enqueue(ctx, model.Job{
		ID:              id,
		Sequence:        form.Sequence,
		Name:            form.Name,
		ObjectKey:       objectName,
		StorageProvider: s.storage.Provider(),
		SubmittedAt:     s.now(),
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}
	tracer.Step("queued").Log()
	s.emit(ctx, *job)

	// the dispatch outlives a client that disconnects so the job never stays queued
	dispatchCtx := context.WithoutCancel(ctx)
	req := predictor.NewRequest(id, form.Sequence, form.Name, storageURL, s.storage.Location())

	message := MessageSubmitted
	update := model.NewStatusUpdate(model.JobStatusProcessing).WithProcessedAt(s.now())
	if err := s.predictor.Submit(dispatchCtx, req); err != nil {
		dispatchErr := NewErrPredictorDispatch(err)
		tracer.Warn(dispatchErr).Log()
		metrics.IncreasePredictorRequestsMetric(metrics.ResultFailure)
		message = MessageDispatchFailed
		update = model.NewStatusUpdate(model.JobStatusError).WithError(dispatchErr.Error())
	} else {
		metrics.IncreasePredictorRequestsMetric(metrics.ResultSuccess)
	}

	moved, err := s.store.Job().MoveToLog(dispatchCtx, id, update)
	if err != nil {
		// the job is durably queued, report it as such
		tracer.Error(err).WithString("status", job.Status).Log()
		metrics.IncreaseJobsSubmittedMetric(job.Status)
		return &SubmitResult{Job: *job, StorageURL: storageURL, Message: message}, nil
	}
	s.emit(ctx, *moved)
	metrics.IncreaseJobsSubmittedMetric(moved.Status)

	tracer.Success().WithString("status", moved.Status).Log()
	return &SubmitResult{Job: *moved, StorageURL: storageURL, Message: message}, nil
}

// GetStatus returns the job with its storage state. A processing job whose result was
// uploaded is reported as completed without being persisted as such.
func (s *JobService) GetStatus(ctx context.Context, id string) (*JobStatus, error) {
	tracer := s.logger.WithContext(ctx).Operation("get_status").WithString("job_id", id).Build()

	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound()
		}
		tracer.Error(err).Log()
		return nil, err
	}

	status := &JobStatus{Job: *job, Message: statusMessage(job)}
	if job.IsQueued() || (job.Status != model.JobStatusProcessing && job.Status != model.JobStatusCompleted) {
		tracer.Success().WithString("status", job.Status).Log()
		return status, nil
	}

	status.StorageURL, status.Uploaded, err = s.inspectResult(ctx, job.ObjectKey)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	if status.Uploaded {
		status.Job.Status = model.JobStatusCompleted
		status.Message = MessageCompleted
	} else if job.Status == model.JobStatusProcessing {
		if p, err := s.predictor.Progress(ctx, id); err != nil {
			tracer.Warn(err).Log()
		} else {
			status.Progress = &p.Progress
		}
	}

	tracer.Success().WithString("status", status.Job.Status).WithBool("uploaded", status.Uploaded).Log()
	return status, nil
}

// CheckResult completes a logged job once its result is uploaded.
func (s *JobService) CheckResult(ctx context.Context, id string) (*ResultStatus, error) {
	tracer := s.logger.WithContext(ctx).Operation("check_result").WithString("job_id", id).Build()

	job, err := s.store.Job().GetLogged(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound()
		}
		tracer.Error(err).Log()
		return nil, err
	}

	if job.Status == model.JobStatusError {
		tracer.Success().WithString("status", job.Status).Log()
		return &ResultStatus{JobID: job.ID, Status: job.Status, Message: statusMessage(job)}, nil
	}

	storageURL, uploaded, err := s.inspectResult(ctx, job.ObjectKey)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	if !uploaded {
		tracer.Success().WithString("status", job.Status).Log()
		return &ResultStatus{JobID: job.ID, Status: job.Status, Message: MessageProcessing}, nil
	}

	completed, transitioned, err := s.store.Job().Complete(ctx, id, s.now())
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	if transitioned {
		tracer.Step("completed").Log()
		s.emit(ctx, *completed)
	}

	tracer.Success().WithString("status", completed.Status).Log()
	return &ResultStatus{
		JobID:       completed.ID,
		Status:      completed.Status,
		StorageURL:  storageURL,
		Message:     MessageCompleted,
		CompletedAt: completed.CompletedAt,
	}, nil
}

// ListAll returns the queue and the log, both ordered by submission time.
func (s *JobService) ListAll(ctx context.Context) (model.JobList, model.JobList, error) {
	return s.store.Job().ListAll(ctx)
}

func (s *JobService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// inspectResult signs a fresh read URL and reports whether the object was uploaded.
func (s *JobService) inspectResult(ctx context.Context, objectName string) (string, bool, error) {
	uploaded, err := s.storage.Exists(ctx, objectName)
	if err != nil {
		metrics.IncreaseStorageChecksMetric(metrics.StorageError)
		return "", false, NewErrStorageUnavailable(err)
	}
	if uploaded {
		metrics.IncreaseStorageChecksMetric(metrics.StorageFound)
	} else {
		metrics.IncreaseStorageChecksMetric(metrics.StorageMissing)
	}

	storageURL, err := s.storage.ReadURL(ctx, objectName)
	if err != nil {
		return "", false, NewErrStorageUnavailable(err)
	}
	return storageURL, uploaded, nil
}

func (s *JobService) emit(ctx context.Context, job model.Job) {
	if s.events == nil {
		return
	}

	at := job.SubmittedAt
	switch {
	case job.CompletedAt != nil:
		at = *job.CompletedAt
	case job.ProcessedAt != nil:
		at = *job.ProcessedAt
	case job.Status == model.JobStatusError:
		at = job.UpdatedAt
	}

	if err := s.events.WriteJobEvent(ctx, events.JobEvent{
		JobID:  job.ID,
		Status: job.Status,
		Error:  job.Error,
		At:     at,
	}); err != nil {
		s.logger.WithContext(ctx).Operation("emit_event").WithString("job_id", job.ID).Build().Warn(err).Log()
	}
}

func statusMessage(job *model.Job) string {
	switch job.Status {
	case model.JobStatusQueued, model.JobStatusSubmitted:
		return MessageQueued
	case model.JobStatusCompleted:
		return MessageCompleted
	case model.JobStatusError:
		if job.Error != "" {
			return fmt.Sprintf("%s: %s", MessageFailed, job.Error)
		}
		return MessageFailed
	default:
		return MessageProcessing
	}
}

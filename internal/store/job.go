package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kubev2v/fold-planner/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job persists prediction jobs. The queue and the log are two views over a single
// table keyed by job id, so a job can never be present in both.
type Job interface {
	Enqueue(ctx context.Context, job model.Job) (*model.Job, error)
	Log(ctx context.Context, job model.Job) (*model.Job, error)
	Dequeue(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Job, error)
	GetQueued(ctx context.Context, id string) (*model.Job, error)
	GetLogged(ctx context.Context, id string) (*model.Job, error)
	UpdateLogged(ctx context.Context, id string, update model.JobUpdate) (*model.Job, error)
	MoveToLog(ctx context.Context, id string, update model.JobUpdate) (*model.Job, error)
	Complete(ctx context.Context, id string, at time.Time) (*model.Job, bool, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error)
	ListAll(ctx context.Context) (queued model.JobList, logged model.JobList, err error)
	Stats(ctx context.Context) (model.JobStats, error)
}

type JobStore struct {
	db *gorm.DB
	mu *sync.Mutex
}

var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB, writeLock *sync.Mutex) Job {
	if writeLock == nil {
		writeLock = &sync.Mutex{}
	}
	return &JobStore{db: db, mu: writeLock}
}

// Enqueue inserts a new job in the queue. Inserting an id that already exists fails
// with ErrDuplicateKey whatever collection holds it.
func (s *JobStore) Enqueue(ctx context.Context, job model.Job) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.Collection = model.CollectionQueue
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}

	if err := s.getDB(ctx).Create(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("enqueuing job: %w", err)
	}

	return &job, nil
}

// Log writes the job into the log, replacing a queued entry with the same id.
func (s *JobStore) Log(ctx context.Context, job model.Job) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.Collection = model.CollectionLog
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}

	err := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"collection", "status", "error", "processed_at", "completed_at", "updated_at"}),
	}).Create(&job).Error
	if err != nil {
		return nil, fmt.Errorf("logging job: %w", err)
	}

	return s.get(ctx, s.getDB(ctx), job.ID, model.CollectionLog)
}

// Dequeue removes the job from the queue. Removing an id that is not queued is a no-op.
func (s *JobStore) Dequeue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.getDB(ctx).Where("id = ? AND collection = ?", id, model.CollectionQueue).Delete(&model.Job{})
	if result.Error != nil {
		return fmt.Errorf("dequeuing job: %w", result.Error)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.get(ctx, s.getDB(ctx), id, "")
}

func (s *JobStore) GetQueued(ctx context.Context, id string) (*model.Job, error) {
	return s.get(ctx, s.getDB(ctx), id, model.CollectionQueue)
}

func (s *JobStore) GetLogged(ctx context.Context, id string) (*model.Job, error) {
	return s.get(ctx, s.getDB(ctx), id, model.CollectionLog)
}

// UpdateLogged applies update to a logged job and returns the stored record.
// It returns ErrRecordNotFound when the job is not in the log.
func (s *JobStore) UpdateLogged(ctx context.Context, id string, update model.JobUpdate) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *model.Job
	err := withTransaction(ctx, s.db, func(ctx context.Context) error {
		db := s.getDB(ctx)
		result := db.Model(&model.Job{}).
			Where("id = ? AND collection = ?", id, model.CollectionLog).
			Updates(updateColumns(update))
		if result.Error != nil {
			return fmt.Errorf("updating job: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		job, err := s.get(ctx, db, id, model.CollectionLog)
		updated = job
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MoveToLog moves a queued job into the log and applies update in one statement.
// It returns ErrNotQueued if the job exists but is no longer queued.
func (s *JobStore) MoveToLog(ctx context.Context, id string, update model.JobUpdate) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved *model.Job
	err := withTransaction(ctx, s.db, func(ctx context.Context) error {
		db := s.getDB(ctx)
		columns := updateColumns(update)
		columns["collection"] = model.CollectionLog

		result := db.Model(&model.Job{}).
			Where("id = ? AND collection = ?", id, model.CollectionQueue).
			Updates(columns)
		if result.Error != nil {
			return fmt.Errorf("moving job to log: %w", result.Error)
		}

		job, err := s.get(ctx, db, id, "")
		if err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return ErrNotQueued
		}

		moved = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Complete marks a processing job of the log as completed. The boolean reports
// whether this call performed the transition; completed_at is only written once.
func (s *JobStore) Complete(ctx context.Context, id string, at time.Time) (*model.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		job         *model.Job
		transitions bool
	)
	err := withTransaction(ctx, s.db, func(ctx context.Context) error {
		db := s.getDB(ctx)
		result := db.Model(&model.Job{}).
			Where("id = ? AND collection = ? AND status = ?", id, model.CollectionLog, model.JobStatusProcessing).
			Updates(updateColumns(model.NewStatusUpdate(model.JobStatusCompleted).WithCompletedAt(at)))
		if result.Error != nil {
			return fmt.Errorf("completing job: %w", result.Error)
		}
		transitions = result.RowsAffected > 0

		j, err := s.get(ctx, db, id, model.CollectionLog)
		job = j
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return job, transitions, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&jobs)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobStore) ListAll(ctx context.Context) (model.JobList, model.JobList, error) {
	opts := NewJobQueryOptions().WithSortOrder(SortBySubmittedTime)

	queued, err := s.List(ctx, NewJobQueryFilter().ByCollection(model.CollectionQueue), opts)
	if err != nil {
		return nil, nil, err
	}

	logged, err := s.List(ctx, NewJobQueryFilter().ByCollection(model.CollectionLog), opts)
	if err != nil {
		return nil, nil, err
	}

	return queued, logged, nil
}

func (s *JobStore) Stats(ctx context.Context) (model.JobStats, error) {
	var rows []struct {
		Status string
		Total  int64
	}

	err := s.getDB(ctx).Model(&model.Job{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return model.JobStats{}, fmt.Errorf("counting jobs: %w", err)
	}

	stats := model.JobStats{ByStatus: make(map[string]int64, len(rows))}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Total
	}
	return stats, nil
}

func (s *JobStore) get(ctx context.Context, db *gorm.DB, id string, collection string) (*model.Job, error) {
	tx := db.WithContext(ctx).Where("id = ?", id)
	if collection != "" {
		tx = tx.Where("collection = ?", collection)
	}

	var job model.Job
	if err := tx.First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := txFromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// updateColumns turns update into a column map. Timestamps are wrapped in COALESCE
// so a value written once is never replaced.
func updateColumns(update model.JobUpdate) map[string]any {
	columns := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if update.Status != nil {
		columns["status"] = *update.Status
	}
	if update.Error != nil {
		columns["error"] = *update.Error
	}
	if update.ProcessedAt != nil {
		columns["processed_at"] = gorm.Expr("COALESCE(processed_at, ?)", update.ProcessedAt.UTC())
	}
	if update.CompletedAt != nil {
		columns["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", update.CompletedAt.UTC())
	}
	return columns
}

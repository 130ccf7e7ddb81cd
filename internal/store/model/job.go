package model

import (
	"time"
)

// Job status values. A job moves forward through queued, processing and completed;
// error is terminal and reachable from any state.
const (
	JobStatusSubmitted  = "submitted"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// JobStatuses lists every status in lifecycle order.
var JobStatuses = []string{
	JobStatusSubmitted,
	JobStatusQueued,
	JobStatusProcessing,
	JobStatusCompleted,
	JobStatusError,
}

// Collections a job can belong to. The queue holds jobs not yet acknowledged by the
// predictor, the log holds every dispatched job including the terminal ones.
const (
	CollectionQueue = "queue"
	CollectionLog   = "log"
)

type Job struct {
	ID              string `gorm:"primaryKey"`
	Sequence        string `gorm:"not null"`
	Name            string
	Status          string `gorm:"not null"`
	Collection      string `gorm:"not null;index"`
	ObjectKey       string `gorm:"not null"`
	StorageProvider string
	Error           string
	SubmittedAt     time.Time
	ProcessedAt     *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Job) TableName() string {
	return "jobs"
}

func (j Job) IsQueued() bool {
	return j.Collection == CollectionQueue
}

func (j Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

type JobList []Job

// JobUpdate carries the fields a caller wants to change on a logged job.
// Nil fields are left untouched.
type JobUpdate struct {
	Status      *string
	Error       *string
	ProcessedAt *time.Time
	CompletedAt *time.Time
}

func NewStatusUpdate(status string) JobUpdate {
	return JobUpdate{Status: &status}
}

func (u JobUpdate) WithError(msg string) JobUpdate {
	u.Error = &msg
	return u
}

func (u JobUpdate) WithProcessedAt(t time.Time) JobUpdate {
	u.ProcessedAt = &t
	return u
}

func (u JobUpdate) WithCompletedAt(t time.Time) JobUpdate {
	u.CompletedAt = &t
	return u
}

// JobStats counts jobs per status.
type JobStats struct {
	ByStatus map[string]int64
}

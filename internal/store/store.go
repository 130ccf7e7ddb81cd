package store

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type Store interface {
	Job() Job
	Ping(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db  *gorm.DB
	job Job
}

func NewStore(db *gorm.DB) Store {
	// every write in the process goes through this lock so read-modify-write
	// sequences on the same job can never interleave.
	writeLock := &sync.Mutex{}

	return &DataStore{
		db:  db,
		job: NewJobStore(db, writeLock),
	}
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

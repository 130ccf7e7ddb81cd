package service_test

import (
	"context"
	"sync"

	"github.com/kubev2v/fold-planner/internal/events"
	"github.com/kubev2v/fold-planner/internal/predictor"
)

type fakePredictor struct {
	mu          sync.Mutex
	requests    []predictor.Request
	submitErr   error
	progress    *predictor.Progress
	progressErr error
}

func (f *fakePredictor) Submit(_ context.Context, req predictor.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.submitErr
}

func (f *fakePredictor) Progress(_ context.Context, _ string) (*predictor.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	if f.progress == nil {
		return &predictor.Progress{Status: "running"}, nil
	}
	p := *f.progress
	return &p, nil
}

func (f *fakePredictor) Requests() []predictor.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]predictor.Request{}, f.requests...)
}

type recordingWriter struct {
	mu     sync.Mutex
	events []events.JobEvent
}

func (w *recordingWriter) WriteJobEvent(_ context.Context, e events.JobEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
	return nil
}

func (w *recordingWriter) Statuses(jobID string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	statuses := []string{}
	for _, e := range w.events {
		if e.JobID == jobID {
			statuses = append(statuses, e.Status)
		}
	}
	return statuses
}

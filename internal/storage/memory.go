package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryAdapter keeps uploaded object names in memory. It is used where no bucket is reachable.
type MemoryAdapter struct {
	mu       sync.Mutex
	baseURL  string
	objects  map[string]time.Time
	failWith error
}

func NewMemoryAdapter(baseURL string) *MemoryAdapter {
	return &MemoryAdapter{
		baseURL: baseURL,
		objects: map[string]time.Time{},
	}
}

// Put marks name as uploaded.
func (m *MemoryAdapter) Put(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = time.Now()
}

func (m *MemoryAdapter) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
}

// FailWith makes every following call return err. A nil err restores normal behavior.
func (m *MemoryAdapter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryAdapter) ReadURL(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return "", m.failWith
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, url.PathEscape(name), time.Now().Add(DefaultURLExpiry).Unix()), nil
}

func (m *MemoryAdapter) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	_, ok := m.objects[name]
	return ok, nil
}

func (m *MemoryAdapter) Provider() string {
	return "memory"
}

func (m *MemoryAdapter) Location() Location {
	return Location{Provider: "memory", Bucket: m.baseURL}
}

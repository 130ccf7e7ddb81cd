package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"sigs.k8s.io/yaml"
)

// CachedJob is a job id remembered between CLI sessions.
type CachedJob struct {
	JobID       string    `json:"jobId"`
	Name        string    `json:"name,omitempty"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
	StorageURL  string    `json:"storageUrl,omitempty"`
}

type jobCacheFile struct {
	Jobs []CachedJob `json:"jobs"`
}

// JobCache persists submitted job ids in a yaml file.
type JobCache struct {
	path string
	mu   sync.Mutex
	jobs map[string]CachedJob
}

func DefaultJobCachePath() string {
	return filepath.Join(DefaultConfigDir(), "jobs.yaml")
}

// OpenJobCache loads the cache at path. A missing file is an empty cache.
func OpenJobCache(path string) (*JobCache, error) {
	c := &JobCache{path: path, jobs: make(map[string]CachedJob)}

	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading job cache: %w", err)
	}

	var f jobCacheFile
	if err := yaml.Unmarshal(contents, &f); err != nil {
		return nil, fmt.Errorf("decoding job cache: %w", err)
	}
	for _, j := range f.Jobs {
		c.jobs[j.JobID] = j
	}
	return c, nil
}

// Put records job, replacing an entry with the same id, and saves the cache.
func (c *JobCache) Put(job CachedJob) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.jobs[job.JobID]; ok {
		if job.SubmittedAt.IsZero() {
			job.SubmittedAt = existing.SubmittedAt
		}
		if job.Name == "" {
			job.Name = existing.Name
		}
	}
	c.jobs[job.JobID] = job
	return c.save()
}

func (c *JobCache) Get(jobID string) (CachedJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[jobID]
	return j, ok
}

func (c *JobCache) Remove(jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.jobs[jobID]; !ok {
		return nil
	}
	delete(c.jobs, jobID)
	return c.save()
}

// List returns the cached jobs, most recent first.
func (c *JobCache) List() []CachedJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorted()
}

// Latest returns the most recently submitted job.
func (c *JobCache) Latest() (CachedJob, bool) {
	jobs := c.List()
	if len(jobs) == 0 {
		return CachedJob{}, false
	}
	return jobs[0], true
}

func (c *JobCache) sorted() []CachedJob {
	jobs := make([]CachedJob, 0, len(c.jobs))
	for _, j := range c.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].SubmittedAt.Equal(jobs[k].SubmittedAt) {
			return jobs[i].JobID < jobs[k].JobID
		}
		return jobs[i].SubmittedAt.After(jobs[k].SubmittedAt)
	})
	return jobs
}

func (c *JobCache) save() error {
	contents, err := yaml.Marshal(jobCacheFile{Jobs: c.sorted()})
	if err != nil {
		return fmt.Errorf("encoding job cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("writing job cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, contents, 0600); err != nil {
		return fmt.Errorf("writing job cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("writing job cache: %w", err)
	}
	return nil
}

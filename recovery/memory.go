package recovery

import (
	"context"
	"sync"
)

// Memory keeps jobs in process.
type Memory struct {
	mu   sync.Mutex
	jobs []Job
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Name() string { return BackendMemory }

func (m *Memory) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

// Jobs returns a copy of the enqueued jobs.
func (m *Memory) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

package worker

import (
	"sort"
	"sync"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// State is the lifecycle stage of a job.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Result is what a finished job produced.
type Result struct {
	Data        []byte
	ContentType string
	Samples     int
	SampleRate  int
}

// Status is a snapshot of one job.
type Status struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Samples   int       `json:"samples,omitempty"`
	Rate      int       `json:"sample_rate,omitempty"`
}

type record struct {
	status Status
	result Result
}

// Store keeps job state in memory. Finished jobs beyond the retention
// limit are evicted oldest first.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*record
	retain  int
	nowFunc func() time.Time
}

// NewStore keeps at most retain finished jobs; retain <= 0 keeps all.
func NewStore(retain int) *Store {
	return &Store{jobs: map[string]*record{}, retain: retain, nowFunc: time.Now}
}

func (s *Store) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc().UTC()
	s.jobs[id] = &record{status: Status{ID: id, State: StateQueued, CreatedAt: now, UpdatedAt: now}}
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *Store) setRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.jobs[id]; ok {
		r.status.State = StateRunning
		r.status.UpdatedAt = s.nowFunc().UTC()
	}
}

func (s *Store) finish(id string, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.jobs[id]
	if !ok {
		return
	}
	r.status.UpdatedAt = s.nowFunc().UTC()
	if err != nil {
		r.status.State = StateFailed
		r.status.Error = err.Error()
	} else {
		r.status.State = StateDone
		r.status.Samples = res.Samples
		r.status.Rate = res.SampleRate
		r.result = res
	}
	s.evictLocked()
}

func (s *Store) evictLocked() {
	if s.retain <= 0 {
		return
	}
	var finished []*record
	for _, r := range s.jobs {
		if r.status.State == StateDone || r.status.State == StateFailed {
			finished = append(finished, r)
		}
	}
	if len(finished) <= s.retain {
		return
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].status.UpdatedAt.Before(finished[j].status.UpdatedAt) })
	for _, r := range finished[:len(finished)-s.retain] {
		delete(s.jobs, r.status.ID)
	}
}

// Get returns the status of a job.
func (s *Store) Get(id string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.jobs[id]
	if !ok {
		return Status{}, domain.ErrNotFound
	}
	return r.status, nil
}

// Result returns the job's output with its status. The output is only
// meaningful once Status.State is StateDone; callers check the state
// before reading it.
func (s *Store) Result(id string) (Result, Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.jobs[id]
	if !ok {
		return Result{}, Status{}, domain.ErrNotFound
	}
	return r.result, r.status, nil
}

package service

import (
	"slices"
	"sync"

	"github.com/civiscope/civiscope-go/internal/models"
)

// TaskStore holds the canonical state of every task. A task lives in
// exactly one of two buckets: active (still processing) or archived
// (reached a terminal state). All access goes through the store so
// read-modify-write sequences on one task are atomic with respect to
// other goroutines touching the same id.
type TaskStore struct {
	mu       sync.RWMutex
	active   map[string]*models.Task
	archived map[string]*models.Task
}

// NewTaskStore creates an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		active:   make(map[string]*models.Task),
		archived: make(map[string]*models.Task),
	}
}

// Put inserts a task into the active bucket.
func (s *TaskStore) Put(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[t.ID] = &t
}

// Get returns a snapshot of a task, checking the active bucket first,
// then the archived one.
func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.active[id]; ok {
		return snapshot(t), true
	}
	if t, ok := s.archived[id]; ok {
		return snapshot(t), true
	}
	return models.Task{}, false
}

// UpdateProcessing applies fn to the task under the store lock, but only
// if the task is still active and processing. This is the status re-check
// that makes cancellation cooperative: late writes from an execution
// goroutine whose task was cancelled are discarded here. Percent complete
// never decreases across updates.
func (s *TaskStore) UpdateProcessing(id string, fn func(*models.Task)) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[id]
	if !ok || t.Status != models.StatusProcessing {
		return models.Task{}, false
	}

	prevPercent := t.PercentComplete
	fn(t)
	if t.PercentComplete < prevPercent {
		t.PercentComplete = prevPercent
	}
	return snapshot(t), true
}

// Archive moves a task from the active bucket to the archived one.
// Returns false if the id is not active.
func (s *TaskStore) Archive(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[id]
	if !ok {
		return models.Task{}, false
	}
	delete(s.active, id)
	s.archived[id] = t
	return snapshot(t), true
}

// ActiveTasks returns snapshots of all active tasks, most recent first.
func (s *TaskStore) ActiveTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0, len(s.active))
	for _, t := range s.active {
		tasks = append(tasks, snapshot(t))
	}

	slices.SortFunc(tasks, func(a, b models.Task) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return tasks
}

// ActiveCount returns the number of active tasks.
func (s *TaskStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// ArchivedCount returns the number of archived tasks.
func (s *TaskStore) ArchivedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.archived)
}

// snapshot returns a deep-enough copy: the sources slice is cloned so the
// caller's view cannot alias the store's append-only backing array.
func snapshot(t *models.Task) models.Task {
	out := *t
	out.Subjects = slices.Clone(t.Subjects)
	out.Sources = slices.Clone(t.Sources)
	return out
}

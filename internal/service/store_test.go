package service

import (
	"sync"
	"testing"
	"time"

	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessingTask(id string) models.Task {
	return models.Task{
		ID:        id,
		Kind:      models.KindSingleSubject,
		Subjects:  []string{"London Breed"},
		Status:    models.StatusProcessing,
		StartedAt: time.Now(),
	}
}

func TestStorePutAndGet(t *testing.T) {
	s := NewTaskStore()
	s.Put(newProcessingTask("t1"))

	got, ok := s.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, 1, s.ActiveCount())

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestUpdateProcessingSkipsNonProcessing(t *testing.T) {
	s := NewTaskStore()
	s.Put(newProcessingTask("t1"))

	_, ok := s.UpdateProcessing("t1", func(task *models.Task) {
		task.Status = models.StatusCancelled
	})
	require.True(t, ok)

	// Task is cancelled now; further updates must be discarded.
	_, ok = s.UpdateProcessing("t1", func(task *models.Task) {
		task.PercentComplete = 50
	})
	assert.False(t, ok, "cancelled task must not accept writes")

	got, _ := s.Get("t1")
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, 0, got.PercentComplete)
}

func TestUpdateProcessingAfterArchiveIsNoop(t *testing.T) {
	s := NewTaskStore()
	s.Put(newProcessingTask("t1"))

	_, ok := s.Archive("t1")
	require.True(t, ok)

	_, ok = s.UpdateProcessing("t1", func(task *models.Task) {
		task.PercentComplete = 50
	})
	assert.False(t, ok)

	// Record still readable from the archived bucket.
	got, ok := s.Get("t1")
	require.True(t, ok)
	assert.Equal(t, 0, got.PercentComplete)
}

func TestPercentCompleteMonotone(t *testing.T) {
	s := NewTaskStore()
	s.Put(newProcessingTask("t1"))

	s.UpdateProcessing("t1", func(task *models.Task) { task.PercentComplete = 60 })
	s.UpdateProcessing("t1", func(task *models.Task) { task.PercentComplete = 40 })

	got, _ := s.Get("t1")
	assert.Equal(t, 60, got.PercentComplete, "percent never decreases")
}

func TestArchiveMovesRecordExactlyOnce(t *testing.T) {
	s := NewTaskStore()
	s.Put(newProcessingTask("t1"))

	_, ok := s.Archive("t1")
	require.True(t, ok)
	assert.Equal(t, 0, s.ActiveCount())
	assert.Equal(t, 1, s.ArchivedCount())

	_, ok = s.Archive("t1")
	assert.False(t, ok, "archiving twice must fail")
}

func TestSnapshotsDoNotAliasStore(t *testing.T) {
	s := NewTaskStore()
	task := newProcessingTask("t1")
	task.Sources = []models.Source{{Title: "a"}}
	s.Put(task)

	got, _ := s.Get("t1")
	got.Sources[0].Title = "mutated"
	got.Subjects[0] = "mutated"

	again, _ := s.Get("t1")
	assert.Equal(t, "a", again.Sources[0].Title)
	assert.Equal(t, "London Breed", again.Subjects[0])
}

func TestActiveTasksMostRecentFirst(t *testing.T) {
	s := NewTaskStore()
	old := newProcessingTask("old")
	old.StartedAt = time.Now().Add(-time.Hour)
	s.Put(old)
	s.Put(newProcessingTask("new"))

	tasks := s.ActiveTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "new", tasks[0].ID)
}

func TestConcurrentUpdatesOnDistinctTasks(t *testing.T) {
	s := NewTaskStore()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		s.Put(newProcessingTask(id))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.UpdateProcessing(id, func(task *models.Task) {
					task.Sources = append(task.Sources, models.Source{Title: "s"})
				})
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		got, _ := s.Get(id)
		assert.Len(t, got.Sources, 100)
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/civiscope/civiscope-go/internal/archive"
	"github.com/civiscope/civiscope-go/internal/directory"
	"github.com/civiscope/civiscope-go/internal/metrics"
	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/civiscope/civiscope-go/internal/search"
	"github.com/civiscope/civiscope-go/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, adapter search.Adapter) *Orchestrator {
	t.Helper()

	fileArchive, err := archive.NewFileArchive(t.TempDir())
	require.NoError(t, err)

	return New(Deps{
		Store:     NewTaskStore(),
		Hub:       stream.NewHub(),
		Adapter:   adapter,
		Directory: directory.Default(),
		Archive:   fileArchive,
		Metrics:   metrics.NewCollector(),
		Pacing:    time.Millisecond,
	})
}

func stubAdapter(results ...search.Result) search.Adapter {
	return search.AdapterFunc(func(_ context.Context, _ string, _ search.Options) (*search.Response, error) {
		return &search.Response{Results: results}, nil
	})
}

func waitTerminal(t *testing.T, o *Orchestrator, taskID string) models.Task {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := o.GetStatus(taskID)
		require.NoError(t, err)
		if task.Status.Terminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return models.Task{}
}

func TestCreateCandidateTaskUnknownCandidate(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	_, err := o.CreateCandidateTask(context.Background(), "Nobody Atall", models.TaskParams{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateCandidateTaskValidation(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	tests := []struct {
		name   string
		params models.TaskParams
	}{
		{"unknown depth", models.TaskParams{Depth: "exhaustive"}},
		{"max sources too large", models.TaskParams{MaxSources: 21}},
		{"negative max sources", models.TaskParams{MaxSources: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.CreateCandidateTask(context.Background(), "London Breed", tt.params)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	// Nothing should have been scheduled.
	assert.Equal(t, 0, o.ActiveCount())
}

func TestCandidateTaskCompletes(t *testing.T) {
	adapter := stubAdapter(
		search.Result{Title: "Breed backs housing plan", URL: "https://example.com/1", Content: "supports the plan", Score: 0.9},
		search.Result{Title: "Budget vote recap", URL: "https://example.com/2", Content: "voted for it", Score: 0.7},
	)
	o := newTestOrchestrator(t, adapter)

	id, err := o.CreateCandidateTask(context.Background(), "london breed", models.TaskParams{
		Topics: []string{"housing"},
		Depth:  models.DepthQuick,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	task := waitTerminal(t, o, id)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, 100, task.PercentComplete)
	assert.Equal(t, "Research complete", task.CurrentStep)
	assert.NotNil(t, task.CompletedAt)
	assert.Equal(t, []string{"London Breed"}, task.Subjects)
	assert.NotEmpty(t, task.Sources)

	// Completed tasks leave the active set but stay resolvable.
	assert.Equal(t, 0, o.ActiveCount())
	assert.Equal(t, 1, o.CompletedCount())

	raw, err := o.GetResults(id)
	require.NoError(t, err)

	var results models.ResearchResults
	require.NoError(t, json.Unmarshal(raw, &results))
	assert.Equal(t, id, results.ResearchID)
	assert.Equal(t, "London Breed", results.CandidateName)
	assert.Equal(t, len(task.Sources), results.TotalSources)
	assert.Equal(t, []string{"housing"}, results.TopicsResearched)
}

func TestCandidateTaskCompletesWhenAllQueriesFail(t *testing.T) {
	adapter := search.AdapterFunc(func(context.Context, string, search.Options) (*search.Response, error) {
		return nil, errors.New("search provider unavailable")
	})
	o := newTestOrchestrator(t, adapter)

	id, err := o.CreateCandidateTask(context.Background(), "Daniel Lurie", models.TaskParams{Depth: models.DepthQuick})
	require.NoError(t, err)

	task := waitTerminal(t, o, id)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Empty(t, task.Sources)

	raw, err := o.GetResults(id)
	require.NoError(t, err)

	var results models.ResearchResults
	require.NoError(t, json.Unmarshal(raw, &results))
	assert.Zero(t, results.TotalSources)
	assert.Empty(t, results.Stances)
}

func TestCandidateTaskStopsAtSourceCap(t *testing.T) {
	var mu sync.Mutex
	queries := 0
	adapter := search.AdapterFunc(func(_ context.Context, _ string, _ search.Options) (*search.Response, error) {
		mu.Lock()
		queries++
		n := queries
		mu.Unlock()
		return &search.Response{Results: []search.Result{
			{Title: fmt.Sprintf("article %d-a", n), URL: fmt.Sprintf("https://example.com/%d/a", n), Score: 0.8},
			{Title: fmt.Sprintf("article %d-b", n), URL: fmt.Sprintf("https://example.com/%d/b", n), Score: 0.6},
		}}, nil
	})
	o := newTestOrchestrator(t, adapter)

	id, err := o.CreateCandidateTask(context.Background(), "Aaron Peskin", models.TaskParams{
		Topics:     []string{"housing", "transit", "public_safety"},
		Depth:      models.DepthDeep,
		MaxSources: 3,
	})
	require.NoError(t, err)

	task := waitTerminal(t, o, id)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, 3, task.SourcesFound())

	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, queries, maxQueriesPerTask, "expected early stop before the query cap")
}

func TestPercentCompleteNeverDecreases(t *testing.T) {
	adapter := stubAdapter(search.Result{Title: "a", URL: "https://example.com/a", Score: 0.5})
	o := newTestOrchestrator(t, adapter)

	id, err := o.CreateCandidateTask(context.Background(), "Mark Farrell", models.TaskParams{Depth: models.DepthStandard})
	require.NoError(t, err)

	last := -1
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := o.GetStatus(id)
		require.NoError(t, err)
		require.GreaterOrEqual(t, task.PercentComplete, last)
		last = task.PercentComplete
		if task.Status.Terminal() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 100, last)
}

func TestCancelProcessingTask(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	adapter := search.AdapterFunc(func(ctx context.Context, _ string, _ search.Options) (*search.Response, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &search.Response{Results: []search.Result{{Title: "late", URL: "https://example.com/late", Score: 0.5}}}, nil
	})
	o := newTestOrchestrator(t, adapter)

	id, err := o.CreateCandidateTask(context.Background(), "Ahsha Safai", models.TaskParams{Depth: models.DepthQuick})
	require.NoError(t, err)

	<-started
	require.NoError(t, o.Cancel(context.Background(), id))

	task, err := o.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, task.Status)
	assert.Equal(t, "Research cancelled by user", task.CurrentStep)
	assert.NotNil(t, task.CompletedAt)

	// The execution goroutine unblocks, but its writes must be discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)

	task, err = o.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, task.Status)
	assert.Empty(t, task.Sources)
}

func TestCancelRejectsTerminalTask(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	id, err := o.CreateCandidateTask(context.Background(), "London Breed", models.TaskParams{Depth: models.DepthQuick})
	require.NoError(t, err)
	waitTerminal(t, o, id)

	err = o.Cancel(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelUnknownTask(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	err := o.Cancel(context.Background(), "no-such-task")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComparisonTaskCompletes(t *testing.T) {
	adapter := stubAdapter(
		search.Result{Title: "Candidate opposes the proposal", URL: "https://example.com/c", Content: "stands against it", Score: 0.8},
	)
	o := newTestOrchestrator(t, adapter)

	id, err := o.CreateComparisonTask(context.Background(), []string{"London Breed", "Daniel Lurie"}, "housing", true)
	require.NoError(t, err)

	task := waitTerminal(t, o, id)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, models.KindComparison, task.Kind)
	assert.Equal(t, []string{"London Breed", "Daniel Lurie"}, task.Subjects)

	raw, err := o.GetResults(id)
	require.NoError(t, err)

	var results models.ComparisonResults
	require.NoError(t, json.Unmarshal(raw, &results))
	assert.Equal(t, id, results.ComparisonID)
	assert.Equal(t, "housing", results.Topic)
	assert.Len(t, results.CandidateProfiles, 2)
	assert.Len(t, results.StanceCards, 1)
	for _, profile := range results.CandidateProfiles {
		assert.NotEmpty(t, profile.Sources)
	}
}

func TestComparisonTaskCandidateCount(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	_, err := o.CreateComparisonTask(context.Background(), []string{"London Breed"}, "", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	names := []string{"London Breed", "Daniel Lurie", "Aaron Peskin", "Mark Farrell", "Ahsha Safai", "London Breed"}
	_, err = o.CreateComparisonTask(context.Background(), names, "", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, 0, o.ActiveCount())
}

func TestComparisonTaskUnknownCandidate(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	_, err := o.CreateComparisonTask(context.Background(), []string{"London Breed", "Nobody Atall"}, "", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetResultsUnknownTask(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	_, err := o.GetResults("no-such-task")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskIDsAreUnique(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	seen := make(map[string]bool)
	for range 5 {
		id, err := o.CreateCandidateTask(context.Background(), "London Breed", models.TaskParams{Depth: models.DepthQuick})
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
	for id := range seen {
		waitTerminal(t, o, id)
	}
}

func TestCandidateLookup(t *testing.T) {
	o := newTestOrchestrator(t, stubAdapter())

	c, err := o.Candidate("london breed")
	require.NoError(t, err)
	assert.Equal(t, "London Breed", c.Name)

	_, err = o.Candidate("Nobody Atall")
	require.ErrorIs(t, err, ErrNotFound)
	// The error names the available candidates so a near-miss is fixable.
	assert.Contains(t, err.Error(), "Nobody Atall")
	assert.Contains(t, err.Error(), "London Breed")
}

func TestEstimateSeconds(t *testing.T) {
	assert.Equal(t, 30, EstimateSeconds(models.KindSingleSubject, models.DepthQuick, 1))
	assert.Equal(t, 120, EstimateSeconds(models.KindSingleSubject, models.DepthStandard, 1))
	assert.Equal(t, 300, EstimateSeconds(models.KindSingleSubject, models.DepthDeep, 1))
	assert.Equal(t, 180, EstimateSeconds(models.KindComparison, "", 3))
}

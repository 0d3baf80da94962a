package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civiscope/civiscope-go/internal/archive"
	"github.com/civiscope/civiscope-go/internal/db"
	"github.com/civiscope/civiscope-go/internal/directory"
	"github.com/civiscope/civiscope-go/internal/metrics"
	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/civiscope/civiscope-go/internal/search"
	"github.com/civiscope/civiscope-go/internal/stream"
	"github.com/google/uuid"
)

const (
	// summaryMaxLen caps stored source summaries.
	summaryMaxLen = 200

	// queryLabelMaxLen caps the display length of the in-flight query.
	queryLabelMaxLen = 50

	defaultMaxSources = 10
	maxSourcesLimit   = 20

	defaultPacing = 500 * time.Millisecond
)

// defaultTopics are researched when a request names none.
var defaultTopics = []string{"housing", "public_safety", "great_highway"}

// Deps bundles the orchestrator's collaborators. DB and Metrics may be
// nil; Pacing zero means the default.
type Deps struct {
	Store      *TaskStore
	Hub        *stream.Hub
	Adapter    search.Adapter
	Directory  directory.Directory
	Summarizer Summarizer
	Archive    *archive.FileArchive
	DB         *db.Client
	Metrics    *metrics.Collector
	Pacing     time.Duration
}

// Orchestrator creates research tasks, drives their background execution,
// and reconciles lifecycle transitions. Each task's execution goroutine is
// the sole writer to that task's record and the sole broadcaster for its
// id, so notifications within one task are strictly ordered.
type Orchestrator struct {
	store      *TaskStore
	hub        *stream.Hub
	adapter    search.Adapter
	dir        directory.Directory
	summarizer Summarizer
	archive    *archive.FileArchive
	db         *db.Client
	metrics    *metrics.Collector
	pacing     time.Duration
}

// New creates an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	pacing := deps.Pacing
	if pacing == 0 {
		pacing = defaultPacing
	}
	summarizer := deps.Summarizer
	if summarizer == nil {
		summarizer = Heuristic{}
	}
	return &Orchestrator{
		store:      deps.Store,
		hub:        deps.Hub,
		adapter:    deps.Adapter,
		dir:        deps.Directory,
		summarizer: summarizer,
		archive:    deps.Archive,
		db:         deps.DB,
		metrics:    deps.Metrics,
		pacing:     pacing,
	}
}

// CreateCandidateTask starts a single-subject research task. It validates
// the candidate, inserts the active record, schedules the execution
// goroutine, and returns immediately with the new task id.
func (o *Orchestrator) CreateCandidateTask(ctx context.Context, candidateName string, params models.TaskParams) (string, error) {
	candidate, ok := o.dir.Resolve(candidateName)
	if !ok {
		return "", fmt.Errorf("%w: unknown candidate %q", ErrNotFound, candidateName)
	}

	if params.Depth == "" {
		params.Depth = models.DepthStandard
	}
	if !params.Depth.Valid() {
		return "", fmt.Errorf("%w: unknown depth %q", ErrInvalidArgument, params.Depth)
	}
	if len(params.Topics) == 0 {
		params.Topics = defaultTopics
	}
	if params.MaxSources == 0 {
		params.MaxSources = defaultMaxSources
	}
	if params.MaxSources < 1 || params.MaxSources > maxSourcesLimit {
		return "", fmt.Errorf("%w: max_sources must be between 1 and %d", ErrInvalidArgument, maxSourcesLimit)
	}

	task := o.newTask(models.KindSingleSubject, []string{candidate.Name}, params)
	if err := o.persistCreate(ctx, task); err != nil {
		return "", err
	}
	o.store.Put(task)

	slog.Info("research task created",
		"task_id", task.ID, "kind", task.Kind, "candidate", candidate.Name,
		"topics", len(params.Topics), "depth", params.Depth)

	go o.run(task.ID, func(ctx context.Context) error {
		return o.executeCandidate(ctx, task.ID, *candidate, params)
	})

	return task.ID, nil
}

// CreateComparisonTask starts a comparison task across 2-5 candidates.
func (o *Orchestrator) CreateComparisonTask(ctx context.Context, candidateNames []string, focusTopic string, wantStanceCards bool) (string, error) {
	if len(candidateNames) < 2 || len(candidateNames) > 5 {
		return "", fmt.Errorf("%w: comparison requires 2-5 candidates, got %d", ErrInvalidArgument, len(candidateNames))
	}

	candidates := make([]models.CandidateInfo, 0, len(candidateNames))
	for _, name := range candidateNames {
		c, ok := o.dir.Resolve(name)
		if !ok {
			return "", fmt.Errorf("%w: unknown candidate %q", ErrNotFound, name)
		}
		candidates = append(candidates, *c)
	}

	params := models.TaskParams{
		FocusTopic:          focusTopic,
		GenerateStanceCards: wantStanceCards,
	}
	subjects := make([]string, len(candidates))
	for i, c := range candidates {
		subjects[i] = c.Name
	}

	task := o.newTask(models.KindComparison, subjects, params)
	task.CurrentStep = "Initializing comparison..."
	if err := o.persistCreate(ctx, task); err != nil {
		return "", err
	}
	o.store.Put(task)

	slog.Info("comparison task created",
		"task_id", task.ID, "candidates", len(candidates), "topic", focusTopic)

	go o.run(task.ID, func(ctx context.Context) error {
		return o.executeComparison(ctx, task.ID, candidates, focusTopic, wantStanceCards)
	})

	return task.ID, nil
}

// Cancel cancels a processing task. The execution goroutine is not
// interrupted mid-step; its next write is discarded by the store's status
// re-check.
func (o *Orchestrator) Cancel(ctx context.Context, taskID string) error {
	if _, ok := o.store.Get(taskID); !ok {
		return fmt.Errorf("%w: task %q", ErrNotFound, taskID)
	}

	now := time.Now()
	task, ok := o.store.UpdateProcessing(taskID, func(t *models.Task) {
		t.Status = models.StatusCancelled
		t.CurrentStep = "Research cancelled by user"
		t.CompletedAt = &now
	})
	if !ok {
		current, _ := o.store.Get(taskID)
		return fmt.Errorf("%w: cannot cancel task with status %s", ErrInvalidState, current.Status)
	}
	o.store.Archive(taskID)

	if o.db != nil {
		if err := o.db.QueryCancelTask(ctx, taskID); err != nil {
			slog.Warn("failed to persist task cancellation", "task_id", taskID, "error", err)
		}
	}

	o.broadcast(taskID,stream.NewError("Research cancelled by user", false))
	slog.Info("research task cancelled", "task_id", taskID, "at_percent", task.PercentComplete)
	return nil
}

// GetStatus returns a snapshot of a task, checking the active set then
// the archived set.
func (o *Orchestrator) GetStatus(taskID string) (models.Task, error) {
	task, ok := o.store.Get(taskID)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: task %q", ErrNotFound, taskID)
	}
	return task, nil
}

// GetResults returns the archived terminal payload for a task id.
func (o *Orchestrator) GetResults(taskID string) ([]byte, error) {
	raw, err := o.archive.Read(taskID)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, fmt.Errorf("%w: results for task %q", ErrNotFound, taskID)
		}
		return nil, err
	}
	return raw, nil
}

// Candidates returns the full roster of known candidates.
func (o *Orchestrator) Candidates() []models.CandidateInfo {
	return o.dir.All()
}

// Candidate looks up one candidate by name. The ErrNotFound message lists
// the available names so callers can correct a near-miss.
func (o *Orchestrator) Candidate(name string) (models.CandidateInfo, error) {
	c, ok := o.dir.Resolve(name)
	if !ok {
		roster := o.dir.All()
		names := make([]string, len(roster))
		for i, rc := range roster {
			names[i] = rc.Name
		}
		return models.CandidateInfo{}, fmt.Errorf("%w: unknown candidate %q, available: %s",
			ErrNotFound, name, strings.Join(names, ", "))
	}
	return *c, nil
}

// ActiveTasks returns snapshots of all active tasks, most recent first.
func (o *Orchestrator) ActiveTasks() []models.Task {
	return o.store.ActiveTasks()
}

// ActiveCount returns the number of active research tasks.
func (o *Orchestrator) ActiveCount() int {
	return o.store.ActiveCount()
}

// CompletedCount returns the number of tasks that reached a terminal state.
func (o *Orchestrator) CompletedCount() int {
	return o.store.ArchivedCount()
}

// ReconcileInterrupted marks persisted tasks still recorded as processing
// as failed. Search progress is ephemeral, so tasks interrupted by a
// restart cannot be resumed.
func (o *Orchestrator) ReconcileInterrupted(ctx context.Context) error {
	if o.db == nil {
		return nil
	}

	records, err := o.db.QueryIncompleteTasks(ctx)
	if err != nil {
		return fmt.Errorf("load incomplete tasks: %w", err)
	}
	if len(records) == 0 {
		slog.Info("no interrupted tasks to reconcile")
		return nil
	}

	for _, rec := range records {
		taskID, err := models.RecordIDString(rec.ID)
		if err != nil {
			slog.Warn("failed to read task record ID", "error", err)
			continue
		}
		if err := o.db.QueryFailTask(ctx, taskID, "interrupted by restart"); err != nil {
			slog.Warn("failed to mark interrupted task", "task_id", taskID, "error", err)
			continue
		}
		slog.Info("marked interrupted task as failed", "task_id", taskID)
	}
	return nil
}

// EstimateSeconds returns the advertised completion estimate for a new
// task. Display-only.
func EstimateSeconds(kind models.TaskKind, depth models.ResearchDepth, subjectCount int) int {
	if kind == models.KindComparison {
		return subjectCount * 60
	}
	switch depth {
	case models.DepthQuick:
		return 30
	case models.DepthDeep:
		return 300
	default:
		return 120
	}
}

// newTask builds the initial active record. Pending is instantaneous in
// this design: tasks are born processing because the execution goroutine
// is scheduled in the same call.
func (o *Orchestrator) newTask(kind models.TaskKind, subjects []string, params models.TaskParams) models.Task {
	return models.Task{
		ID:              uuid.New().String(),
		Kind:            kind,
		Subjects:        subjects,
		Params:          params,
		Status:          models.StatusProcessing,
		PercentComplete: 0,
		CurrentStep:     "Initializing research...",
		StartedAt:       time.Now(),
	}
}

// run wraps an execution routine with the top-level failure boundary:
// panics and escaped errors mark the task failed and broadcast an error
// notification. This is the only path that turns an internal fault into a
// terminal state change.
func (o *Orchestrator) run(taskID string, exec func(ctx context.Context) error) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("task goroutine panicked", "task_id", taskID, "panic", r)
			o.failTask(ctx, taskID, fmt.Errorf("internal panic: %v", r))
		}
	}()

	if err := exec(ctx); err != nil {
		o.failTask(ctx, taskID, err)
	}
}

// executeCandidate drives a single-subject task through its bounded query
// sequence. A nil return means the task either completed or was cancelled
// underneath us; both are fine.
func (o *Orchestrator) executeCandidate(ctx context.Context, taskID string, candidate models.CandidateInfo, params models.TaskParams) error {
	queries := buildSearchQueries(candidate.Name, params.Topics, params.Depth, params.IncludeVotingRecords)
	resultCap := resultCapForDepth(params.Depth)
	total := len(queries)

	for idx, query := range queries {
		label := fmt.Sprintf("Searching: %s...", truncate(query, queryLabelMaxLen))
		if _, ok := o.progressStep(ctx, taskID, idx*100/total, label, (total-idx)*30); !ok {
			return nil
		}

		capped, ok := o.runQuery(ctx, taskID, query, resultCap, params.MaxSources)
		if !ok {
			return nil
		}
		if capped {
			slog.Info("source cap reached, stopping early", "task_id", taskID, "max_sources", params.MaxSources)
			break
		}

		if err := o.pace(ctx); err != nil {
			return err
		}
	}

	task, ok := o.progressStep(ctx, taskID, 90, "Analyzing positions...", 10)
	if !ok {
		return nil
	}

	stances, err := o.summarize(ctx, func(ctx context.Context) ([]models.StanceCard, error) {
		return o.summarizer.StanceCards(ctx, candidate, params.Topics, task.Sources)
	})
	if err != nil {
		return fmt.Errorf("synthesize stances: %w", err)
	}

	results := models.ResearchResults{
		ResearchID:       taskID,
		CandidateName:    candidate.Name,
		CompletedAt:      time.Now(),
		TotalSources:     len(task.Sources),
		TopicsResearched: params.Topics,
		Stances:          stances,
		RawSources:       task.Sources,
		Summary: fmt.Sprintf("Researched %s on %d issues with %d sources",
			candidate.Name, len(params.Topics), len(task.Sources)),
		Metadata: map[string]any{
			"depth":                  string(params.Depth),
			"include_voting_records": params.IncludeVotingRecords,
		},
	}

	summary := map[string]int{
		"total_sources":      len(task.Sources),
		"stances_identified": len(stances),
		"issues_covered":     len(params.Topics),
	}
	return o.complete(ctx, taskID, results, summary)
}

// executeComparison researches each candidate with one bounded query and
// synthesizes an optional stance card.
func (o *Orchestrator) executeComparison(ctx context.Context, taskID string, candidates []models.CandidateInfo, topic string, wantStanceCards bool) error {
	profiles := make([]models.CandidateProfile, 0, len(candidates))
	totalSources := 0

	for idx, candidate := range candidates {
		label := fmt.Sprintf("Researching %s...", candidate.Name)
		_, ok := o.progressStep(ctx, taskID, idx*100/len(candidates), label, (len(candidates)-idx)*60)
		if !ok {
			return nil
		}

		profile := models.CandidateProfile{
			Name:   candidate.Name,
			Bio:    candidate.BioSummary,
			Party:  candidate.PartyAffiliation,
			Gender: candidate.Gender,
		}

		resp, err := o.search(ctx, comparisonQuery(candidate.Name, topic), 2)
		if err != nil {
			slog.Error("comparison search failed, continuing", "task_id", taskID, "candidate", candidate.Name, "error", err)
		} else {
			for _, r := range resp.Results {
				source := toSource(r)
				appended, ok := o.appendSource(taskID, source)
				if !ok {
					return nil
				}
				profile.Sources = append(profile.Sources, source)
				totalSources = appended.SourcesFound()
			}
		}

		profiles = append(profiles, profile)

		if err := o.pace(ctx); err != nil {
			return err
		}
	}

	if _, ok := o.progressStep(ctx, taskID, 95, "Generating comparison...", 5); !ok {
		return nil
	}

	var stanceCards []models.StanceCard
	if wantStanceCards {
		card, err := o.summarizeCard(ctx, topic, profiles)
		if err != nil {
			return fmt.Errorf("synthesize comparison: %w", err)
		}
		if card != nil {
			stanceCards = append(stanceCards, *card)
		}
	}

	summaryTopic := topic
	if summaryTopic == "" {
		summaryTopic = "general positions"
	}
	subjects := make([]string, len(candidates))
	for i, c := range candidates {
		subjects[i] = c.Name
	}

	results := models.ComparisonResults{
		ComparisonID:      taskID,
		Candidates:        subjects,
		Topic:             topic,
		CompletedAt:       time.Now(),
		StanceCards:       stanceCards,
		CandidateProfiles: profiles,
		Summary:           fmt.Sprintf("Compared %d candidates on %s", len(candidates), summaryTopic),
	}

	summary := map[string]int{
		"candidates_compared":    len(candidates),
		"total_sources":          totalSources,
		"stance_cards_generated": len(stanceCards),
	}
	return o.complete(ctx, taskID, results, summary)
}

// runQuery executes one search query and appends its results. Returns
// capped=true once the task-level source cap is reached, ok=false if the
// task stopped being processing underneath us.
func (o *Orchestrator) runQuery(ctx context.Context, taskID, query string, resultCap, maxSources int) (capped, ok bool) {
	resp, err := o.search(ctx, query, resultCap)
	if err != nil {
		// A single failed query never aborts the task.
		slog.Error("search query failed, continuing", "task_id", taskID, "query", query, "error", err)
		return false, true
	}

	for _, r := range resp.Results {
		task, found := o.store.Get(taskID)
		if !found || task.SourcesFound() >= maxSources {
			return true, found
		}

		appended, stillProcessing := o.appendSource(taskID, toSource(r))
		if !stillProcessing {
			return false, false
		}
		if appended.SourcesFound() >= maxSources {
			return true, true
		}
	}
	return false, true
}

// appendSource records one discovered source and broadcasts it.
func (o *Orchestrator) appendSource(taskID string, source models.Source) (models.Task, bool) {
	task, ok := o.store.UpdateProcessing(taskID, func(t *models.Task) {
		t.Sources = append(t.Sources, source)
	})
	if !ok {
		return models.Task{}, false
	}
	o.broadcast(taskID,stream.NewSource(source.Title, source.URL, source.RelevanceScore))
	return task, true
}

// progressStep advances percent/label and broadcasts, returning ok=false
// when the task is no longer processing.
func (o *Orchestrator) progressStep(ctx context.Context, taskID string, percent int, label string, estimatedRemaining int) (models.Task, bool) {
	task, ok := o.store.UpdateProcessing(taskID, func(t *models.Task) {
		t.PercentComplete = percent
		t.CurrentStep = label
	})
	if !ok {
		return models.Task{}, false
	}

	o.broadcast(taskID,stream.NewProgress(taskID, task.PercentComplete, label, task.SourcesFound(), estimatedRemaining))

	if o.db != nil {
		start := time.Now()
		if err := o.db.QueryUpdateTaskProgress(ctx, taskID, task.PercentComplete, label, task.SourcesFound()); err != nil {
			slog.Warn("failed to persist task progress", "task_id", taskID, "error", err)
		}
		o.record(metrics.OpDBWrite, start)
	}
	return task, true
}

// complete writes the terminal payload to the archive, flips the task to
// completed, moves it to the archived bucket, and broadcasts completion.
func (o *Orchestrator) complete(ctx context.Context, taskID string, payload any, summary map[string]int) error {
	start := time.Now()
	if err := o.archive.Write(taskID, payload); err != nil {
		return fmt.Errorf("archive results: %w", err)
	}
	o.record(metrics.OpArchiveWrite, start)

	now := time.Now()
	task, ok := o.store.UpdateProcessing(taskID, func(t *models.Task) {
		t.Status = models.StatusCompleted
		t.PercentComplete = 100
		t.CurrentStep = "Research complete"
		t.CompletedAt = &now
	})
	if !ok {
		// Cancelled during synthesis; the archived payload stays but the
		// cancellation outcome wins.
		slog.Info("task cancelled during completion, discarding state change", "task_id", taskID)
		return nil
	}
	o.store.Archive(taskID)

	if o.db != nil {
		dbStart := time.Now()
		result := make(map[string]any, len(summary))
		for k, v := range summary {
			result[k] = v
		}
		if err := o.db.QueryCompleteTask(ctx, taskID, result); err != nil {
			slog.Warn("failed to persist task completion", "task_id", taskID, "error", err)
		}
		o.record(metrics.OpDBWrite, dbStart)
	}

	o.broadcast(taskID,stream.NewComplete(taskID, "/api/v1/research/results/"+taskID, summary))
	slog.Info("research task completed", "task_id", taskID, "sources", task.SourcesFound())
	return nil
}

// failTask marks a task failed. No-op when the task already reached a
// terminal state (e.g. cancelled while the goroutine was mid-step).
func (o *Orchestrator) failTask(ctx context.Context, taskID string, taskErr error) {
	now := time.Now()
	_, ok := o.store.UpdateProcessing(taskID, func(t *models.Task) {
		t.Status = models.StatusFailed
		t.CurrentStep = "Error: " + taskErr.Error()
		t.Error = taskErr.Error()
		t.CompletedAt = &now
	})
	if !ok {
		slog.Info("ignoring failure for non-processing task", "task_id", taskID, "error", taskErr)
		return
	}
	o.store.Archive(taskID)

	if o.db != nil {
		if err := o.db.QueryFailTask(ctx, taskID, taskErr.Error()); err != nil {
			slog.Warn("failed to persist task failure", "task_id", taskID, "error", err)
		}
	}

	o.broadcast(taskID,stream.NewError(taskErr.Error(), false))
	slog.Error("research task failed", "task_id", taskID, "error", taskErr)
}

// broadcast delivers one notification via the hub with timing.
func (o *Orchestrator) broadcast(taskID string, message any) {
	start := time.Now()
	o.hub.Broadcast(taskID, message)
	o.record(metrics.OpBroadcast, start)
}

// search invokes the adapter with timing.
func (o *Orchestrator) search(ctx context.Context, query string, maxResults int) (*search.Response, error) {
	start := time.Now()
	resp, err := o.adapter.Search(ctx, query, search.Options{
		MaxResults:        maxResults,
		Topic:             "news",
		IncludeRawContent: true,
	})
	o.record(metrics.OpSearch, start)
	return resp, err
}

func (o *Orchestrator) summarize(ctx context.Context, fn func(ctx context.Context) ([]models.StanceCard, error)) ([]models.StanceCard, error) {
	start := time.Now()
	cards, err := fn(ctx)
	o.record(metrics.OpSummarize, start)
	return cards, err
}

func (o *Orchestrator) summarizeCard(ctx context.Context, topic string, profiles []models.CandidateProfile) (*models.StanceCard, error) {
	start := time.Now()
	card, err := o.summarizer.ComparisonCard(ctx, topic, profiles)
	o.record(metrics.OpSummarize, start)
	return card, err
}

// pace sleeps the inter-query delay, honoring context cancellation.
func (o *Orchestrator) pace(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.pacing):
		return nil
	}
}

// persistCreate writes the initial record when persistence is configured.
func (o *Orchestrator) persistCreate(ctx context.Context, task models.Task) error {
	if o.db == nil {
		return nil
	}
	params := map[string]any{
		"depth":                  string(task.Params.Depth),
		"max_sources":            task.Params.MaxSources,
		"include_voting_records": task.Params.IncludeVotingRecords,
	}
	if task.Params.FocusTopic != "" {
		params["focus_topic"] = task.Params.FocusTopic
	}
	if err := o.db.QueryCreateTask(ctx, task.ID, string(task.Kind), task.Subjects, params, task.StartedAt); err != nil {
		return fmt.Errorf("persist task: %w", err)
	}
	return nil
}

func (o *Orchestrator) record(op string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordTiming(op, time.Since(start))
	}
}

// toSource converts one adapter result to a stored source.
func toSource(r search.Result) models.Source {
	title := r.Title
	if title == "" {
		title = "Untitled"
	}
	score := r.Score
	if score == 0 {
		score = 0.5
	}
	return models.Source{
		Title:          title,
		URL:            r.URL,
		SourceType:     "news",
		Summary:        truncate(r.Content, summaryMaxLen),
		RelevanceScore: score,
	}
}

// truncate shortens a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

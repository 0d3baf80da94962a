package db

import (
	"context"
	"fmt"
	"time"

	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// QueryCreateTask inserts a new research task record.
func (c *Client) QueryCreateTask(
	ctx context.Context,
	taskID string,
	kind string,
	subjects []string,
	params map[string]any,
	startedAt time.Time,
) error {
	sql := `
		CREATE type::record("research_task", $id) SET
			kind = $kind,
			subjects = $subjects,
			params = $params,
			status = "processing",
			percent_complete = 0,
			current_step = "Initializing research...",
			sources_found = 0,
			started_at = type::datetime($started_at)
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":         taskID,
		"kind":       kind,
		"subjects":   subjects,
		"params":     params,
		"started_at": startedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("create task: %w", wrapQueryError(err))
	}
	return nil
}

// QueryUpdateTaskProgress updates step progress for a running task.
func (c *Client) QueryUpdateTaskProgress(ctx context.Context, taskID string, percent int, currentStep string, sourcesFound int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("research_task", $id) SET
			percent_complete = $percent,
			current_step = $step,
			sources_found = $sources
	`, map[string]any{
		"id":      taskID,
		"percent": percent,
		"step":    currentStep,
		"sources": sourcesFound,
	})
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	return nil
}

// QueryCompleteTask marks a task completed with its result summary.
func (c *Client) QueryCompleteTask(ctx context.Context, taskID string, result map[string]any) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("research_task", $id) SET
			status = "completed",
			percent_complete = 100,
			current_step = "Research complete",
			result = $result,
			completed_at = time::now()
	`, map[string]any{
		"id":     taskID,
		"result": result,
	})
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// QueryFailTask marks a task failed with an error message.
func (c *Client) QueryFailTask(ctx context.Context, taskID string, errMsg string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("research_task", $id) SET
			status = "failed",
			current_step = $step,
			error = $error,
			completed_at = time::now()
	`, map[string]any{
		"id":    taskID,
		"step":  "Error: " + errMsg,
		"error": errMsg,
	})
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}

// QueryCancelTask marks a task cancelled.
func (c *Client) QueryCancelTask(ctx context.Context, taskID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("research_task", $id) SET
			status = "cancelled",
			completed_at = time::now()
	`, map[string]any{"id": taskID})
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	return nil
}

// QueryGetTask retrieves a task record by ID.
// Returns nil if not found.
func (c *Client) QueryGetTask(ctx context.Context, taskID string) (*models.ResearchTaskRecord, error) {
	results, err := surrealdb.Query[[]models.ResearchTaskRecord](ctx, c.db, `
		SELECT * FROM type::record("research_task", $id)
	`, map[string]any{"id": taskID})
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryIncompleteTasks returns all task records still marked processing,
// e.g. after an unclean shutdown.
func (c *Client) QueryIncompleteTasks(ctx context.Context) ([]models.ResearchTaskRecord, error) {
	results, err := surrealdb.Query[[]models.ResearchTaskRecord](ctx, c.db, `
		SELECT * FROM research_task WHERE status = "processing" OR status = "pending"
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("incomplete tasks: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.ResearchTaskRecord{}, nil
	}
	return (*results)[0].Result, nil
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/civiscope/civiscope-go/internal/service"
)

const apiVersion = "1.0.0"

// CandidateResearchRequest configures a single-subject research task. The
// candidate name travels in the URL path.
type CandidateResearchRequest struct {
	ResearchDepth        string   `json:"research_depth,omitempty"`
	FocusTopics          []string `json:"focus_topics,omitempty"`
	IncludeVotingRecords bool     `json:"include_voting_records,omitempty"`
	MaxSources           int      `json:"max_sources,omitempty"`
}

// CompareResearchRequest starts a comparison research task.
type CompareResearchRequest struct {
	CandidateNames      []string `json:"candidate_names"`
	FocusTopic          string   `json:"focus_topic,omitempty"`
	GenerateStanceCards bool     `json:"generate_stance_cards,omitempty"`
}

// ResearchResponse acknowledges a newly created research task.
type ResearchResponse struct {
	ResearchID           string `json:"research_id"`
	Status               string `json:"status"`
	WebsocketURL         string `json:"websocket_url"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
	Message              string `json:"message"`
}

// StatusResponse is the point-in-time projection of a task.
type StatusResponse struct {
	ResearchID      string   `json:"research_id"`
	Kind            string   `json:"kind"`
	Subjects        []string `json:"subjects"`
	Status          string   `json:"status"`
	PercentComplete int      `json:"percent_complete"`
	CurrentStep     string   `json:"current_step"`
	SourcesFound    int      `json:"sources_found"`
	StartedAt       string   `json:"started_at"`
	CompletedAt     string   `json:"completed_at,omitempty"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
	Error           string   `json:"error,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Civiscope Research API",
		"docs":    "/api/v1",
		"version": apiVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                   "healthy",
		"version":                  apiVersion,
		"active_research_tasks":    s.orchestrator.ActiveCount(),
		"completed_research_tasks": s.orchestrator.CompletedCount(),
		"websocket_connections":    s.hub.TotalSubscribers(),
		"operations":               s.metrics.Snapshot(),
		"timestamp":                time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleResearchCandidate(w http.ResponseWriter, req *http.Request) {
	candidateName := req.PathValue("name")

	// An empty body means all defaults.
	var body CandidateResearchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	params := models.TaskParams{
		Topics:               body.FocusTopics,
		Depth:                models.ResearchDepth(body.ResearchDepth),
		IncludeVotingRecords: body.IncludeVotingRecords,
		MaxSources:           body.MaxSources,
	}

	id, err := s.orchestrator.CreateCandidateTask(req.Context(), candidateName, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	task, err := s.orchestrator.GetStatus(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResearchResponse{
		ResearchID:           id,
		Status:               string(task.Status),
		WebsocketURL:         "/ws/research/" + id,
		EstimatedTimeSeconds: service.EstimateSeconds(task.Kind, task.Params.Depth, len(task.Subjects)),
		Message:              fmt.Sprintf("Research started for %s. Connect to websocket for updates.", candidateName),
	})
}

func (s *Server) handleResearchCompare(w http.ResponseWriter, req *http.Request) {
	var body CompareResearchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := s.orchestrator.CreateComparisonTask(req.Context(), body.CandidateNames, body.FocusTopic, body.GenerateStanceCards)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	task, err := s.orchestrator.GetStatus(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResearchResponse{
		ResearchID:           id,
		Status:               string(task.Status),
		WebsocketURL:         "/ws/research/" + id,
		EstimatedTimeSeconds: service.EstimateSeconds(task.Kind, task.Params.Depth, len(task.Subjects)),
		Message:              fmt.Sprintf("Comparison started for %d candidates.", len(body.CandidateNames)),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, req *http.Request) {
	task, err := s.orchestrator.GetStatus(req.PathValue("task_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(task))
}

func (s *Server) handleResults(w http.ResponseWriter, req *http.Request) {
	taskID := req.PathValue("task_id")

	raw, err := s.orchestrator.GetResults(taskID)
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
		return
	}
	if !errors.Is(err, service.ErrNotFound) {
		writeServiceError(w, err)
		return
	}

	// No archived payload. A still-running task gets 202 so clients can
	// poll; anything else is a true 404.
	task, statusErr := s.orchestrator.GetStatus(taskID)
	if statusErr == nil && !task.Status.Terminal() {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"research_id":      taskID,
			"status":           string(task.Status),
			"percent_complete": task.PercentComplete,
			"message":          "Research still in progress",
		})
		return
	}
	writeServiceError(w, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, req *http.Request) {
	taskID := req.PathValue("task_id")
	if err := s.orchestrator.Cancel(req.Context(), taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"research_id": taskID,
		"status":      string(models.StatusCancelled),
		"message":     "Research task cancelled",
	})
}

func (s *Server) handleActive(w http.ResponseWriter, _ *http.Request) {
	tasks := s.orchestrator.ActiveTasks()
	out := make([]StatusResponse, len(tasks))
	for i, task := range tasks {
		out[i] = statusResponse(task)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"tasks": out,
	})
}

func (s *Server) handleCandidates(w http.ResponseWriter, _ *http.Request) {
	candidates := s.orchestrator.Candidates()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(candidates),
		"candidates": candidates,
	})
}

func (s *Server) handleCandidate(w http.ResponseWriter, req *http.Request) {
	candidate, err := s.orchestrator.Candidate(req.PathValue("name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active_tasks":    s.orchestrator.ActiveCount(),
		"completed_tasks": s.orchestrator.CompletedCount(),
		"operations":      s.metrics.Snapshot(),
	})
}

func statusResponse(task models.Task) StatusResponse {
	resp := StatusResponse{
		ResearchID:      task.ID,
		Kind:            string(task.Kind),
		Subjects:        task.Subjects,
		Status:          string(task.Status),
		PercentComplete: task.PercentComplete,
		CurrentStep:     task.CurrentStep,
		SourcesFound:    task.SourcesFound(),
		StartedAt:       task.StartedAt.UTC().Format(time.RFC3339),
		Error:           task.Error,
	}
	if task.CompletedAt != nil {
		resp.CompletedAt = task.CompletedAt.UTC().Format(time.RFC3339)
		resp.ElapsedSeconds = task.CompletedAt.Sub(task.StartedAt).Seconds()
	} else {
		resp.ElapsedSeconds = time.Since(task.StartedAt).Seconds()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

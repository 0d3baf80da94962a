package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/civiscope/civiscope-go/internal/llm"
	"github.com/civiscope/civiscope-go/internal/models"
)

// Summarizer derives stance/alignment synthesis from discovered sources.
// Orchestration never inspects which implementation is active, so the
// keyword heuristic can be swapped for a model call without touching the
// task lifecycle.
type Summarizer interface {
	// StanceCards builds one stance card per topic that has relevant
	// sources for a single-subject task.
	StanceCards(ctx context.Context, candidate models.CandidateInfo, topics []string, sources []models.Source) ([]models.StanceCard, error)

	// ComparisonCard builds the stance card for a comparison task. Returns
	// nil when topic is empty.
	ComparisonCard(ctx context.Context, topic string, profiles []models.CandidateProfile) (*models.StanceCard, error)
}

// opposeMarkers flag an opposing alignment in source text.
var opposeMarkers = []string{"oppose", "against", "reject"}

// inferAlignment scans source summaries for opposition keywords. The
// default is supports.
func inferAlignment(sources []models.Source) string {
	for _, s := range sources {
		content := strings.ToLower(s.Summary)
		for _, marker := range opposeMarkers {
			if strings.Contains(content, marker) {
				return models.AlignmentOpposes
			}
		}
	}
	return models.AlignmentSupports
}

// Heuristic is the keyword-scanning summarizer.
type Heuristic struct{}

// Compile-time check that Heuristic implements Summarizer.
var _ Summarizer = (*Heuristic)(nil)

// StanceCards builds stance cards by matching topics against source titles
// and summaries.
func (Heuristic) StanceCards(_ context.Context, candidate models.CandidateInfo, topics []string, sources []models.Source) ([]models.StanceCard, error) {
	var stances []models.StanceCard

	for idx, topic := range topics {
		relevant := relevantSources(topic, sources)
		if len(relevant) == 0 {
			continue
		}

		alignment := inferAlignment(relevant)
		stances = append(stances, models.StanceCard{
			StanceID: fmt.Sprintf("%s-%s-0%d", slugify(candidate.Name), topic, idx+1),
			Question: stanceQuestion(topic),
			Context:  "A key issue in the 2025-2026 election",
			Analysis: fmt.Sprintf("Based on %d sources, %s appears to %s this approach",
				len(relevant), candidate.Name, alignmentVerb(alignment)),
			CandidateMatches: []models.CandidateMatch{
				{
					Name:       candidate.Name,
					Alignment:  alignment,
					SourceLink: relevant[0].URL,
					Party:      candidate.PartyAffiliation,
					Bio:        fmt.Sprintf("Mayoral candidate with stated position on %s", topic),
					Gender:     candidate.Gender,
				},
			},
		})
	}

	return stances, nil
}

// ComparisonCard infers per-candidate alignment from each profile's
// sources.
func (Heuristic) ComparisonCard(_ context.Context, topic string, profiles []models.CandidateProfile) (*models.StanceCard, error) {
	if topic == "" {
		return nil, nil
	}

	matches := make([]models.CandidateMatch, 0, len(profiles))
	for _, profile := range profiles {
		sourceLink := ""
		if len(profile.Sources) > 0 {
			sourceLink = profile.Sources[0].URL
		}
		matches = append(matches, models.CandidateMatch{
			Name:       profile.Name,
			Alignment:  inferAlignment(profile.Sources),
			SourceLink: sourceLink,
			Party:      profile.Party,
			Bio:        profile.Bio,
			Gender:     profile.Gender,
		})
	}

	return &models.StanceCard{
		StanceID: fmt.Sprintf("compare-%s-01", slugify(topic)),
		Question: stanceQuestion(topic),
		Context:  "A contentious issue in the 2025-2026 election cycle",
		Analysis: "This issue divides candidates with different visions for San Francisco's future",
		CandidateMatches: matches,
	}, nil
}

// LLMSummarizer asks a language model to classify alignment, falling back
// to the heuristic when the model is unavailable or returns something
// unusable.
type LLMSummarizer struct {
	model    *llm.Model
	fallback Heuristic
}

// Compile-time check that LLMSummarizer implements Summarizer.
var _ Summarizer = (*LLMSummarizer)(nil)

// NewLLMSummarizer wraps a model.
func NewLLMSummarizer(model *llm.Model) *LLMSummarizer {
	return &LLMSummarizer{model: model}
}

// StanceCards mirrors the heuristic's card structure but lets the model
// decide alignment and write the analysis sentence.
func (s *LLMSummarizer) StanceCards(ctx context.Context, candidate models.CandidateInfo, topics []string, sources []models.Source) ([]models.StanceCard, error) {
	var stances []models.StanceCard

	for idx, topic := range topics {
		relevant := relevantSources(topic, sources)
		if len(relevant) == 0 {
			continue
		}

		alignment, analysis, err := s.model.AnalyzeStance(ctx, candidate.Name, topic, sourceDigest(relevant))
		if err != nil {
			slog.Warn("llm stance analysis failed, using heuristic", "candidate", candidate.Name, "topic", topic, "error", err)
			alignment = inferAlignment(relevant)
			analysis = fmt.Sprintf("Based on %d sources, %s appears to %s this approach",
				len(relevant), candidate.Name, alignmentVerb(alignment))
		}

		stances = append(stances, models.StanceCard{
			StanceID: fmt.Sprintf("%s-%s-0%d", slugify(candidate.Name), topic, idx+1),
			Question: stanceQuestion(topic),
			Context:  "A key issue in the 2025-2026 election",
			Analysis: analysis,
			CandidateMatches: []models.CandidateMatch{
				{
					Name:       candidate.Name,
					Alignment:  alignment,
					SourceLink: relevant[0].URL,
					Party:      candidate.PartyAffiliation,
					Bio:        fmt.Sprintf("Mayoral candidate with stated position on %s", topic),
					Gender:     candidate.Gender,
				},
			},
		})
	}

	return stances, nil
}

// ComparisonCard classifies each profile's alignment with the model.
func (s *LLMSummarizer) ComparisonCard(ctx context.Context, topic string, profiles []models.CandidateProfile) (*models.StanceCard, error) {
	card, err := s.fallback.ComparisonCard(ctx, topic, profiles)
	if card == nil || err != nil {
		return card, err
	}

	for i, profile := range profiles {
		if len(profile.Sources) == 0 {
			continue
		}
		alignment, _, err := s.model.AnalyzeStance(ctx, profile.Name, topic, sourceDigest(profile.Sources))
		if err != nil {
			slog.Warn("llm stance analysis failed, keeping heuristic alignment", "candidate", profile.Name, "topic", topic, "error", err)
			continue
		}
		card.CandidateMatches[i].Alignment = alignment
	}
	return card, nil
}

// relevantSources filters sources whose title or summary mentions the topic.
func relevantSources(topic string, sources []models.Source) []models.Source {
	needle := strings.ToLower(topic)
	var relevant []models.Source
	for _, s := range sources {
		if strings.Contains(strings.ToLower(s.Title), needle) ||
			strings.Contains(strings.ToLower(s.Summary), needle) {
			relevant = append(relevant, s)
		}
	}
	return relevant
}

// sourceDigest flattens sources into prompt context.
func sourceDigest(sources []models.Source) string {
	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s: %s\n", s.Title, s.Summary)
	}
	return b.String()
}

func stanceQuestion(topic string) string {
	return fmt.Sprintf("Should San Francisco prioritize %s?", topic)
}

func alignmentVerb(alignment string) string {
	if alignment == models.AlignmentOpposes {
		return "oppose"
	}
	return "support"
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

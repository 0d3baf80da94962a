// Package llm wraps langchaingo models for stance analysis.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/civiscope/civiscope-go/internal/config"
	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Generate generates text based on a prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// AnalyzeStance classifies a candidate's alignment on a topic from source
// excerpts. Returns the alignment ("supports" or "opposes") and a short
// analysis sentence.
func (m *Model) AnalyzeStance(ctx context.Context, candidateName, topic, sourceDigest string) (alignment, analysis string, err error) {
	systemPrompt := `You classify political positions from news excerpts.
Answer in exactly two lines:
ALIGNMENT: supports|opposes
ANALYSIS: <2-3 sentence plain-language explanation>`

	userPrompt := fmt.Sprintf(`Candidate: %s
Topic: %s

Sources:
%s

Does the candidate support or oppose prioritizing this topic?`, candidateName, topic, sourceDigest)

	response, err := m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", "", err
	}

	alignment = models.AlignmentSupports
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ALIGNMENT:"):
			if strings.Contains(strings.ToLower(line), models.AlignmentOpposes) {
				alignment = models.AlignmentOpposes
			}
		case strings.HasPrefix(line, "ANALYSIS:"):
			analysis = strings.TrimSpace(strings.TrimPrefix(line, "ANALYSIS:"))
		}
	}

	if analysis == "" {
		return "", "", fmt.Errorf("unparseable stance response: %q", response)
	}
	return alignment, analysis, nil
}

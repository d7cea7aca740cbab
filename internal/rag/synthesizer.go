package rag

import (
	"context"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/llm"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/metrics"
)

// Synthesizer turns retrieved chunks into a persona answer.
type Synthesizer struct {
	prompts *llm.PromptGenerator
	model   core.Generator
}

// NewSynthesizer creates a synthesizer over a prompt generator and a model.
func NewSynthesizer(prompts *llm.PromptGenerator, model core.Generator) *Synthesizer {
	return &Synthesizer{prompts: prompts, model: model}
}

// Answer asks the model to answer question from results and returns its
// output unmodified. Empty results still invoke the model with no context.
func (s *Synthesizer) Answer(ctx context.Context, question string, results []core.SearchResult) (string, error) {
	if len(results) == 0 {
		logger.Warn("Answering %q with an empty context", question)
	}
	prompt := s.prompts.AnswerPrompt(FormatContext(results), question)

	answer, err := s.model.Generate(ctx, prompt)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("generate").Inc()
		return "", core.Upstream("generate answer", err)
	}
	return answer, nil
}

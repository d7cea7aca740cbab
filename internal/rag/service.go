package rag

import (
	"context"
	"strings"

	"github.com/hunterwarburton/webrag/internal/core"
)

// QAService answers questions against the index.
type QAService struct {
	index       *IndexManager
	retriever   *Retriever
	synthesizer *Synthesizer
}

// NewQAService wires the index manager, retriever and synthesizer together.
func NewQAService(index *IndexManager, retriever *Retriever, synthesizer *Synthesizer) *QAService {
	return &QAService{index: index, retriever: retriever, synthesizer: synthesizer}
}

// Ask makes sure the index exists, retrieves context for question and
// returns the model's answer.
func (s *QAService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &core.ValidationError{Message: core.MsgQuestionRequired}
	}

	if err := s.index.EnsureReady(ctx); err != nil {
		return "", err
	}

	results, err := s.retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return "", err
	}
	return s.synthesizer.Answer(ctx, question, results)
}

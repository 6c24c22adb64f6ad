package llm

import (
	"context"
	"fmt"

	"relialab/internal"
	"relialab/ports"
)

// Summarizer implements ports.Summarizer over a chat client
type Summarizer struct {
	client ChatClient
	system string
	logger *internal.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer creates a summarizer; system is the persona sent with every prompt
func NewSummarizer(client ChatClient, system string, logger *internal.Logger) *Summarizer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Summarizer{client: client, system: system, logger: logger.With("Summarizer")}
}

func (s *Summarizer) Summarize(ctx context.Context, req ports.SummaryRequest) (string, error) {
	if len(req.Parameters) == 0 {
		return "", fmt.Errorf("no fitted parameters to summarize")
	}
	prompt := BuildSummaryPrompt(req)
	s.logger.Debug("requesting summary for %s (%d prompt chars)", req.Distribution, len(prompt))

	text, err := s.client.ChatCompletion(ctx, s.system, prompt)
	if err != nil {
		s.logger.Warn("summary request failed: %v", err)
		return "", err
	}
	return text, nil
}

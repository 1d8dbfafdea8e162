package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/model"
)

// FallbackCritique is shown when the critique call fails or says nothing.
const FallbackCritique = "Pricing grid looks reasonable."

// Critique asks the agent for a two-sentence review of the working grid
// against the current bill. It runs independently of the conversation and
// never fails; errors degrade to FallbackCritique.
func (s *Session) Critique(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	if s.phase != PhaseUnlocked {
		s.mu.Unlock()
		return "", ErrGateClosed
	}
	if s.critiquing {
		s.mu.Unlock()
		return "", ErrExchangeInFlight
	}
	s.critiquing = true
	lines := s.grid.Lines()
	current, proposed := s.scenario.BaselineTotal(), s.grid.Totals().Total
	s.mu.Unlock()

	details, err := json.Marshal(lines)
	if err != nil {
		details = []byte("[]")
	}
	prompt := fmt.Sprintf(
		"Analyze this T-Mobile offer. Current: $%.2f, Proposed: $%.2f. Details: %s. Provide a 2-sentence expert critique on the PRICING GRID accuracy.",
		current, proposed, details,
	)
	req := model.CompletionRequest{
		Model:       s.deps.opts.Model,
		Messages:    []model.Message{{Role: model.RoleUser, Content: prompt}},
		MaxTokens:   s.deps.opts.MaxTokens,
		Temperature: s.deps.opts.Temperature,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.deps.opts.ExchangeTimeout)
	resp, err := s.deps.provider.Complete(callCtx, req)
	cancel()

	text := FallbackCritique
	if err != nil {
		s.logger.Warn("critique failed", zap.Error(err))
	} else if trimmed := strings.TrimSpace(resp.Content); trimmed != "" {
		text = trimmed
	}

	s.mu.Lock()
	s.critiquing = false
	s.critique = text
	s.mu.Unlock()
	return text, nil
}

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

// StubProvider returns a deterministic batch built from the role and the last
// message. It never leaves the process.
type StubProvider struct{}

func NewStubProvider() *StubProvider { return &StubProvider{} }

func (StubProvider) Name() string { return "stub" }

func (StubProvider) Suggest(ctx context.Context, req suggest.Request) ([]models.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIProviderUnavailable, err)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, req.Role)
	}

	topic := "this"
	if n := len(req.Messages); n > 0 {
		if words := strings.Fields(sanitizeInput(req.Messages[n-1].Content)); len(words) > 0 {
			topic = truncateRunes(strings.Join(words[:min(len(words), 3)], " "), 40)
		}
	}

	var texts []string
	if req.Role == models.RoleDoctor {
		texts = []string{
			fmt.Sprintf("Tell me more about %s", topic),
			"When did this start?",
			"Let's review your current medications",
		}
	} else {
		texts = []string{
			fmt.Sprintf("What should I know about %s?", topic),
			"Is this something to worry about?",
			"What should I do next?",
		}
	}

	out := make([]models.Suggestion, 0, len(texts))
	for i, t := range texts {
		out = append(out, models.Suggestion{ID: i + 1, Text: t, Icon: "💬"})
	}
	return out, nil
}

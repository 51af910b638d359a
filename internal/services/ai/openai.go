package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

// chatCompleter is the part of *openai.Client the provider calls.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider asks an OpenAI-compatible chat model for suggestions.
type OpenAIProvider struct {
	client      chatCompleter
	model       string
	temperature float32
	configured  bool
	logger      *logging.Logger
}

// NewOpenAIProvider builds a provider against the public API, or against
// baseURL when set (any OpenAI-compatible endpoint).
func NewOpenAIProvider(apiKey, model, baseURL string, temperature float64, httpClient *http.Client, logger *logging.Logger) *OpenAIProvider {
	if logger == nil {
		logger = logging.Default
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: float32(temperature),
		configured:  strings.TrimSpace(apiKey) != "",
		logger:      logger,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Suggest(ctx context.Context, req suggest.Request) ([]models.Suggestion, error) {
	if !p.configured || p.client == nil {
		return nil, ErrAINotConfigured
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, req.Role)
	}

	log := p.logger.FromContext(ctx)
	log.Debug("Sending suggestion request to OpenAI", map[string]interface{}{
		"model":         p.model,
		"role":          string(req.Role),
		"message_count": len(req.Messages),
	})

	// json_object mode needs a top-level object, so the prompt asks for the
	// array wrapped in "suggestions".
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req.Role)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req) + "\nWrap the array in an object under the key \"suggestions\"."},
		},
		Temperature: p.temperature,
		MaxTokens:   512,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrAIProviderUnavailable)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, ErrSafetyViolation
	}

	log.Debug("Received suggestion response from OpenAI", map[string]interface{}{
		"response_length": len(choice.Message.Content),
		"finish_reason":   string(choice.FinishReason),
		"tokens_total":    resp.Usage.TotalTokens,
	})

	return parseSuggestions(choice.Message.Content)
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d", ErrRateLimitExceeded, apiErr.HTTPStatusCode)
		}
		return fmt.Errorf("%w: status %d: %s", ErrAIProviderUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d", ErrRateLimitExceeded, reqErr.HTTPStatusCode)
		}
		return fmt.Errorf("%w: status %d", ErrAIProviderUnavailable, reqErr.HTTPStatusCode)
	}
	return fmt.Errorf("%w: %v", ErrAIProviderUnavailable, err)
}

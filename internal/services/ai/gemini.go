package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

var geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider asks Gemini for suggestions directly.
type GeminiProvider struct {
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	logger      *logging.Logger
}

// Gemini API Request/Response structs

type geminiRequest struct {
	Contents          []geminiContent          `json:"contents"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
	SafetySettings    []geminiSafetySetting    `json:"safetySettings"`
	SystemInstruction *geminiSystemInstruction `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
	Temperature      float64       `json:"temperature"`
	MaxOutputTokens  int           `json:"maxOutputTokens,omitempty"`
}

type geminiSchema struct {
	Type       string                  `json:"type"`
	Items      *geminiSchema           `json:"items,omitempty"`
	Properties map[string]geminiSchema `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`
	MaxItems   string                  `json:"maxItems,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Usage      geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func NewGeminiProvider(apiKey, model string, temperature float64, client *http.Client, logger *logging.Logger) *GeminiProvider {
	if logger == nil {
		logger = logging.Default
	}
	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		client:      client,
		logger:      logger,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Suggest(ctx context.Context, req suggest.Request) ([]models.Suggestion, error) {
	log := p.logger.FromContext(ctx)
	if strings.TrimSpace(p.apiKey) == "" {
		return nil, ErrAINotConfigured
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, req.Role)
	}

	userMessage := userPrompt(req)
	reqBody := geminiRequest{
		SystemInstruction: &geminiSystemInstruction{
			Parts: []geminiPart{{Text: systemPrompt(req.Role)}},
		},
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: userMessage}},
			},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: &geminiSchema{
				Type:     "array",
				MaxItems: fmt.Sprint(suggest.MaxSuggestions),
				Items: &geminiSchema{
					Type: "object",
					Properties: map[string]geminiSchema{
						"text": {Type: "string"},
						"icon": {Type: "string"},
					},
					Required: []string{"text", "icon"},
				},
			},
			Temperature:     p.temperature,
			MaxOutputTokens: 512,
		},
		SafetySettings: []geminiSafetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request", ErrAIProviderUnavailable)
	}

	// Request metadata only; conversation text stays out of the logs.
	log.Debug("Sending suggestion request to Gemini", map[string]interface{}{
		"model":         p.model,
		"role":          string(req.Role),
		"message_count": len(req.Messages),
		"prompt_length": len(userMessage),
	})

	url := fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIProviderUnavailable, err)
	}
	defer func() {
		// Drain and close the body to ensure connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrRateLimitExceeded, resp.StatusCode)
		}

		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		if len(bodyBytes) > 0 {
			log.Error("Gemini non-200 response", map[string]interface{}{
				"status": resp.StatusCode,
				"body":   string(bodyBytes),
			})
		} else if dump, dumpErr := httputil.DumpResponse(resp, false); dumpErr == nil {
			log.Error("Gemini non-200 response (headers only)", map[string]interface{}{
				"status": resp.StatusCode,
				"dump":   string(dump),
			})
		}
		return nil, fmt.Errorf("%w: status %d", ErrAIProviderUnavailable, resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response", ErrAIProviderUnavailable)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, ErrSafetyViolation
	}
	candidate := geminiResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return nil, ErrSafetyViolation
	}
	if len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty content parts", ErrAIProviderUnavailable)
	}

	responseText := candidate.Content.Parts[0].Text
	log.Debug("Received suggestion response from Gemini", map[string]interface{}{
		"response_length": len(responseText),
		"finish_reason":   candidate.FinishReason,
		"tokens_total":    geminiResp.Usage.TotalTokenCount,
	})

	suggestions, err := parseSuggestions(responseText)
	if err != nil {
		log.Warn("Gemini returned unusable suggestions", map[string]interface{}{
			"finish_reason":   candidate.FinishReason,
			"response_length": len(responseText),
			"error":           err.Error(),
		})
		return nil, err
	}
	return suggestions, nil
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

const generateSuggestionsPath = "/health/chat/generate-suggestions"

// HTTPProvider calls an external suggestion service that speaks the portal's
// generate-suggestions contract.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logging.Logger
}

type remoteResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

func NewHTTPProvider(baseURL, token string, client *http.Client, logger *logging.Logger) *HTTPProvider {
	if logger == nil {
		logger = logging.Default
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		logger:  logger,
	}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Suggest(ctx context.Context, req suggest.Request) ([]models.Suggestion, error) {
	if p.baseURL == "" {
		return nil, ErrAINotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request", ErrAIProviderUnavailable)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+generateSuggestionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}
	if id := logging.RequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIProviderUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrRateLimitExceeded, resp.StatusCode)
		}
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		p.logger.FromContext(ctx).Error("Suggestion service non-2xx response", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   truncateForLog(string(preview), 512),
		})
		return nil, fmt.Errorf("%w: status %d", ErrAIProviderUnavailable, resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response", ErrAIProviderUnavailable)
	}
	if len(decoded.Suggestions) == 0 {
		return nil, ErrEmptySuggestions
	}
	return decoded.Suggestions, nil
}

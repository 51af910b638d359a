package ai

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medoshield/chatassist/internal/config"
	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

// A remote attempt must always end; zero would leave http.Client unbounded.
const defaultRequestTimeout = 30 * time.Second

// NewProvider builds the remote provider selected by cfg. The "none"
// provider yields a nil Provider, which leaves the engine on local rules.
func NewProvider(cfg config.AIConfig, logger *logging.Logger) (suggest.Provider, error) {
	if logger == nil {
		logger = logging.Default
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch name := cfg.EffectiveProvider(); name {
	case config.ProviderStub:
		return NewStubProvider(), nil
	case config.ProviderNone:
		return nil, nil
	case config.ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn("Gemini API key missing; suggestions will use local rules", map[string]interface{}{
				"provider": name,
			})
		}
		return NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature, client, logger), nil
	case config.ProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			logger.Warn("OpenAI API key missing; suggestions will use local rules", map[string]interface{}{
				"provider": name,
			})
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.Temperature, client, logger), nil
	case config.ProviderHTTP:
		return NewHTTPProvider(cfg.RemoteBaseURL, cfg.RemoteToken, client, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, cfg.Provider)
	}
}

package ai

import "errors"

var (
	ErrAIProviderUnavailable = errors.New("AI provider is currently unavailable")
	ErrAINotConfigured       = errors.New("AI provider is not configured")
	ErrSafetyViolation       = errors.New("generated content violated safety policies")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrInvalidInput          = errors.New("invalid input parameters")
	ErrEmptySuggestions      = errors.New("provider returned no suggestions")
)

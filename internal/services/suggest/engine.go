// Package suggest picks follow-up prompts for the patient/doctor chat. A
// remote provider is asked first; any failure falls back to a static keyword
// table so the caller always gets a usable batch for a known role.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
)

var (
	ErrNoProvider    = errors.New("no remote suggestion provider configured")
	ErrEmptyBatch    = errors.New("remote provider returned no usable suggestions")
	ErrProviderPanic = errors.New("remote provider panicked")
)

const noProviderName = "none"

var recordTimeout = 2 * time.Second

// Request is the body sent to a remote suggestion provider.
type Request struct {
	Messages []RemoteMessage `json:"messages"`
	Role     models.Role     `json:"role"`
}

// Provider is a remote source of suggestions. Implementations make a single
// attempt per call.
type Provider interface {
	Name() string
	Suggest(ctx context.Context, req Request) ([]models.Suggestion, error)
}

// RemoteResult is the outcome of one remote attempt: either a usable batch
// or the reason it was rejected.
type RemoteResult struct {
	Suggestions []models.Suggestion
	Err         error
}

func (r RemoteResult) OK() bool {
	return r.Err == nil && len(r.Suggestions) > 0
}

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceNone   Source = "none"
)

// Outcome describes how a batch was produced.
type Outcome struct {
	Role           models.Role
	Source         Source
	Provider       string
	Category       string
	Count          int
	FallbackReason string
	Duration       time.Duration
	Digest         string
}

// Recorder receives one Outcome per call. Errors are logged and ignored.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

type Engine struct {
	provider Provider
	recorder Recorder
	logger   *logging.Logger
	timeout  time.Duration
	window   int
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTimeout bounds the remote attempt. Zero leaves it to the provider.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithHistoryWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// NewEngine builds an engine around provider, which may be nil to run the
// local rules only.
func NewEngine(provider Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		logger:   logging.Default,
		window:   HistoryWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetSuggestions returns between one and MaxSuggestions suggestions for a
// known role and an empty slice otherwise.
func (e *Engine) GetSuggestions(ctx context.Context, conversation []models.Message, role models.Role) []models.Suggestion {
	out, _ := e.Suggest(ctx, conversation, role)
	return out
}

// Suggest is GetSuggestions plus a description of which path served it.
func (e *Engine) Suggest(ctx context.Context, conversation []models.Message, role models.Role) ([]models.Suggestion, Outcome) {
	start := time.Now()
	outcome := Outcome{Role: role, Source: SourceNone, Provider: e.providerName()}

	if !role.Valid() {
		outcome.Duration = time.Since(start)
		return []models.Suggestion{}, outcome
	}

	req := Request{Messages: ProjectRecent(conversation, e.window), Role: role}
	outcome.Digest = ConversationDigest(role, req.Messages)

	result := e.callRemote(ctx, req)
	if result.OK() {
		out := Truncate(result.Suggestions, MaxSuggestions)
		outcome.Source = SourceRemote
		outcome.Count = len(out)
		outcome.Duration = time.Since(start)
		e.record(ctx, outcome)
		return out, outcome
	}

	e.logger.FromContext(ctx).Warn("Remote suggestions unavailable; using local rules", map[string]interface{}{
		"role":          string(role),
		"provider":      outcome.Provider,
		"reason":        result.Err.Error(),
		"message_count": len(req.Messages),
	})

	out := Truncate(ClassifyAndSuggest(conversation, role), MaxSuggestions)
	outcome.Source = SourceLocal
	outcome.Category = Classify(conversation, role)
	outcome.FallbackReason = result.Err.Error()
	outcome.Count = len(out)
	outcome.Duration = time.Since(start)
	e.record(ctx, outcome)
	return out, outcome
}

func (e *Engine) callRemote(ctx context.Context, req Request) (result RemoteResult) {
	if e.provider == nil {
		return RemoteResult{Err: ErrNoProvider}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			result = RemoteResult{Err: fmt.Errorf("%w: %v", ErrProviderPanic, p)}
		}
	}()

	batch, err := e.provider.Suggest(ctx, req)
	if err != nil {
		return RemoteResult{Err: err}
	}
	batch = normalizeBatch(batch)
	if len(batch) == 0 {
		return RemoteResult{Err: ErrEmptyBatch}
	}
	return RemoteResult{Suggestions: batch}
}

// record keeps the caller's values (request id) but not its cancellation, so
// a client disconnect does not drop the row.
func (e *Engine) record(ctx context.Context, o Outcome) {
	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := e.recorder.Record(ctx, o); err != nil {
		e.logger.FromContext(ctx).Error("Failed to record suggestion outcome", map[string]interface{}{
			"error":  err.Error(),
			"role":   string(o.Role),
			"source": string(o.Source),
		})
	}
}

func (e *Engine) providerName() string {
	if e.provider == nil {
		return noProviderName
	}
	return e.provider.Name()
}

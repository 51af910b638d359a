package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

// DBExecutor is the slice of pgxpool.Pool the telemetry writer needs.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	newLogID = uuid.New
	logNow   = time.Now
)

// SuggestionLogService stores one row per suggestion request. The rows are
// never read back by the engine.
type SuggestionLogService struct {
	db DBExecutor
}

func NewSuggestionLogService(db DBExecutor) *SuggestionLogService {
	return &SuggestionLogService{db: db}
}

func (s *SuggestionLogService) Record(ctx context.Context, o suggest.Outcome) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO suggestion_logs
		   (id, role, source, provider, category, suggestion_count, fallback_reason,
		    duration_ms, conversation_digest, request_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		newLogID(),
		string(o.Role),
		string(o.Source),
		o.Provider,
		nullIfEmpty(o.Category),
		o.Count,
		nullIfEmpty(truncateReason(o.FallbackReason)),
		o.Duration.Milliseconds(),
		nullIfEmpty(o.Digest),
		nullIfEmpty(logging.RequestID(ctx)),
	)
	if err != nil {
		return fmt.Errorf("recording suggestion outcome: %w", err)
	}
	return nil
}

// PruneBefore deletes rows older than cutoff and returns how many went.
func (s *SuggestionLogService) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM suggestion_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning suggestion logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunRetention prunes rows older than retention once immediately and then on
// every tick until ctx is cancelled.
func (s *SuggestionLogService) RunRetention(ctx context.Context, retention, every time.Duration, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default
	}
	prune := func() {
		deleted, err := s.PruneBefore(ctx, logNow().Add(-retention))
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Suggestion log cleanup failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		if deleted > 0 {
			logger.Info("Pruned suggestion logs", map[string]interface{}{
				"deleted":   deleted,
				"retention": retention.String(),
			})
		}
	}

	prune()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

const maxReasonLen = 500

func truncateReason(s string) string {
	if len(s) <= maxReasonLen {
		return s
	}
	n := maxReasonLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/models"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

type fakeExec struct {
	ExecFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	calls    int
	lastSQL  string
	lastArgs []any
}

func (f *fakeExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls++
	f.lastSQL = sql
	f.lastArgs = args
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestSuggestionLogService_Record(t *testing.T) {
	fixedID := uuid.MustParse("00000000-0000-0000-0000-000000000042")
	origID := newLogID
	t.Cleanup(func() { newLogID = origID })
	newLogID = func() uuid.UUID { return fixedID }

	db := &fakeExec{}
	svc := NewSuggestionLogService(db)

	ctx := logging.WithRequestID(context.Background(), "req-1")
	err := svc.Record(ctx, suggest.Outcome{
		Role:           models.RolePatient,
		Source:         suggest.SourceLocal,
		Provider:       "gemini",
		Category:       "symptom",
		Count:          5,
		FallbackReason: "ai provider unavailable",
		Duration:       1500 * time.Millisecond,
		Digest:         "abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.calls != 1 {
		t.Fatalf("expected 1 exec, got %d", db.calls)
	}
	if !strings.Contains(db.lastSQL, "INSERT INTO suggestion_logs") {
		t.Fatalf("unexpected SQL: %s", db.lastSQL)
	}
	if len(db.lastArgs) != 10 {
		t.Fatalf("expected 10 args, got %d", len(db.lastArgs))
	}
	if db.lastArgs[0] != fixedID {
		t.Fatalf("expected id %s, got %v", fixedID, db.lastArgs[0])
	}
	if db.lastArgs[1] != "patient" || db.lastArgs[2] != "local" || db.lastArgs[3] != "gemini" {
		t.Fatalf("unexpected leading args: %v", db.lastArgs[:4])
	}
	if cat, ok := db.lastArgs[4].(*string); !ok || cat == nil || *cat != "symptom" {
		t.Fatalf("expected category symptom, got %v", db.lastArgs[4])
	}
	if db.lastArgs[5] != 5 {
		t.Fatalf("expected count 5, got %v", db.lastArgs[5])
	}
	if db.lastArgs[7] != int64(1500) {
		t.Fatalf("expected 1500ms, got %v", db.lastArgs[7])
	}
	if rid, ok := db.lastArgs[9].(*string); !ok || rid == nil || *rid != "req-1" {
		t.Fatalf("expected request id, got %v", db.lastArgs[9])
	}
}

func TestSuggestionLogService_Record_EmptyFieldsAreNull(t *testing.T) {
	db := &fakeExec{}
	svc := NewSuggestionLogService(db)

	if err := svc.Record(context.Background(), suggest.Outcome{
		Role:     models.RoleDoctor,
		Source:   suggest.SourceRemote,
		Provider: "stub",
		Count:    3,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, idx := range []int{4, 6, 8, 9} {
		if p, ok := db.lastArgs[idx].(*string); !ok || p != nil {
			t.Fatalf("expected nil arg at %d, got %v", idx, db.lastArgs[idx])
		}
	}
}

func TestSuggestionLogService_Record_Error(t *testing.T) {
	db := &fakeExec{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection refused")
		},
	}
	svc := NewSuggestionLogService(db)

	err := svc.Record(context.Background(), suggest.Outcome{Role: models.RolePatient})
	if err == nil || !strings.Contains(err.Error(), "recording suggestion outcome") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSuggestionLogService_PruneBefore(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	db := &fakeExec{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("DELETE 7"), nil
		},
	}
	svc := NewSuggestionLogService(db)

	n, err := svc.PruneBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
	if db.lastArgs[0] != cutoff {
		t.Fatalf("expected cutoff arg, got %v", db.lastArgs[0])
	}
}

func TestTruncateReason(t *testing.T) {
	short := "timeout"
	if got := truncateReason(short); got != short {
		t.Fatalf("expected unchanged, got %q", got)
	}

	long := strings.Repeat("é", maxReasonLen)
	got := truncateReason(long)
	if len(got) > maxReasonLen {
		t.Fatalf("expected at most %d bytes, got %d", maxReasonLen, len(got))
	}
	if !strings.HasPrefix(long, got) || strings.ContainsRune(got, '�') {
		t.Fatalf("expected clean rune boundary, got %q", got[len(got)-4:])
	}
}

func TestSuggestionLogService_RunRetention(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	origNow := logNow
	t.Cleanup(func() { logNow = origNow })
	logNow = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := &fakeExec{ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		cancel()
		return pgconn.NewCommandTag("DELETE 3"), nil
	}}
	svc := NewSuggestionLogService(db)

	var buf strings.Builder
	svc.RunRetention(ctx, 24*time.Hour, time.Hour, logging.New().SetOutput(&buf))

	if db.calls != 1 {
		t.Fatalf("expected one prune before cancellation, got %d", db.calls)
	}
	if db.lastArgs[0] != now.Add(-24*time.Hour) {
		t.Fatalf("expected cutoff one day back, got %v", db.lastArgs[0])
	}
	if !strings.Contains(buf.String(), `"deleted":3`) {
		t.Fatalf("expected prune to be logged, got %s", buf.String())
	}
}

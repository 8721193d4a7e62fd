package audit

import (
	"context"
	"testing"
	"time"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/pkg/logger"
)

func mustLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func mustLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(":memory:", mustLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestStartThenFinishSuccess(t *testing.T) {
	l := mustLog(t)
	ctx := context.Background()

	h, err := l.Start(ctx, model.OpProcessRealData, "/api/oracle/process", "date=2026-01-01")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := l.Finish(ctx, h, true, 10, 0, "ok", ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	records, err := l.Recent(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Status != model.StatusSuccess {
		t.Fatalf("Status = %q, want SUCCESS", records[0].Status)
	}
}

func TestFinishWithErrorsForcesPartialSuccess(t *testing.T) {
	l := mustLog(t)
	ctx := context.Background()

	h, err := l.Start(ctx, model.OpSyncPredictedData, "/api/predicted-flights/auto-sync", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Finish(ctx, h, true, 10, 2, "2 errors", ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	records, err := l.FilterByStatus(ctx, model.StatusPartialSuccess, 10, 0)
	if err != nil {
		t.Fatalf("FilterByStatus: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 PARTIAL_SUCCESS record", len(records))
	}
}

func TestFinishFailureOverridesSuccessFlag(t *testing.T) {
	l := mustLog(t)
	ctx := context.Background()

	h, err := l.Start(ctx, model.OpDensifyPredictedData, "/api/trajectory-densification/auto-sync", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Finish(ctx, h, false, 0, 0, "", "broker unreachable"); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	records, err := l.FilterByOperation(ctx, model.OpDensifyPredictedData, 10, 0)
	if err != nil {
		t.Fatalf("FilterByOperation: %v", err)
	}
	if len(records) != 1 || records[0].Status != model.StatusFailure {
		t.Fatalf("records = %+v, want one FAILURE record", records)
	}
	if records[0].ErrorMessage != "broker unreachable" {
		t.Fatalf("ErrorMessage = %q", records[0].ErrorMessage)
	}
}

func TestStatsComputesSuccessRate(t *testing.T) {
	l := mustLog(t)
	ctx := context.Background()

	success, err := l.Start(ctx, model.OpProcessRealData, "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	l.Finish(ctx, success, true, 1, 0, "", "")

	failure, err := l.Start(ctx, model.OpProcessRealData, "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	l.Finish(ctx, failure, false, 0, 0, "", "boom")

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("SuccessRate = %v, want 0.5", stats.SuccessRate)
	}
}

func TestCleanupOlderThanRemovesOldRecords(t *testing.T) {
	l := mustLog(t)
	ctx := context.Background()

	h, err := l.Start(ctx, model.OpProcessRealData, "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	l.Finish(ctx, h, true, 1, 0, "", "")

	// Timestamps are stored in milliseconds and cleanup removes only rows
	// strictly older than the cutoff, so let the clock move past the
	// record's millisecond first.
	time.Sleep(2 * time.Millisecond)

	n, err := l.CleanupOlderThan(ctx, 0)
	if err != nil {
		t.Fatalf("CleanupOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("CleanupOlderThan removed %d, want 1", n)
	}

	records, err := l.Recent(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("len(records) = %d, want 0 after cleanup", len(records))
	}
}

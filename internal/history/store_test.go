package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/purchasing-tools/po-extract/constants"
)

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"), logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	runID := uuid.New()
	if err := store.StartRun(ctx, runID, "purchase_order", 3); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.RecordPage(ctx, runID, "scan_1.pdf", constants.PageStatusOK, 4, "", 0); err != nil {
		t.Fatalf("record page: %v", err)
	}
	if err := store.RecordPage(ctx, runID, "scan_2.pdf", constants.PageStatusEmpty, 0, "", 0); err != nil {
		t.Fatalf("record page: %v", err)
	}
	if err := store.RecordPage(ctx, runID, "fail.pdf", constants.PageStatusFailed, 0, "service unavailable", 503); err != nil {
		t.Fatalf("record page: %v", err)
	}
	if err := store.FinishRun(ctx, runID, 2, 1); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	failed, err := store.FailedPages(ctx, runID)
	if err != nil {
		t.Fatalf("failed pages: %v", err)
	}
	if len(failed) != 1 || failed[0] != "fail.pdf" {
		t.Fatalf("failed pages = %v, want [fail.pdf]", failed)
	}
}

package storage

import (
	"context"
	"testing"
)

func TestReportArchiveDegradesWithoutClient(t *testing.T) {
	archive := &ReportArchive{bucket: "reports"}

	// saving without a client is a no-op, never a panic or an error
	if err := archive.SaveReport(context.Background(), "run-1", []byte("{}")); err != nil {
		t.Fatalf("expected log-only degradation, got %v", err)
	}

	if _, err := archive.GetReport(context.Background(), "run-1"); err == nil {
		t.Fatal("expected an error reading from an unavailable archive")
	}
}

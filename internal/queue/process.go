package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/act-placemat/loom/internal/runner"
	"github.com/act-placemat/loom/pkg/leaselock"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/resolve"
	"github.com/act-placemat/loom/pkg/source"
)

// RunMsg triggers a discovery run. RunID is optional: passing the ID of
// an interrupted run resumes it from its last checkpoint.
type RunMsg struct {
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// IngestMsg carries one batch of raw contacts from a named source.
type IngestMsg struct {
	Message    string              `json:"message"`
	SourceName string              `json:"source_name"`
	Contacts   []source.RawContact `json:"contacts"`
}

// ProcessRunMessage executes a full discovery run for a queued trigger.
// When locks is non-nil, the run executes under a lease on its run ID, so
// a redelivered or duplicated trigger is acked without a second pipeline.
func ProcessRunMessage(ctx context.Context, r *runner.Runner, locks *leaselock.Client, msg string) error {
	data := new(RunMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("decoding run message: %w", err)
	}

	execute := func(ctx context.Context) error {
		summary, err := r.Run(ctx, data.RunID)
		if err != nil {
			return fmt.Errorf("run %s: %w", summary.RunID, err)
		}
		if len(summary.Failed) > 0 {
			logger.Warn("[Queue] Run finished with failures",
				"run", summary.RunID, "failed", len(summary.Failed))
		}
		return nil
	}

	if locks == nil || data.RunID == "" {
		return execute(ctx)
	}

	err := locks.WithLease(ctx, "run:"+data.RunID, leaselock.Options{}, execute)
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Warn("[Queue] Run already in progress, skipping", "run", data.RunID)
		return nil
	}
	return err
}

// ProcessIngestMessage resolves a queued contact batch. Resolution is
// single-writer: the worker consumes with prefetch 1, so no two batches
// merge people concurrently.
func ProcessIngestMessage(ctx context.Context, resolver *resolve.Resolver, msg string) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("decoding ingest message: %w", err)
	}

	src := &source.StaticContacts{
		SourceName: data.SourceName,
		Records:    data.Contacts,
	}
	ids, skipped, err := resolver.ResolveBatch(ctx, src)
	if err != nil {
		return fmt.Errorf("ingest from %s: %w", data.SourceName, err)
	}

	logger.Info("[Queue] Ingest complete",
		"source", data.SourceName, "resolved", len(ids), "skipped", skipped)
	return nil
}

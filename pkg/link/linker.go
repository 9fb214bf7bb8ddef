// Package link turns scored candidate edges into committed relationships.
// It owns the confidence thresholds and the edge status state machine:
// strong candidates link automatically, middling ones queue for human
// review, weak ones are dropped with an audit trace.
package link

import (
	"context"
	"fmt"
	"time"

	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/store"
)

const (
	// AutoLinkThreshold is the confidence at or above which an edge is
	// committed without human review.
	AutoLinkThreshold = 0.8
	// ReviewThreshold is the confidence at or above which an edge is
	// queued for review. Below it, candidates are rejected outright.
	ReviewThreshold = 0.5

	// commit retry policy for transient store failures
	commitTries   = 3
	commitBackoff = 200 * time.Millisecond
)

// AuditSink receives a record of every candidate decision, including the
// ones that produce no edge. Implementations must not block long.
type AuditSink interface {
	RecordDecision(ctx context.Context, runID string, candidate common.CandidateEdge, outcome string, reason string)
}

// Outcome holds the tally of one commit batch.
type Outcome struct {
	Linked     int
	Queued     int
	Rejected   int
	Reinforced int
}

// Linker commits candidate edges against the store.
type Linker struct {
	store store.Store
	audit AuditSink
}

// NewLinker creates a linker. The audit sink is optional.
func NewLinker(s store.Store, audit AuditSink) *Linker {
	return &Linker{store: s, audit: audit}
}

// Commit applies the threshold policy to each candidate in order. Store
// writes are retried on transient failure; a candidate that still fails
// after retries aborts the batch so the runner can checkpoint before it.
func (l *Linker) Commit(ctx context.Context, runID string, candidates []common.CandidateEdge) (Outcome, error) {
	var out Outcome
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := l.commitOne(ctx, runID, candidate, &out); err != nil {
			return out, fmt.Errorf("committing edge to %s: %w", candidate.Target.Name, err)
		}
	}
	return out, nil
}

func (l *Linker) commitOne(ctx context.Context, runID string, candidate common.CandidateEdge, out *Outcome) error {
	if candidate.Reinforces != "" {
		err := util.RetryErrWithBackoff(ctx, commitTries, commitBackoff, func(ctx context.Context) error {
			return l.store.ReinforceRelationship(ctx, candidate.Reinforces, candidate.Confidence, candidate.Evidence)
		})
		if err != nil {
			return err
		}
		out.Reinforced++
		l.record(ctx, runID, candidate, "reinforced", "")
		return nil
	}

	if candidate.Confidence < ReviewThreshold {
		out.Rejected++
		l.record(ctx, runID, candidate, "rejected", "insufficient evidence")
		return nil
	}

	status := common.EdgeQueued
	if candidate.Confidence >= AutoLinkThreshold {
		status = common.EdgeAutoLinked
	}

	edge := common.Relationship{
		SourceID:   candidate.ProjectID,
		Target:     candidate.Target,
		Kind:       candidate.Kind,
		Confidence: candidate.Confidence,
		Evidence:   candidate.Evidence,
		Status:     status,
		RunID:      runID,
	}

	var created bool
	err := util.RetryErrWithBackoff(ctx, commitTries, commitBackoff, func(ctx context.Context) error {
		var err error
		_, created, err = l.store.UpsertRelationship(ctx, edge)
		return err
	})
	if err != nil {
		return err
	}

	if !created {
		// a concurrent or earlier run already holds this triple
		out.Reinforced++
		l.record(ctx, runID, candidate, "reinforced", "edge already present")
		return nil
	}

	switch status {
	case common.EdgeAutoLinked:
		out.Linked++
		l.record(ctx, runID, candidate, "auto-linked", "")
	case common.EdgeQueued:
		out.Queued++
		l.record(ctx, runID, candidate, "queued-for-review", "")
	}
	return nil
}

func (l *Linker) record(ctx context.Context, runID string, candidate common.CandidateEdge, outcome, reason string) {
	if l.audit != nil {
		l.audit.RecordDecision(ctx, runID, candidate, outcome, reason)
	}
}

// Approve promotes a queued edge to human-approved.
func (l *Linker) Approve(ctx context.Context, edgeID string) error {
	return l.transition(ctx, edgeID, common.EdgeHumanApproved, "")
}

// Reject marks a queued edge rejected. The edge remains in the store;
// the scorer consults it and suppresses the pairing until evidence from
// a new channel arrives.
func (l *Linker) Reject(ctx context.Context, edgeID, reason string) error {
	if reason == "" {
		reason = "rejected by reviewer"
	}
	return l.transition(ctx, edgeID, common.EdgeRejected, reason)
}

func (l *Linker) transition(ctx context.Context, edgeID string, status common.EdgeStatus, reason string) error {
	edge, err := l.store.GetRelationship(ctx, edgeID)
	if err != nil {
		return err
	}
	if edge.Status != common.EdgeQueued {
		return fmt.Errorf("edge %s is %s, only queued edges can be reviewed", edgeID, edge.Status)
	}
	return l.store.UpdateRelationshipStatus(ctx, edgeID, status, reason)
}

// Undo removes every edge a run auto-linked. Human decisions survive:
// approved, rejected, and still-queued edges are left alone.
func (l *Linker) Undo(ctx context.Context, runID string) (int, error) {
	edges, err := l.store.ListRelationshipsByRun(ctx, runID)
	if err != nil {
		return 0, fmt.Errorf("listing run edges: %w", err)
	}

	removed := 0
	for _, edge := range edges {
		if edge.Status != common.EdgeAutoLinked {
			continue
		}
		if err := l.store.DeleteRelationship(ctx, edge.ID); err != nil {
			return removed, fmt.Errorf("deleting edge %s: %w", edge.ID, err)
		}
		removed++
	}
	logger.Info("[Link] Undid run", "run", runID, "removed", removed)
	return removed, nil
}

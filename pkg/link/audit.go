package link

import (
	"context"
	"sync"
	"time"

	"github.com/act-placemat/loom/pkg/common"
)

// AuditEntry is one recorded candidate decision, including rejections
// that never produce a stored edge.
type AuditEntry struct {
	Time       time.Time       `json:"time"`
	ProjectID  string          `json:"project_id"`
	TargetID   string          `json:"target_id"`
	TargetName string          `json:"target_name,omitempty"`
	Kind       common.EdgeKind `json:"kind"`
	Confidence float64         `json:"confidence"`
	Outcome    string          `json:"outcome"`
	Reason     string          `json:"reason,omitempty"`
}

// Recorder is an in-memory AuditSink safe for concurrent commits. The
// runner drains it per run into the run report.
type Recorder struct {
	mu      sync.Mutex
	entries map[string][]AuditEntry
}

func NewRecorder() *Recorder {
	return &Recorder{entries: make(map[string][]AuditEntry)}
}

func (r *Recorder) RecordDecision(ctx context.Context, runID string, candidate common.CandidateEdge, outcome, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[runID] = append(r.entries[runID], AuditEntry{
		Time:       time.Now(),
		ProjectID:  candidate.ProjectID,
		TargetID:   candidate.Target.ID,
		TargetName: candidate.Target.Name,
		Kind:       candidate.Kind,
		Confidence: candidate.Confidence,
		Outcome:    outcome,
		Reason:     reason,
	})
}

// Drain returns and clears the entries recorded for a run.
func (r *Recorder) Drain(runID string) []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries[runID]
	delete(r.entries, runID)
	return entries
}

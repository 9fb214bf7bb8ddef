package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/discover"
	"github.com/act-placemat/loom/pkg/health"
	"github.com/act-placemat/loom/pkg/link"
	"github.com/act-placemat/loom/pkg/source"
	"github.com/act-placemat/loom/pkg/store/memory"
)

func newTestRunner(st *memory.MemoryStore, corr source.CorrespondenceSource) *Runner {
	miner := discover.NewMiner(discover.MinerParams{Store: st, Correspondence: corr})
	return NewRunner(NewRunnerParams{
		Store:       st,
		Miner:       miner,
		Scorer:      discover.NewScorer(st),
		Linker:      link.NewLinker(st, nil),
		Health:      health.NewScorer(st),
		ParallelMax: 2,
	})
}

func seedGraph(t *testing.T, st *memory.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		err := st.SaveProject(ctx, common.Project{
			ID:     fmt.Sprintf("proj-%d", i),
			Name:   fmt.Sprintf("Project Alpha %d", i),
			Status: common.StatusActive,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.SaveOrganization(ctx, common.Organization{Name: "Acme Foundation"}); err != nil {
		t.Fatal(err)
	}
}

func coOccurringMessages(project string, n int) []source.Message {
	var messages []source.Message
	for i := 0; i < n; i++ {
		messages = append(messages, source.Message{
			ID:        fmt.Sprintf("%s-msg-%d", project, i),
			Subject:   project + " update",
			Body:      "Acme Foundation is on board.",
			Timestamp: time.Now().AddDate(0, 0, -i),
		})
	}
	return messages
}

func TestRunProcessesAllProjects(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	seedGraph(t, st)

	var messages []source.Message
	for i := 1; i <= 3; i++ {
		messages = append(messages, coOccurringMessages(fmt.Sprintf("Project Alpha %d", i), 12)...)
	}
	runner := newTestRunner(st, &source.StaticCorrespondence{Messages: messages})

	summary, err := runner.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Succeeded) != 3 || len(summary.Failed) != 0 {
		t.Fatalf("expected 3 successes, got %+v", summary)
	}
	if summary.Linked+summary.Queued == 0 {
		t.Fatal("expected the run to produce edges")
	}

	// every project got a health cache entry
	for i := 1; i <= 3; i++ {
		if _, _, err := st.GetHealthCache(ctx, fmt.Sprintf("proj-%d", i)); err != nil {
			t.Errorf("missing health cache for proj-%d: %v", i, err)
		}
	}

	report, err := st.GetRunReport(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	var stored Summary
	if err := json.Unmarshal(report, &stored); err != nil {
		t.Fatal(err)
	}
	if stored.RunID != "run-1" {
		t.Errorf("report run id mismatch: %s", stored.RunID)
	}
}

func TestRejectedEdgeStaysRejectedAcrossRuns(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	seedGraph(t, st)

	messages := coOccurringMessages("Project Alpha 1", 12)
	runner := newTestRunner(st, &source.StaticCorrespondence{Messages: messages})

	if _, err := runner.Run(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	queued, err := st.ListReviewQueue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected one queued edge after run 1, got %d", len(queued))
	}

	if err := link.NewLinker(st, nil).Reject(ctx, queued[0].ID, "not a real partner"); err != nil {
		t.Fatal(err)
	}

	// identical evidence the next run: the pairing must not come back
	summary, err := runner.Run(ctx, "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Linked+summary.Queued+summary.Reinforced != 0 {
		t.Fatalf("rejected pairing resurfaced: %+v", summary)
	}

	edges, err := st.ListRelationships(ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Status != common.EdgeRejected {
		t.Fatalf("expected only the rejected edge to remain, got %+v", edges)
	}
	remaining, err := st.ListReviewQueue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Fatalf("review queue should stay empty, got %d entries", len(remaining))
	}
}

func TestRunReportCarriesAuditTrail(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	seedGraph(t, st)

	audit := link.NewRecorder()
	miner := discover.NewMiner(discover.MinerParams{
		Store:          st,
		Correspondence: &source.StaticCorrespondence{Messages: coOccurringMessages("Project Alpha 1", 12)},
	})
	runner := NewRunner(NewRunnerParams{
		Store:       st,
		Miner:       miner,
		Scorer:      discover.NewScorer(st),
		Linker:      link.NewLinker(st, audit),
		Health:      health.NewScorer(st),
		Audit:       audit,
		ParallelMax: 2,
	})

	summary, err := runner.Run(ctx, "run-audited")
	if err != nil {
		t.Fatal(err)
	}
	want := summary.Linked + summary.Queued + summary.Rejected + summary.Reinforced
	if want == 0 {
		t.Fatal("expected the run to decide at least one candidate")
	}
	if len(summary.Decisions) != want {
		t.Fatalf("expected %d audit entries, got %d", want, len(summary.Decisions))
	}

	report, err := st.GetRunReport(ctx, "run-audited")
	if err != nil {
		t.Fatal(err)
	}
	var stored Summary
	if err := json.Unmarshal(report, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.Decisions) != len(summary.Decisions) {
		t.Errorf("stored report has %d decisions, summary has %d", len(stored.Decisions), len(summary.Decisions))
	}
	if audit.Drain("run-audited") != nil {
		t.Error("recorder should be drained after the run")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	seedGraph(t, st)

	messages := coOccurringMessages("Project Alpha 1", 12)
	runner := newTestRunner(st, &source.StaticCorrespondence{Messages: messages})

	first, err := runner.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	edgesAfterFirst, _ := st.ListRelationships(ctx, "proj-1")

	second, err := runner.Run(ctx, "run-2")
	if err != nil {
		t.Fatal(err)
	}
	edgesAfterSecond, _ := st.ListRelationships(ctx, "proj-1")

	if len(edgesAfterSecond) != len(edgesAfterFirst) {
		t.Fatalf("re-run must not add edges: %d != %d", len(edgesAfterSecond), len(edgesAfterFirst))
	}
	if second.Linked != 0 || second.Queued != 0 {
		t.Fatalf("re-run should only reinforce, got %+v", second)
	}
	if first.Linked+first.Queued == 0 {
		t.Fatal("first run should have produced edges")
	}
	if second.Reinforced == 0 {
		t.Fatal("re-run should reinforce existing edges")
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	seedGraph(t, st)

	if err := st.SaveCheckpoint(ctx, "run-1", "proj-1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveCheckpoint(ctx, "run-1", "proj-2"); err != nil {
		t.Fatal(err)
	}

	runner := newTestRunner(st, &source.StaticCorrespondence{})
	summary, err := runner.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Succeeded) != 3 {
		t.Fatalf("expected all 3 projects accounted for, got %d", len(summary.Succeeded))
	}

	done, err := st.CompletedProjects(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if !done["proj-3"] {
		t.Error("proj-3 should be checkpointed after the resumed run")
	}
}

func TestRunIsolatesProjectFailures(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	seedGraph(t, st)

	// correspondence down: mining degrades, the run still completes
	runner := newTestRunner(st, &source.StaticCorrespondence{Err: fmt.Errorf("mailbox offline")})
	summary, err := runner.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Succeeded) != 3 {
		t.Fatalf("a degraded source must not fail projects, got %+v", summary.Failed)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := memory.NewMemoryStore()
	seedGraph(t, st)

	runner := newTestRunner(st, &source.StaticCorrespondence{})
	summary, err := runner.Run(ctx, "run-1")
	if err == nil {
		t.Fatal("a cancelled run must report the cancellation")
	}
	if len(summary.Succeeded) != 0 {
		t.Fatalf("no project should complete under an already-cancelled context, got %d", len(summary.Succeeded))
	}
}

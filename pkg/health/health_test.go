package health

import (
	"context"
	"testing"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/store/memory"
)

func pct(v float64) *float64 { return &v }

func recentEdge(observed time.Time) common.Relationship {
	return common.Relationship{
		Status: common.EdgeAutoLinked,
		Evidence: []common.Evidence{{
			SourceType: "correspondence", SourceID: "m1", ObservedAt: observed,
		}},
	}
}

func TestComputeBounds(t *testing.T) {
	now := time.Now()
	projects := []common.Project{
		{},
		{ID: "full", Name: "Full", Status: common.StatusActive,
			Themes:        []string{"water"},
			FundingTarget: 1000, FundingActual: 1000,
			LastActivity: now, NextMilestone: now.AddDate(0, 1, 0),
			OwnershipPct: pct(100)},
		{ID: "stale", Name: "Stale", LastActivity: now.AddDate(-3, 0, 0),
			NextMilestone: now.AddDate(-1, 0, 0), OwnershipPct: pct(250)},
	}

	for _, project := range projects {
		score := Compute(project, []common.Relationship{recentEdge(now)}, now)
		subs := []float64{score.Funding, score.People, score.Momentum,
			score.Ownership, score.Completeness, score.Overall}
		for i, v := range subs {
			if v < 0 || v > 100 {
				t.Errorf("project %q sub-score %d out of bounds: %v", project.ID, i, v)
			}
		}
	}
}

func TestFundingGapCritical(t *testing.T) {
	now := time.Now()
	project := common.Project{
		ID: "proj-1", Name: "Riverbank Commons", Status: common.StatusActive,
		Themes:        []string{"water"},
		FundingTarget: 100000, FundingActual: 0,
		LastActivity: now, OwnershipPct: pct(80),
	}

	score := Compute(project, []common.Relationship{recentEdge(now)}, now)
	if score.Funding != 0 {
		t.Errorf("expected funding sub-score 0, got %v", score.Funding)
	}

	needs := DeriveNeeds(project, score, now)
	var found *common.Need
	for i := range needs {
		if needs[i].Kind == common.NeedFundingGap {
			found = &needs[i]
		}
	}
	if found == nil {
		t.Fatal("expected a funding-gap need")
	}
	if found.Priority != common.PriorityCritical {
		t.Errorf("a 100k gap is critical, got %s", found.Priority)
	}
	if len(found.Actions) < 1 || len(found.Actions) > 3 {
		t.Errorf("expected 1-3 suggested actions, got %d", len(found.Actions))
	}
	if needs[0].Kind != common.NeedFundingGap {
		t.Errorf("the critical need must sort first, got %s", needs[0].Kind)
	}
}

func TestPeopleScoreRecency(t *testing.T) {
	now := time.Now()

	stale := []common.Relationship{recentEdge(now.AddDate(-1, 0, 0))}
	if got := peopleScore(stale, now); got != 0 {
		t.Errorf("stale-only edges must score 0, got %v", got)
	}

	mixed := []common.Relationship{
		recentEdge(now.AddDate(0, 0, -10)),
		recentEdge(now.AddDate(-1, 0, 0)),
	}
	// two edges, one recent counting double
	if got := peopleScore(mixed, now); got != 3*peoplePointsPerEdge {
		t.Errorf("expected %v, got %v", 3*peoplePointsPerEdge, got)
	}

	rejected := []common.Relationship{{
		Status:   common.EdgeRejected,
		Evidence: []common.Evidence{{SourceID: "m", ObservedAt: now}},
	}}
	if got := peopleScore(rejected, now); got != 0 {
		t.Errorf("rejected edges must not count, got %v", got)
	}
}

func TestMomentumOverdueMilestone(t *testing.T) {
	now := time.Now()
	project := common.Project{
		ID: "p", Name: "P",
		LastActivity:  now.AddDate(0, 0, -1),
		NextMilestone: now.AddDate(0, 0, -14),
	}

	score := Compute(project, nil, now)
	if score.Momentum > overdueMomentumCap {
		t.Errorf("overdue milestone must cap momentum at %v, got %v", float64(overdueMomentumCap), score.Momentum)
	}

	needs := DeriveNeeds(project, score, now)
	var found bool
	for _, need := range needs {
		if need.Kind == common.NeedOverdueMilestone {
			found = true
		}
	}
	if !found {
		t.Error("expected an overdue-milestone need")
	}
}

func TestOwnershipNilVersusZero(t *testing.T) {
	now := time.Now()

	nilProject := common.Project{ID: "a", Name: "A"}
	score := Compute(nilProject, nil, now)
	if score.Ownership != 0 {
		t.Errorf("nil ownership scores 0, got %v", score.Ownership)
	}
	needs := DeriveNeeds(nilProject, score, now)
	if !hasNeed(needs, common.NeedNoProjectLead, common.PriorityLow) {
		t.Error("missing ownership data should raise a low-priority need")
	}

	zeroProject := common.Project{ID: "b", Name: "B", OwnershipPct: pct(0)}
	score = Compute(zeroProject, nil, now)
	needs = DeriveNeeds(zeroProject, score, now)
	if !hasNeed(needs, common.NeedNoProjectLead, common.PriorityMedium) {
		t.Error("an explicit zero owner should raise a medium-priority need")
	}
}

func hasNeed(needs []common.Need, kind common.NeedKind, priority common.NeedPriority) bool {
	for _, need := range needs {
		if need.Kind == kind && need.Priority == priority {
			return true
		}
	}
	return false
}

func TestCompletenessNeed(t *testing.T) {
	now := time.Now()
	bare := common.Project{ID: "bare"}
	score := Compute(bare, nil, now)
	if score.Completeness != 0 {
		t.Errorf("an empty record scores 0 completeness, got %v", score.Completeness)
	}
	if !hasNeed(DeriveNeeds(bare, score, now), common.NeedLowCompleteness, common.PriorityMedium) {
		t.Error("expected a low-completeness need")
	}
}

func TestScoreProjectWritesCache(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	project := common.Project{
		ID: "proj-1", Name: "Riverbank Commons", Status: common.StatusActive,
		Themes: []string{"water"}, FundingTarget: 1000, FundingActual: 900,
		LastActivity: time.Now(), OwnershipPct: pct(75),
	}
	if err := st.SaveProject(ctx, project); err != nil {
		t.Fatal(err)
	}

	score, _, err := NewScorer(st).ScoreProject(ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}

	cached, _, err := st.GetHealthCache(ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if cached.Overall != score.Overall {
		t.Errorf("cache mismatch: %v != %v", cached.Overall, score.Overall)
	}
}

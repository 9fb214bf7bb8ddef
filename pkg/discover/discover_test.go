package discover

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/source"
	"github.com/act-placemat/loom/pkg/store/memory"
)

func seedProject(t *testing.T, st *memory.MemoryStore, project common.Project) common.Project {
	t.Helper()
	if err := st.SaveProject(context.Background(), project); err != nil {
		t.Fatal(err)
	}
	return project
}

func TestMineCorrespondenceCoOccurrence(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()

	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Riverbank Commons", Status: common.StatusActive})
	orgID, err := st.SaveOrganization(ctx, common.Organization{Name: "Acme Foundation"})
	if err != nil {
		t.Fatal(err)
	}

	var messages []source.Message
	for i := 0; i < 12; i++ {
		messages = append(messages, source.Message{
			ID:        fmt.Sprintf("msg-%d", i),
			Subject:   "Riverbank Commons planning",
			Body:      "Met with Acme Foundation about the next phase.",
			Timestamp: time.Now().AddDate(0, 0, -i),
		})
	}

	miner := NewMiner(MinerParams{
		Store:          st,
		Correspondence: &source.StaticCorrespondence{Messages: messages},
	})

	signals, err := miner.Mine(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected one accumulated signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Target.ID != orgID {
		t.Errorf("expected signal on %s, got %s", orgID, sig.Target.ID)
	}
	if sig.Weight != 12 {
		t.Errorf("12 co-occurring messages should accumulate weight 12, got %v", sig.Weight)
	}
	if len(sig.Evidence) != common.MaxEvidencePerEdge {
		t.Errorf("evidence must be capped at %d, got %d", common.MaxEvidencePerEdge, len(sig.Evidence))
	}

	if conf := Confidence(sig.Weight, len(sig.Channels)); conf < 0.5 {
		t.Errorf("a dozen co-occurrences should clear the review threshold, got %v", conf)
	}
}

func TestMineIgnoresOldMessages(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()

	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Riverbank Commons"})
	if _, err := st.SaveOrganization(ctx, common.Organization{Name: "Acme Foundation"}); err != nil {
		t.Fatal(err)
	}

	miner := NewMiner(MinerParams{
		Store: st,
		Correspondence: &source.StaticCorrespondence{Messages: []source.Message{{
			ID:        "old-1",
			Subject:   "Riverbank Commons and Acme Foundation",
			Timestamp: time.Now().AddDate(-2, 0, 0),
		}}},
	})

	signals, err := miner.Mine(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 0 {
		t.Fatalf("messages outside the window must not produce signals, got %d", len(signals))
	}
}

func TestMineDegradesWithoutCorrespondence(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()

	project := seedProject(t, st, common.Project{
		ID: "proj-1", Name: "Riverbank Commons",
		Themes: []string{"water", "housing"},
	})
	seedProject(t, st, common.Project{
		ID: "proj-2", Name: "Delta Housing",
		Themes: []string{"housing"},
	})

	miner := NewMiner(MinerParams{
		Store:          st,
		Correspondence: &source.StaticCorrespondence{Err: errors.New("mailbox offline")},
	})

	signals, err := miner.Mine(ctx, project)
	if err != nil {
		t.Fatalf("a failing correspondence source must not abort mining: %v", err)
	}
	if len(signals) != 1 || signals[0].Target.ID != "proj-2" {
		t.Fatalf("expected the thematic signal to survive, got %+v", signals)
	}
}

func TestThemeOverlap(t *testing.T) {
	a := common.Project{Themes: []string{"water", "housing"}, Regions: []string{"north"}}
	b := common.Project{Themes: []string{"water", "housing"}}

	got := ThemeOverlap(a, b)
	want := 2.0 / 3.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ThemeOverlap = %v, want %v", got, want)
	}

	if ThemeOverlap(a, common.Project{}) != 0 {
		t.Error("a project without tags must not overlap anything")
	}
}

func TestConfidenceBounds(t *testing.T) {
	if got := Confidence(0, 0); got != 0 {
		t.Errorf("zero weight must score 0, got %v", got)
	}
	if got := Confidence(1e9, 3); got != 1.0 {
		t.Errorf("confidence must clamp to 1.0, got %v", got)
	}
	low := Confidence(1, 1)
	high := Confidence(1, 3)
	if high <= low {
		t.Error("more channels must raise confidence")
	}
}

func TestScoreInfersKinds(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Riverbank Commons"})

	now := time.Now()
	signals := []common.Signal{
		{
			Target:   common.EntityRef{Kind: common.KindOrganization, ID: "org-1", Name: "Acme Foundation"},
			Weight:   3,
			Channels: []string{ChannelCorrespondence},
			Evidence: []common.Evidence{{
				SourceType: ChannelCorrespondence, SourceID: "m1",
				Excerpt: "Acme Foundation confirmed the grant", ObservedAt: now,
			}},
			LastSeenAt: now,
		},
		{
			Target:   common.EntityRef{Kind: common.KindPerson, ID: "per-1", Name: "Jane Doe"},
			Weight:   2,
			Channels: []string{ChannelCorrespondence},
			Evidence: []common.Evidence{{
				SourceType: ChannelCorrespondence, SourceID: "m2",
				Excerpt: "Jane Doe joined the call", ObservedAt: now,
			}},
			LastSeenAt: now,
		},
	}

	candidates, err := NewScorer(st).Score(ctx, project, signals)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	kinds := map[string]common.EdgeKind{}
	for _, c := range candidates {
		kinds[c.Target.ID] = c.Kind
	}
	if kinds["org-1"] != common.EdgeFunds {
		t.Errorf("funding vocabulary should upgrade the org edge to funds, got %s", kinds["org-1"])
	}
	if kinds["per-1"] != common.EdgeCollaboratesWith {
		t.Errorf("person edges default to collaborates-with, got %s", kinds["per-1"])
	}
}

func TestScoreMarksReinforcement(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Riverbank Commons"})

	existing := common.Relationship{
		SourceID: "proj-1",
		Target:   common.EntityRef{Kind: common.KindOrganization, ID: "org-1", Name: "Acme Foundation"},
		Kind:     common.EdgeMentions,
		Status:   common.EdgeAutoLinked,
	}
	edgeID, created, err := st.UpsertRelationship(ctx, existing)
	if err != nil || !created {
		t.Fatalf("seeding edge: id=%s created=%v err=%v", edgeID, created, err)
	}

	signals := []common.Signal{{
		Target:   common.EntityRef{Kind: common.KindOrganization, ID: "org-1", Name: "Acme Foundation"},
		Weight:   1,
		Channels: []string{ChannelCorrespondence},
		Evidence: []common.Evidence{{
			SourceType: ChannelCorrespondence, SourceID: "m9",
			Excerpt: "Acme Foundation came up again", ObservedAt: time.Now(),
		}},
		LastSeenAt: time.Now(),
	}}

	candidates, err := NewScorer(st).Score(ctx, project, signals)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Reinforces != edgeID {
		t.Errorf("expected candidate to reinforce %s, got %q", edgeID, candidates[0].Reinforces)
	}
}

func TestScoreSuppressesRejectedPairing(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Riverbank Commons"})

	rejected := common.Relationship{
		SourceID: "proj-1",
		Target:   common.EntityRef{Kind: common.KindOrganization, ID: "org-1", Name: "Acme Foundation"},
		Kind:     common.EdgeMentions,
		Status:   common.EdgeRejected,
		Evidence: []common.Evidence{{
			SourceType: ChannelCorrespondence, SourceID: "m1",
			Excerpt: "Acme Foundation mentioned", ObservedAt: time.Now().AddDate(0, 0, -30),
		}},
	}
	if _, _, err := st.UpsertRelationship(ctx, rejected); err != nil {
		t.Fatal(err)
	}

	sameChannel := []common.Signal{{
		Target:   common.EntityRef{Kind: common.KindOrganization, ID: "org-1", Name: "Acme Foundation"},
		Weight:   12,
		Channels: []string{ChannelCorrespondence},
		Evidence: []common.Evidence{{
			SourceType: ChannelCorrespondence, SourceID: "m2",
			Excerpt: "Acme Foundation again", ObservedAt: time.Now(),
		}},
		LastSeenAt: time.Now(),
	}}

	candidates, err := NewScorer(st).Score(ctx, project, sameChannel)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("a rejected pairing with no new channel must not be re-proposed, got %d candidates", len(candidates))
	}

	// evidence from a channel the rejected edge never carried revives it
	newChannel := []common.Signal{{
		Target:   common.EntityRef{Kind: common.KindOrganization, ID: "org-1", Name: "Acme Foundation"},
		Weight:   12,
		Channels: []string{ChannelCorrespondence, ChannelResearch},
		Evidence: []common.Evidence{
			{SourceType: ChannelCorrespondence, SourceID: "m3",
				Excerpt: "Acme Foundation again", ObservedAt: time.Now()},
			{SourceType: ChannelResearch, SourceID: "research:proj-1",
				Excerpt: "Acme Foundation", ObservedAt: time.Now()},
		},
		LastSeenAt: time.Now(),
	}}

	candidates, err = NewScorer(st).Score(ctx, project, newChannel)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("independent evidence from a new channel should re-propose the pairing, got %d candidates", len(candidates))
	}
	if candidates[0].Reinforces != "" {
		t.Errorf("a revived pairing is a fresh proposal, not a reinforcement of the rejected edge")
	}
}

func TestMineRequiresWholeWordMention(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()

	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Goods", Status: common.StatusActive})
	if _, err := st.SaveOrganization(ctx, common.Organization{Name: "Acme Foundation"}); err != nil {
		t.Fatal(err)
	}

	// substring search backends return this for the query "Goods"
	messages := []source.Message{{
		ID:        "msg-1",
		Subject:   "baked goodstuff catalogue",
		Body:      "Acme Foundation ordered more goodstuff.",
		Timestamp: time.Now(),
	}}

	miner := NewMiner(MinerParams{
		Store:          st,
		Correspondence: &source.StaticCorrespondence{Messages: messages},
	})

	signals, err := miner.Mine(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	for _, sig := range signals {
		for _, ch := range sig.Channels {
			if ch == ChannelCorrespondence {
				t.Fatalf("substring mention produced a correspondence signal on %s", sig.Target.Name)
			}
		}
	}
}

func TestScoreOrdersByConfidence(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	project := seedProject(t, st, common.Project{ID: "proj-1", Name: "Riverbank Commons"})

	now := time.Now()
	signals := []common.Signal{
		{Target: common.EntityRef{Kind: common.KindPerson, ID: "weak"}, Weight: 1,
			Channels: []string{ChannelThemes}, LastSeenAt: now},
		{Target: common.EntityRef{Kind: common.KindPerson, ID: "strong"}, Weight: 10,
			Channels: []string{ChannelCorrespondence, ChannelThemes}, LastSeenAt: now},
	}

	candidates, err := NewScorer(st).Score(ctx, project, signals)
	if err != nil {
		t.Fatal(err)
	}
	if candidates[0].Target.ID != "strong" {
		t.Errorf("highest-confidence candidate must sort first, got %s", candidates[0].Target.ID)
	}
}

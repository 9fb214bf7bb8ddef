package health

import (
	"context"
	"fmt"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/store"
)

// Scorer computes health for stored projects and refreshes the display
// cache. The cache is never a source of truth; ScoreProject recomputes
// from live state every time.
type Scorer struct {
	store store.Store
}

func NewScorer(s store.Store) *Scorer {
	return &Scorer{store: s}
}

// ScoreProject computes the project's health and needs and writes them to
// the display cache.
func (s *Scorer) ScoreProject(ctx context.Context, projectID string) (common.HealthScore, []common.Need, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return common.HealthScore{}, nil, fmt.Errorf("loading project: %w", err)
	}
	edges, err := s.store.ListRelationships(ctx, projectID)
	if err != nil {
		return common.HealthScore{}, nil, fmt.Errorf("listing edges: %w", err)
	}

	now := time.Now()
	score := Compute(project, edges, now)
	needs := DeriveNeeds(project, score, now)

	if err := s.store.UpdateHealthCache(ctx, projectID, score, needs); err != nil {
		return score, needs, fmt.Errorf("caching health: %w", err)
	}
	return score, needs, nil
}

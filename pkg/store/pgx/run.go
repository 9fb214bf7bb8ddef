package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

func (s *GraphDBStore) UpdateHealthCache(ctx context.Context, projectID string, score common.HealthScore, needs []common.Need) error {
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encoding health score: %w", err)
	}
	if needs == nil {
		needs = []common.Need{}
	}
	needsJSON, err := json.Marshal(needs)
	if err != nil {
		return fmt.Errorf("encoding needs: %w", err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO health_cache (project_id, score, needs, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO UPDATE SET
			score = EXCLUDED.score,
			needs = EXCLUDED.needs,
			computed_at = EXCLUDED.computed_at`,
		projectID, scoreJSON, needsJSON, time.Now())
	return err
}

func (s *GraphDBStore) GetHealthCache(ctx context.Context, projectID string) (common.HealthScore, []common.Need, error) {
	var scoreJSON, needsJSON []byte
	err := s.conn.QueryRow(ctx,
		`SELECT score, needs FROM health_cache WHERE project_id = $1`, projectID).
		Scan(&scoreJSON, &needsJSON)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.HealthScore{}, nil, store.ErrNotFound
	}
	if err != nil {
		return common.HealthScore{}, nil, err
	}

	var score common.HealthScore
	if err := json.Unmarshal(scoreJSON, &score); err != nil {
		return common.HealthScore{}, nil, fmt.Errorf("decoding health score: %w", err)
	}
	var needs []common.Need
	if err := json.Unmarshal(needsJSON, &needs); err != nil {
		return common.HealthScore{}, nil, fmt.Errorf("decoding needs: %w", err)
	}
	return score, needs, nil
}

func (s *GraphDBStore) SaveCheckpoint(ctx context.Context, runID, projectID string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO run_checkpoints (run_id, project_id) VALUES ($1, $2)
		ON CONFLICT (run_id, project_id) DO NOTHING`, runID, projectID)
	return err
}

func (s *GraphDBStore) CompletedProjects(ctx context.Context, runID string) (map[string]bool, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT project_id FROM run_checkpoints WHERE run_id = $1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var projectID string
		if err := rows.Scan(&projectID); err != nil {
			return nil, err
		}
		done[projectID] = true
	}
	return done, rows.Err()
}

func (s *GraphDBStore) SaveRunReport(ctx context.Context, runID string, report []byte) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO run_reports (run_id, report) VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET report = EXCLUDED.report`, runID, report)
	return err
}

func (s *GraphDBStore) GetRunReport(ctx context.Context, runID string) ([]byte, error) {
	var report []byte
	err := s.conn.QueryRow(ctx,
		`SELECT report FROM run_reports WHERE run_id = $1`, runID).Scan(&report)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return report, err
}

package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const projectColumns = `id, name, aliases, status, themes, regions,
	funding_actual, funding_target, last_activity, next_milestone, ownership_pct, summary`

func scanProject(row pgxv5.Row) (common.Project, error) {
	var (
		p                         common.Project
		lastActivity, nextMilestn *time.Time
	)
	err := row.Scan(&p.ID, &p.Name, &p.Aliases, (*string)(&p.Status), &p.Themes, &p.Regions,
		&p.FundingActual, &p.FundingTarget, &lastActivity, &nextMilestn, &p.OwnershipPct, &p.Summary)
	if err != nil {
		return common.Project{}, err
	}
	if lastActivity != nil {
		p.LastActivity = *lastActivity
	}
	if nextMilestn != nil {
		p.NextMilestone = *nextMilestn
	}
	return p, nil
}

func (s *GraphDBStore) ListProjects(ctx context.Context) ([]common.Project, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []common.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *GraphDBStore) GetProject(ctx context.Context, id string) (common.Project, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Project{}, store.ErrNotFound
	}
	return p, err
}

func (s *GraphDBStore) SaveProject(ctx context.Context, project common.Project) error {
	if project.ID == "" {
		project.ID = gonanoid.Must()
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			aliases = EXCLUDED.aliases,
			status = EXCLUDED.status,
			themes = EXCLUDED.themes,
			regions = EXCLUDED.regions,
			funding_actual = EXCLUDED.funding_actual,
			funding_target = EXCLUDED.funding_target,
			last_activity = EXCLUDED.last_activity,
			next_milestone = EXCLUDED.next_milestone,
			ownership_pct = EXCLUDED.ownership_pct,
			summary = EXCLUDED.summary`,
		project.ID, project.Name, notNil(project.Aliases), string(project.Status),
		notNil(project.Themes), notNil(project.Regions), project.FundingActual, project.FundingTarget,
		nullableTime(project.LastActivity), nullableTime(project.NextMilestone),
		project.OwnershipPct, project.Summary)
	return err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

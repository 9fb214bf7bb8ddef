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
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const relationshipColumns = `id, source_id, target_kind, target_id, target_name,
	kind, confidence, evidence, status, run_id, reject_reason, updated_at`

func scanRelationship(row pgxv5.Row) (common.Relationship, error) {
	var (
		r        common.Relationship
		evidence []byte
	)
	err := row.Scan(&r.ID, &r.SourceID, (*string)(&r.Target.Kind), &r.Target.ID, &r.Target.Name,
		(*string)(&r.Kind), &r.Confidence, &evidence, (*string)(&r.Status),
		&r.RunID, &r.RejectReason, &r.UpdatedAt)
	if err != nil {
		return common.Relationship{}, err
	}
	if err := json.Unmarshal(evidence, &r.Evidence); err != nil {
		return common.Relationship{}, fmt.Errorf("decoding edge evidence: %w", err)
	}
	return r, nil
}

// UpsertRelationship inserts the edge unless a non-rejected row for the
// same (source, target, kind) already exists. A lost race is not an
// error: the existing edge's ID is returned with created=false.
func (s *GraphDBStore) UpsertRelationship(ctx context.Context, edge common.Relationship) (string, bool, error) {
	if edge.ID == "" {
		edge.ID = gonanoid.Must()
	}
	edge.Evidence = common.MergeEvidence(nil, edge.Evidence)
	evidence, err := json.Marshal(edge.Evidence)
	if err != nil {
		return "", false, fmt.Errorf("encoding edge evidence: %w", err)
	}

	tag, err := s.conn.Exec(ctx, `
		INSERT INTO relationships (`+relationshipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_id, target_id, kind) WHERE status != 'rejected' DO NOTHING`,
		edge.ID, edge.SourceID, string(edge.Target.Kind), edge.Target.ID, edge.Target.Name,
		string(edge.Kind), edge.Confidence, evidence, string(edge.Status),
		edge.RunID, edge.RejectReason, time.Now())
	if err != nil {
		return "", false, err
	}
	if tag.RowsAffected() > 0 {
		return edge.ID, true, nil
	}

	// someone else already holds this triple
	var existingID string
	err = s.conn.QueryRow(ctx, `
		SELECT id FROM relationships
		WHERE source_id = $1 AND target_id = $2 AND kind = $3 AND status != 'rejected'`,
		edge.SourceID, edge.Target.ID, string(edge.Kind)).Scan(&existingID)
	if err != nil {
		return "", false, err
	}
	return existingID, false, nil
}

func (s *GraphDBStore) GetRelationship(ctx context.Context, id string) (common.Relationship, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = $1`, id)
	r, err := scanRelationship(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Relationship{}, store.ErrNotFound
	}
	return r, err
}

func (s *GraphDBStore) ListRelationships(ctx context.Context, entityID string) ([]common.Relationship, error) {
	return s.listEdges(ctx,
		`SELECT `+relationshipColumns+` FROM relationships
		 WHERE source_id = $1 OR target_id = $1 ORDER BY updated_at DESC`, entityID)
}

func (s *GraphDBStore) ListRelationshipsByRun(ctx context.Context, runID string) ([]common.Relationship, error) {
	return s.listEdges(ctx,
		`SELECT `+relationshipColumns+` FROM relationships
		 WHERE run_id = $1 ORDER BY updated_at DESC`, runID)
}

func (s *GraphDBStore) ListReviewQueue(ctx context.Context) ([]common.Relationship, error) {
	return s.listEdges(ctx,
		`SELECT `+relationshipColumns+` FROM relationships
		 WHERE status = $1 ORDER BY confidence DESC, updated_at DESC`, string(common.EdgeQueued))
}

func (s *GraphDBStore) listEdges(ctx context.Context, query string, args ...any) ([]common.Relationship, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []common.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, r)
	}
	return edges, rows.Err()
}

func (s *GraphDBStore) UpdateRelationshipStatus(ctx context.Context, id string, status common.EdgeStatus, reason string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE relationships SET status = $2, reject_reason = $3, updated_at = now() WHERE id = $1`,
		id, string(status), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ReinforceRelationship raises the edge's confidence (never lowers it)
// and appends the new evidence, inside one transaction.
func (s *GraphDBStore) ReinforceRelationship(ctx context.Context, id string, confidence float64, evidence []common.Evidence) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = $1 FOR UPDATE`, id)
	edge, err := scanRelationship(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	if confidence > edge.Confidence {
		edge.Confidence = confidence
	}
	merged, err := json.Marshal(common.MergeEvidence(edge.Evidence, evidence))
	if err != nil {
		return fmt.Errorf("encoding edge evidence: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE relationships SET confidence = $2, evidence = $3, updated_at = now() WHERE id = $1`,
		id, edge.Confidence, merged)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *GraphDBStore) DeleteRelationship(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM relationships WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

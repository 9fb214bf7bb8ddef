package pgx

import (
	"context"

	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/common"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func (s *GraphDBStore) ListOrganizations(ctx context.Context) ([]common.Organization, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, aliases, category FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []common.Organization
	for rows.Next() {
		var org common.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Aliases, &org.Category); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// SaveOrganization merges by normalized name or alias and returns the
// canonical ID. The read-then-write is serialized: two concurrent saves
// of the same name must converge on one row.
func (s *GraphDBStore) SaveOrganization(ctx context.Context, org common.Organization) (string, error) {
	s.orgsMu.Lock()
	defer s.orgsMu.Unlock()

	existing, err := s.ListOrganizations(ctx)
	if err != nil {
		return "", err
	}

	for _, candidate := range existing {
		if !organizationMatches(candidate, org) {
			continue
		}
		merged := mergeOrganization(candidate, org)
		_, err := s.conn.Exec(ctx,
			`UPDATE organizations SET name = $2, aliases = $3, category = $4 WHERE id = $1`,
			merged.ID, merged.Name, notNil(merged.Aliases), merged.Category)
		return merged.ID, err
	}

	if org.ID == "" {
		org.ID = gonanoid.Must()
	}
	_, err = s.conn.Exec(ctx,
		`INSERT INTO organizations (id, name, aliases, category) VALUES ($1, $2, $3, $4)`,
		org.ID, org.Name, notNil(org.Aliases), org.Category)
	return org.ID, err
}

func organizationMatches(a, b common.Organization) bool {
	names := make(map[string]struct{})
	for _, name := range append([]string{a.Name}, a.Aliases...) {
		names[util.NormalizeName(name)] = struct{}{}
	}
	for _, name := range append([]string{b.Name}, b.Aliases...) {
		if _, ok := names[util.NormalizeName(name)]; ok {
			return true
		}
	}
	return false
}

func mergeOrganization(existing, incoming common.Organization) common.Organization {
	known := make(map[string]struct{})
	known[util.NormalizeName(existing.Name)] = struct{}{}
	for _, alias := range existing.Aliases {
		known[util.NormalizeName(alias)] = struct{}{}
	}
	for _, name := range append([]string{incoming.Name}, incoming.Aliases...) {
		if _, ok := known[util.NormalizeName(name)]; !ok {
			existing.Aliases = append(existing.Aliases, name)
			known[util.NormalizeName(name)] = struct{}{}
		}
	}
	if existing.Category == "" {
		existing.Category = incoming.Category
	}
	return existing
}

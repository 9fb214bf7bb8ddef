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

const personColumns = `id, full_name, emails, role, sources, last_contact, merged_into`

func scanPerson(row pgxv5.Row) (common.Person, error) {
	var (
		p           common.Person
		sources     []byte
		lastContact *time.Time
	)
	err := row.Scan(&p.ID, &p.FullName, &p.Emails, &p.Role, &sources, &lastContact, &p.MergedInto)
	if err != nil {
		return common.Person{}, err
	}
	if err := json.Unmarshal(sources, &p.Sources); err != nil {
		return common.Person{}, fmt.Errorf("decoding person sources: %w", err)
	}
	if lastContact != nil {
		p.LastContact = *lastContact
	}
	return p, nil
}

func (s *GraphDBStore) ListPeople(ctx context.Context) ([]common.Person, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+personColumns+` FROM people ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []common.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *GraphDBStore) GetPerson(ctx context.Context, id string) (common.Person, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1`, id)
	p, err := scanPerson(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Person{}, store.ErrNotFound
	}
	return p, err
}

func (s *GraphDBStore) FindPersonByEmail(ctx context.Context, email string) (common.Person, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+personColumns+` FROM people WHERE $1 = ANY(emails) AND merged_into = '' LIMIT 1`, email)
	p, err := scanPerson(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Person{}, store.ErrNotFound
	}
	return p, err
}

func (s *GraphDBStore) FindPersonBySourceRef(ctx context.Context, src, externalID string) (common.Person, error) {
	probe, err := json.Marshal([]map[string]string{{"source": src, "external_id": externalID}})
	if err != nil {
		return common.Person{}, err
	}
	row := s.conn.QueryRow(ctx,
		`SELECT `+personColumns+` FROM people WHERE sources @> $1 AND merged_into = '' LIMIT 1`, probe)
	p, err := scanPerson(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Person{}, store.ErrNotFound
	}
	return p, err
}

func (s *GraphDBStore) SavePerson(ctx context.Context, person common.Person) error {
	if person.ID == "" {
		person.ID = gonanoid.Must()
	}
	sources, err := json.Marshal(person.Sources)
	if err != nil {
		return fmt.Errorf("encoding person sources: %w", err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO people (`+personColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			emails = EXCLUDED.emails,
			role = EXCLUDED.role,
			sources = EXCLUDED.sources,
			last_contact = EXCLUDED.last_contact,
			merged_into = EXCLUDED.merged_into`,
		person.ID, person.FullName, notNil(person.Emails), person.Role,
		sources, nullableTime(person.LastContact), person.MergedInto)
	return err
}

// notNil keeps empty Go slices from becoming SQL NULLs in NOT NULL
// array columns.
func notNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Package memory holds the in-process Store implementation. It backs unit
// tests and single-process development runs; production uses the pgx
// implementation against the same interface.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type healthEntry struct {
	score common.HealthScore
	needs []common.Need
}

// MemoryStore is a mutex-guarded map-backed Store.
type MemoryStore struct {
	mu            sync.RWMutex
	projects      map[string]common.Project
	organizations map[string]common.Organization
	people        map[string]common.Person
	edges         map[string]common.Relationship
	health        map[string]healthEntry
	checkpoints   map[string]map[string]bool
	reports       map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:      make(map[string]common.Project),
		organizations: make(map[string]common.Organization),
		people:        make(map[string]common.Person),
		edges:         make(map[string]common.Relationship),
		health:        make(map[string]healthEntry),
		checkpoints:   make(map[string]map[string]bool),
		reports:       make(map[string][]byte),
	}
}

func (s *MemoryStore) ListProjects(ctx context.Context) ([]common.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id string) (common.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return common.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SaveProject(ctx context.Context, project common.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.ID == "" {
		project.ID = gonanoid.Must()
	}
	s.projects[project.ID] = project
	return nil
}

func (s *MemoryStore) ListOrganizations(ctx context.Context) ([]common.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Organization, 0, len(s.organizations))
	for _, o := range s.organizations {
		out = append(out, o)
	}
	return out, nil
}

func (s *MemoryStore) SaveOrganization(ctx context.Context, org common.Organization) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := util.NormalizeName(org.Name)
	for id, existing := range s.organizations {
		if organizationMatches(existing, key) {
			merged := existing
			for _, alias := range append([]string{org.Name}, org.Aliases...) {
				if !organizationMatches(merged, util.NormalizeName(alias)) {
					merged.Aliases = append(merged.Aliases, alias)
				}
			}
			if merged.Category == "" {
				merged.Category = org.Category
			}
			s.organizations[id] = merged
			return id, nil
		}
	}

	if org.ID == "" {
		org.ID = gonanoid.Must()
	}
	s.organizations[org.ID] = org
	return org.ID, nil
}

func organizationMatches(org common.Organization, normalized string) bool {
	if util.NormalizeName(org.Name) == normalized {
		return true
	}
	for _, alias := range org.Aliases {
		if util.NormalizeName(alias) == normalized {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListPeople(ctx context.Context) ([]common.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryStore) GetPerson(ctx context.Context, id string) (common.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	if !ok {
		return common.Person{}, store.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) FindPersonByEmail(ctx context.Context, email string) (common.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if p.MergedInto != "" {
			continue
		}
		if p.HasEmail(email) {
			return p, nil
		}
	}
	return common.Person{}, store.ErrNotFound
}

func (s *MemoryStore) FindPersonBySourceRef(ctx context.Context, src, externalID string) (common.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if p.MergedInto != "" {
			continue
		}
		for _, ref := range p.Sources {
			if ref.Source == src && ref.ExternalID == externalID {
				return p, nil
			}
		}
	}
	return common.Person{}, store.ErrNotFound
}

func (s *MemoryStore) SavePerson(ctx context.Context, person common.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if person.ID == "" {
		person.ID = gonanoid.Must()
	}
	s.people[person.ID] = person
	return nil
}

func (s *MemoryStore) UpsertRelationship(ctx context.Context, edge common.Relationship) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.edges {
		if existing.Status == common.EdgeRejected {
			continue
		}
		if existing.SourceID == edge.SourceID && existing.Target.ID == edge.Target.ID && existing.Kind == edge.Kind {
			return id, false, nil
		}
	}

	if edge.ID == "" {
		edge.ID = gonanoid.Must()
	}
	edge.Evidence = common.MergeEvidence(nil, edge.Evidence)
	edge.UpdatedAt = time.Now()
	s.edges[edge.ID] = edge
	return edge.ID, true, nil
}

func (s *MemoryStore) GetRelationship(ctx context.Context, id string) (common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return common.Relationship{}, store.ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) ListRelationships(ctx context.Context, entityID string) ([]common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Relationship
	for _, e := range s.edges {
		if e.SourceID == entityID || e.Target.ID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRelationshipsByRun(ctx context.Context, runID string) ([]common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Relationship
	for _, e := range s.edges {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListReviewQueue(ctx context.Context) ([]common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Relationship
	for _, e := range s.edges {
		if e.Status == common.EdgeQueued {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateRelationshipStatus(ctx context.Context, id string, status common.EdgeStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = status
	e.RejectReason = reason
	e.UpdatedAt = time.Now()
	s.edges[id] = e
	return nil
}

func (s *MemoryStore) ReinforceRelationship(ctx context.Context, id string, confidence float64, evidence []common.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return store.ErrNotFound
	}
	if confidence > e.Confidence {
		e.Confidence = confidence
	}
	e.Evidence = common.MergeEvidence(e.Evidence, evidence)
	e.UpdatedAt = time.Now()
	s.edges[id] = e
	return nil
}

func (s *MemoryStore) DeleteRelationship(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.edges, id)
	return nil
}

func (s *MemoryStore) UpdateHealthCache(ctx context.Context, projectID string, score common.HealthScore, needs []common.Need) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[projectID] = healthEntry{score: score, needs: needs}
	return nil
}

func (s *MemoryStore) GetHealthCache(ctx context.Context, projectID string) (common.HealthScore, []common.Need, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.health[projectID]
	if !ok {
		return common.HealthScore{}, nil, store.ErrNotFound
	}
	return entry.score, entry.needs, nil
}

func (s *MemoryStore) SaveCheckpoint(ctx context.Context, runID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpoints[runID] == nil {
		s.checkpoints[runID] = make(map[string]bool)
	}
	s.checkpoints[runID][projectID] = true
	return nil
}

func (s *MemoryStore) CompletedProjects(ctx context.Context, runID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.checkpoints[runID]))
	for id := range s.checkpoints[runID] {
		out[id] = true
	}
	return out, nil
}

func (s *MemoryStore) SaveRunReport(ctx context.Context, runID string, report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[runID] = append([]byte(nil), report...)
	return nil
}

func (s *MemoryStore) GetRunReport(ctx context.Context, runID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), report...), nil
}

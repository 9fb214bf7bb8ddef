package store

import (
	"context"
	"errors"

	"github.com/act-placemat/loom/pkg/common"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("store: not found")

// Store persists the canonical entity/relationship graph and the derived
// caches. The core treats it as the system of record boundary: the
// in-memory implementation backs tests and single-process runs, the pgx
// implementation backs production.
//
// UpsertRelationship is the one operation with a transactional contract:
// it must behave as create-if-not-exists keyed on (source, target, kind)
// over non-rejected edges. A concurrent insert of the same triple is not
// an error; the caller receives the surviving edge's ID with created=false.
type Store interface {
	ListProjects(ctx context.Context) ([]common.Project, error)
	GetProject(ctx context.Context, id string) (common.Project, error)
	SaveProject(ctx context.Context, project common.Project) error

	ListOrganizations(ctx context.Context) ([]common.Organization, error)
	// SaveOrganization merges by normalized name: when the organization's
	// canonical name matches an existing organization's name or alias the
	// two are merged (aliases unioned) and the existing ID is returned.
	SaveOrganization(ctx context.Context, org common.Organization) (string, error)

	ListPeople(ctx context.Context) ([]common.Person, error)
	GetPerson(ctx context.Context, id string) (common.Person, error)
	FindPersonByEmail(ctx context.Context, email string) (common.Person, error)
	FindPersonBySourceRef(ctx context.Context, src, externalID string) (common.Person, error)
	SavePerson(ctx context.Context, person common.Person) error

	UpsertRelationship(ctx context.Context, edge common.Relationship) (id string, created bool, err error)
	GetRelationship(ctx context.Context, id string) (common.Relationship, error)
	ListRelationships(ctx context.Context, entityID string) ([]common.Relationship, error)
	ListRelationshipsByRun(ctx context.Context, runID string) ([]common.Relationship, error)
	ListReviewQueue(ctx context.Context) ([]common.Relationship, error)
	UpdateRelationshipStatus(ctx context.Context, id string, status common.EdgeStatus, reason string) error
	// ReinforceRelationship raises the edge's confidence to the given
	// value if higher and appends evidence, trimming to the evidence cap.
	ReinforceRelationship(ctx context.Context, id string, confidence float64, evidence []common.Evidence) error
	DeleteRelationship(ctx context.Context, id string) error

	UpdateHealthCache(ctx context.Context, projectID string, score common.HealthScore, needs []common.Need) error
	GetHealthCache(ctx context.Context, projectID string) (common.HealthScore, []common.Need, error)

	// Checkpoints let an interrupted batch run resume from the last
	// completed project.
	SaveCheckpoint(ctx context.Context, runID, projectID string) error
	CompletedProjects(ctx context.Context, runID string) (map[string]bool, error)
	SaveRunReport(ctx context.Context, runID string, report []byte) error
	GetRunReport(ctx context.Context, runID string) ([]byte, error)
}

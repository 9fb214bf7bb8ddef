// Package resolve merges raw contact records from heterogeneous sources
// into canonical Person records. Matching is deliberately conservative:
// a wrong merge conflates two real people and is much harder to repair
// than a missed one, so anything below the high-confidence threshold is
// logged as a suggestion and left as two records.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/source"
	"github.com/act-placemat/loom/pkg/store"

	"github.com/go-playground/validator"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// InvalidContactError marks a raw record rejected at the boundary. Batch
// ingest logs and skips these; they never abort the batch.
type InvalidContactError struct {
	Reason string
}

func (e *InvalidContactError) Error() string {
	return fmt.Sprintf("invalid contact: %s", e.Reason)
}

const (
	// mergeThreshold is the fuzzy-name similarity above which two records
	// from the same source category are merged.
	mergeThreshold = 0.92
	// suggestThreshold is the floor for logging a possible duplicate
	// without merging.
	suggestThreshold = 0.75
)

// Resolver maps raw contacts onto canonical Person records. It is a
// single-writer component: one resolver per ingest run, no concurrent
// Resolve calls, so merges into the same Person cannot race.
type Resolver struct {
	store    store.Store
	validate *validator.Validate
}

// NewResolver creates a resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{
		store:    s,
		validate: validator.New(),
	}
}

// Resolve merges one raw contact into the canonical store and returns the
// resulting Person ID. The match cascade is: exact email, then
// (source, external-id) provenance, then fuzzy name within the same
// source; otherwise a new Person is created.
func (r *Resolver) Resolve(ctx context.Context, contact source.RawContact) (string, error) {
	email := strings.ToLower(strings.TrimSpace(contact.Email))
	if email != "" {
		if err := r.validate.Var(email, "email"); err != nil {
			return "", &InvalidContactError{Reason: fmt.Sprintf("malformed email %q", contact.Email)}
		}
	}
	if email == "" && strings.TrimSpace(contact.Name) == "" && contact.ExternalID == "" {
		return "", &InvalidContactError{Reason: "no email, name, or external id"}
	}

	if email != "" {
		person, err := r.store.FindPersonByEmail(ctx, email)
		if err == nil {
			return r.merge(ctx, person, contact, email, false)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("email lookup failed: %w", err)
		}
	}

	if contact.Source != "" && contact.ExternalID != "" {
		person, err := r.store.FindPersonBySourceRef(ctx, contact.Source, contact.ExternalID)
		if err == nil {
			return r.merge(ctx, person, contact, email, false)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("source ref lookup failed: %w", err)
		}
	}

	if match, ok, err := r.fuzzyMatch(ctx, contact, email); err != nil {
		return "", err
	} else if ok {
		return r.merge(ctx, match, contact, email, true)
	}

	return r.create(ctx, contact, email)
}

// ResolveBatch runs a whole contact source through Resolve, skipping
// invalid records. It returns the Person IDs produced and the number of
// records skipped.
func (r *Resolver) ResolveBatch(ctx context.Context, src source.ContactSource) ([]string, int, error) {
	contacts, err := src.Contacts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("contact source %s unavailable: %w", src.Name(), err)
	}

	ids := make([]string, 0, len(contacts))
	skipped := 0
	for _, contact := range contacts {
		if ctx.Err() != nil {
			return ids, skipped, ctx.Err()
		}
		if contact.Source == "" {
			contact.Source = src.Name()
		}
		id, err := r.Resolve(ctx, contact)
		if err != nil {
			var invalid *InvalidContactError
			if errors.As(err, &invalid) {
				logger.Warn("[Resolve] Skipping invalid contact", "source", src.Name(), "reason", invalid.Reason)
				skipped++
				continue
			}
			return ids, skipped, err
		}
		ids = append(ids, id)
	}
	return ids, skipped, nil
}

// fuzzyMatch looks for an existing Person whose name token set overlaps
// the contact's at or above the merge threshold. Only candidates with the
// same source category and no email of their own qualify; an email on
// either side would already have matched (or ruled out) step one.
func (r *Resolver) fuzzyMatch(ctx context.Context, contact source.RawContact, email string) (common.Person, bool, error) {
	name := strings.TrimSpace(contact.Name)
	if name == "" {
		return common.Person{}, false, nil
	}

	people, err := r.store.ListPeople(ctx)
	if err != nil {
		return common.Person{}, false, fmt.Errorf("listing people: %w", err)
	}

	var best common.Person
	bestScore := 0.0
	for _, person := range people {
		if person.MergedInto != "" || len(person.Emails) > 0 {
			continue
		}
		score := util.TokenSetSimilarity(name, person.FullName)
		if score > bestScore {
			best, bestScore = person, score
		}
	}

	if bestScore >= mergeThreshold && sameSourceCategory(best, contact.Source) {
		return best, true, nil
	}
	if bestScore >= suggestThreshold {
		logger.Info("[Resolve] Possible duplicate left unmerged",
			"contact", name, "candidate", best.FullName, "similarity", fmt.Sprintf("%.2f", bestScore))
	}
	return common.Person{}, false, nil
}

func sameSourceCategory(person common.Person, src string) bool {
	for _, ref := range person.Sources {
		if ref.Source == src {
			return true
		}
	}
	return false
}

// merge appends the contact's provenance to an existing Person. Nothing
// is removed: emails and source refs only accumulate.
func (r *Resolver) merge(ctx context.Context, person common.Person, contact source.RawContact, email string, probable bool) (string, error) {
	now := time.Now()

	if email != "" && !person.HasEmail(email) {
		person.Emails = append(person.Emails, email)
	}
	if person.FullName == "" {
		person.FullName = strings.TrimSpace(contact.Name)
	}
	if person.Role == "" {
		person.Role = contact.Role
	}
	if !hasSourceRef(person, contact.Source, contact.ExternalID) {
		person.Sources = append(person.Sources, common.SourceRef{
			Source:            contact.Source,
			ExternalID:        contact.ExternalID,
			ProbableDuplicate: probable,
			AddedAt:           now,
		})
	}
	if now.After(person.LastContact) {
		person.LastContact = now
	}

	if err := r.store.SavePerson(ctx, person); err != nil {
		return "", fmt.Errorf("saving merged person: %w", err)
	}
	return person.ID, nil
}

func hasSourceRef(person common.Person, src, externalID string) bool {
	for _, ref := range person.Sources {
		if ref.Source == src && ref.ExternalID == externalID {
			return true
		}
	}
	return false
}

func (r *Resolver) create(ctx context.Context, contact source.RawContact, email string) (string, error) {
	name := strings.TrimSpace(contact.Name)
	if name == "" && email != "" {
		name = NameFromEmail(email)
	}

	person := common.Person{
		ID:          gonanoid.Must(),
		FullName:    name,
		Role:        contact.Role,
		LastContact: time.Now(),
		Sources: []common.SourceRef{{
			Source:     contact.Source,
			ExternalID: contact.ExternalID,
			AddedAt:    time.Now(),
		}},
	}
	if email != "" {
		person.Emails = []string{email}
	}

	if err := r.store.SavePerson(ctx, person); err != nil {
		return "", fmt.Errorf("saving new person: %w", err)
	}

	// a corporate email domain is an organization hint worth keeping;
	// SaveOrganization merges it into an existing record by name
	if org := OrganizationFromEmail(email); org != "" {
		_, err := r.store.SaveOrganization(ctx, common.Organization{
			Name:     org,
			Category: "contact-inferred",
		})
		if err != nil {
			logger.Warn("[Resolve] Could not save organization hint", "organization", org, "error", err)
		}
	}
	return person.ID, nil
}

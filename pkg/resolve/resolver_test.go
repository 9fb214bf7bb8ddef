package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/source"
	"github.com/act-placemat/loom/pkg/store/memory"
)

func TestResolveExactEmailMatch(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	existing := common.Person{
		ID:       "p1",
		FullName: "Jane Doe",
		Emails:   []string{"jane@acme.org"},
		Sources:  []common.SourceRef{{Source: "crm", ExternalID: "42", AddedAt: time.Now()}},
	}
	if err := st.SavePerson(ctx, existing); err != nil {
		t.Fatal(err)
	}

	id, err := r.Resolve(ctx, source.RawContact{
		Name:       "J. Doe",
		Email:      "JANE@acme.org",
		Source:     "mailbox",
		ExternalID: "msg-7",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "p1" {
		t.Fatalf("expected merge into p1, got %s", id)
	}

	person, err := st.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if person.FullName != "Jane Doe" {
		t.Errorf("existing name must survive a merge, got %q", person.FullName)
	}
	if len(person.Sources) != 2 {
		t.Errorf("expected provenance from both sources, got %d refs", len(person.Sources))
	}
}

func TestResolveSourceRefMatch(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	existing := common.Person{
		ID:       "p2",
		FullName: "Sam Okafor",
		Sources:  []common.SourceRef{{Source: "crm", ExternalID: "c-9", AddedAt: time.Now()}},
	}
	if err := st.SavePerson(ctx, existing); err != nil {
		t.Fatal(err)
	}

	id, err := r.Resolve(ctx, source.RawContact{
		Name:       "Sam Okafor",
		Email:      "sam@okafor.dev",
		Source:     "crm",
		ExternalID: "c-9",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "p2" {
		t.Fatalf("expected source-ref merge into p2, got %s", id)
	}

	person, _ := st.GetPerson(ctx, "p2")
	if !person.HasEmail("sam@okafor.dev") {
		t.Error("merged record should gain the new email")
	}
}

func TestResolveFuzzyNameMatch(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	existing := common.Person{
		ID:       "p3",
		FullName: "Maria del Carmen Ruiz",
		Sources:  []common.SourceRef{{Source: "notes", ExternalID: "n-1", AddedAt: time.Now()}},
	}
	if err := st.SavePerson(ctx, existing); err != nil {
		t.Fatal(err)
	}

	id, err := r.Resolve(ctx, source.RawContact{
		Name:       "maria del carmen ruiz",
		Source:     "notes",
		ExternalID: "n-2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "p3" {
		t.Fatalf("expected fuzzy merge into p3, got %s", id)
	}

	person, _ := st.GetPerson(ctx, "p3")
	var flagged bool
	for _, ref := range person.Sources {
		if ref.ExternalID == "n-2" && ref.ProbableDuplicate {
			flagged = true
		}
	}
	if !flagged {
		t.Error("fuzzy merge must flag the new source ref as a probable duplicate")
	}
}

func TestResolveFuzzyRequiresSameSource(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	existing := common.Person{
		ID:       "p4",
		FullName: "Alex Kim",
		Sources:  []common.SourceRef{{Source: "crm", ExternalID: "c-1", AddedAt: time.Now()}},
	}
	if err := st.SavePerson(ctx, existing); err != nil {
		t.Fatal(err)
	}

	id, err := r.Resolve(ctx, source.RawContact{
		Name:       "Alex Kim",
		Source:     "mailbox",
		ExternalID: "m-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "p4" {
		t.Fatal("identical name from a different source must not merge")
	}
}

func TestResolveInvalidEmail(t *testing.T) {
	r := NewResolver(memory.NewMemoryStore())

	_, err := r.Resolve(context.Background(), source.RawContact{
		Name:  "Broken Record",
		Email: "not-an-email",
	})
	var invalid *InvalidContactError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidContactError, got %v", err)
	}
}

func TestResolveCreatesFromBareEmail(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	id, err := r.Resolve(ctx, source.RawContact{
		Email:  "jane.doe@acme.org",
		Source: "mailbox",
	})
	if err != nil {
		t.Fatal(err)
	}

	person, err := st.GetPerson(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if person.FullName != "Jane Doe" {
		t.Errorf("expected derived name Jane Doe, got %q", person.FullName)
	}

	// the corporate domain becomes an organization hint
	orgs, err := st.ListOrganizations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 1 || orgs[0].Name != "Acme" {
		t.Fatalf("expected organization hint Acme, got %+v", orgs)
	}
	if orgs[0].Category != "contact-inferred" {
		t.Errorf("expected category contact-inferred, got %q", orgs[0].Category)
	}
}

func TestResolveSkipsFreemailOrganizationHint(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	if _, err := r.Resolve(ctx, source.RawContact{
		Email:  "jane.doe@gmail.com",
		Source: "mailbox",
	}); err != nil {
		t.Fatal(err)
	}

	orgs, err := st.ListOrganizations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 0 {
		t.Fatalf("freemail domains must not create organizations, got %+v", orgs)
	}
}

func TestResolveBatchSkipsInvalid(t *testing.T) {
	st := memory.NewMemoryStore()
	r := NewResolver(st)

	src := &source.StaticContacts{
		SourceName: "crm",
		Records: []source.RawContact{
			{Name: "Good One", Email: "good@acme.org", ExternalID: "1"},
			{Name: "Bad One", Email: "@@", ExternalID: "2"},
			{Name: "Good Two", Email: "two@acme.org", ExternalID: "3"},
		},
	}

	ids, skipped, err := r.ResolveBatch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped record, got %d", skipped)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 resolved people, got %d", len(ids))
	}
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@acme.org", "Jane Doe"},
		{"j_m-ruiz@acme.org", "J M Ruiz"},
		{"single@acme.org", "Single"},
	}
	for _, tt := range tests {
		if got := NameFromEmail(tt.email); got != tt.want {
			t.Errorf("NameFromEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestOrganizationFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@acme.org", "Acme"},
		{"jane@gmail.com", ""},
		{"jane@dev.example.co.uk", "Co"},
	}
	for _, tt := range tests {
		if got := OrganizationFromEmail(tt.email); got != tt.want {
			t.Errorf("OrganizationFromEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

package common

import "time"

// EntityKind identifies which of the three tracked entity kinds a
// reference points at.
type EntityKind string

const (
	KindPerson       EntityKind = "person"
	KindOrganization EntityKind = "organization"
	KindProject      EntityKind = "project"
)

// EntityRef is a lightweight pointer to an entity in the graph. Name is
// carried for display and logging only; ID is authoritative.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
	Name string     `json:"name"`
}

// SourceRef records where a Person was observed. Merging is append-only:
// a Person accumulates one SourceRef per raw record merged into it, so the
// provenance of every merge decision is preserved.
type SourceRef struct {
	Source            string    `json:"source"`
	ExternalID        string    `json:"external_id"`
	ProbableDuplicate bool      `json:"probable_duplicate,omitempty"`
	AddedAt           time.Time `json:"added_at"`
}

// Person is a canonical individual assembled from one or more raw contact
// records. No two Persons may share an email address. Persons are never
// hard-deleted; a superseded record keeps its ID and points at the record
// it was merged into.
type Person struct {
	ID          string      `json:"id"`
	FullName    string      `json:"full_name"`
	Emails      []string    `json:"emails"`
	Role        string      `json:"role,omitempty"`
	Sources     []SourceRef `json:"sources"`
	LastContact time.Time   `json:"last_contact"`
	MergedInto  string      `json:"merged_into,omitempty"`
}

// HasEmail reports whether the person already carries the given address.
// Callers pass pre-normalized (lowercased) addresses.
func (p *Person) HasEmail(email string) bool {
	for _, e := range p.Emails {
		if e == email {
			return true
		}
	}
	return false
}

// Organization is a named entity such as a company, agency, or community
// group. Name and alias matching is case- and punctuation-insensitive.
type Organization struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Category string   `json:"category,omitempty"`
}

// ProjectStatus is the lifecycle state of a tracked initiative.
type ProjectStatus string

const (
	StatusActive     ProjectStatus = "active"
	StatusBuilding   ProjectStatus = "building"
	StatusSunsetting ProjectStatus = "sunsetting"
	StatusCompleted  ProjectStatus = "completed"
)

// Project is a tracked initiative. NextMilestone and LastActivity are zero
// when unknown; OwnershipPct is nil when the field has never been filled,
// which is distinct from an explicit zero.
type Project struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Aliases       []string      `json:"aliases,omitempty"`
	Status        ProjectStatus `json:"status"`
	Themes        []string      `json:"themes,omitempty"`
	Regions       []string      `json:"regions,omitempty"`
	FundingActual float64       `json:"funding_actual"`
	FundingTarget float64       `json:"funding_target"`
	LastActivity  time.Time     `json:"last_activity"`
	NextMilestone time.Time     `json:"next_milestone"`
	OwnershipPct  *float64      `json:"ownership_pct,omitempty"`
	Summary       string        `json:"summary,omitempty"`
}

// Names returns the project's name and aliases as one slice, for matching
// against correspondence text.
func (p *Project) Names() []string {
	names := make([]string, 0, len(p.Aliases)+1)
	names = append(names, p.Name)
	names = append(names, p.Aliases...)
	return names
}

// EdgeKind labels what a relationship asserts about its endpoints.
type EdgeKind string

const (
	EdgeCollaboratesWith EdgeKind = "collaborates-with"
	EdgeMentions         EdgeKind = "mentions"
	EdgeFunds            EdgeKind = "funds"
	EdgeEmploysAt        EdgeKind = "employs-at"
)

// EdgeStatus is the lifecycle state of a relationship edge.
type EdgeStatus string

const (
	EdgeProposed      EdgeStatus = "proposed"
	EdgeAutoLinked    EdgeStatus = "auto-linked"
	EdgeQueued        EdgeStatus = "queued-for-review"
	EdgeHumanApproved EdgeStatus = "human-approved"
	EdgeRejected      EdgeStatus = "rejected"
)

// Evidence is one observation supporting an edge: where it was seen, a
// short excerpt, and when.
type Evidence struct {
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Excerpt    string    `json:"excerpt"`
	ObservedAt time.Time `json:"observed_at"`
}

// MaxEvidencePerEdge bounds how many evidence items an edge or signal
// accumulates. Re-discovery appends provenance, so without a cap the list
// grows without limit; only the most recent items are kept.
const MaxEvidencePerEdge = 5

// Relationship is a typed edge between two entities. At most one
// non-rejected edge may exist per (source, target, kind) triple;
// re-discovery strengthens the existing edge instead of duplicating it.
type Relationship struct {
	ID           string     `json:"id"`
	SourceID     string     `json:"source_id"`
	Target       EntityRef  `json:"target"`
	Kind         EdgeKind   `json:"kind"`
	Confidence   float64    `json:"confidence"`
	Evidence     []Evidence `json:"evidence"`
	Status       EdgeStatus `json:"status"`
	RunID        string     `json:"run_id,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Signal is a raw, unscored observation that a project might be associated
// with another entity. Repeated observations of the same target accumulate
// weight on one signal rather than producing several.
type Signal struct {
	Target     EntityRef  `json:"target"`
	Weight     float64    `json:"weight"`
	Channels   []string   `json:"channels"`
	Evidence   []Evidence `json:"evidence"`
	LastSeenAt time.Time  `json:"last_seen_at"`
}

// HasChannel reports whether the signal already carries evidence from the
// given channel (correspondence, themes, research, ...).
func (s *Signal) HasChannel(channel string) bool {
	for _, c := range s.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// CandidateEdge is a signal converted into a confidence-scored, not yet
// committed relationship. When Reinforces is non-empty the candidate
// strengthens an existing edge instead of creating a new one.
type CandidateEdge struct {
	ProjectID      string     `json:"project_id"`
	Target         EntityRef  `json:"target"`
	Kind           EdgeKind   `json:"kind"`
	Confidence     float64    `json:"confidence"`
	Evidence       []Evidence `json:"evidence"`
	Reinforces     string     `json:"reinforces,omitempty"`
	LastEvidenceAt time.Time  `json:"last_evidence_at"`
}

// HealthScore is a derived value object per project. It is always
// recomputable from current project and relationship state; the cached
// copy exists for display only.
type HealthScore struct {
	ProjectID    string    `json:"project_id"`
	Funding      float64   `json:"funding"`
	People       float64   `json:"people"`
	Momentum     float64   `json:"momentum"`
	Ownership    float64   `json:"ownership"`
	Completeness float64   `json:"completeness"`
	Overall      float64   `json:"overall"`
	ComputedAt   time.Time `json:"computed_at"`
}

// NeedKind classifies a derived gap surfaced for operator action.
type NeedKind string

const (
	NeedFundingGap       NeedKind = "funding-gap"
	NeedEngagementGap    NeedKind = "engagement-gap"
	NeedOverdueMilestone NeedKind = "overdue-milestone"
	NeedNoProjectLead    NeedKind = "no-project-lead"
	NeedLowCompleteness  NeedKind = "low-completeness"
)

// NeedPriority orders needs for display. Critical sorts first.
type NeedPriority string

const (
	PriorityCritical NeedPriority = "critical"
	PriorityHigh     NeedPriority = "high"
	PriorityMedium   NeedPriority = "medium"
	PriorityLow      NeedPriority = "low"
)

// Rank maps a priority to a sortable integer, lower meaning more urgent.
func (p NeedPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Need is a derived, ranked gap for one project with 1-3 suggested
// remediations. Needs are regenerated on every scoring pass and never
// persisted as a source of truth.
type Need struct {
	ProjectID   string       `json:"project_id"`
	Kind        NeedKind     `json:"kind"`
	Priority    NeedPriority `json:"priority"`
	Description string       `json:"description"`
	Actions     []string     `json:"actions"`
	Gap         float64      `json:"gap"`
}

// Package discover mines raw association signals for a project from
// correspondence, thematic overlap, and optional text research, then
// scores them into candidate relationship edges. Mining never commits
// anything; the link package decides what becomes an edge.
package discover

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/source"
	"github.com/act-placemat/loom/pkg/store"
)

const (
	// ChannelCorrespondence marks signals observed in email traffic.
	ChannelCorrespondence = "correspondence"
	// ChannelThemes marks signals from theme and region overlap.
	ChannelThemes = "themes"
	// ChannelResearch marks signals suggested by a text-research model.
	ChannelResearch = "research"

	// messageWeight is the signal weight one co-occurring message adds.
	messageWeight = 1.0
	// researchWeight is the weight of a model suggestion. Advisory: a
	// research-only signal can never clear the review threshold alone.
	researchWeight = 0.5

	// defaultWindow bounds how far back correspondence is searched.
	defaultWindow = 365 * 24 * time.Hour

	excerptLen = 160
)

// Miner gathers unscored association signals for one project at a time.
type Miner struct {
	store          store.Store
	correspondence source.CorrespondenceSource
	research       source.TextResearch
	window         time.Duration
}

// MinerParams configures a Miner. Correspondence and Research are both
// optional; a Miner with neither still produces thematic signals.
type MinerParams struct {
	Store          store.Store
	Correspondence source.CorrespondenceSource
	Research       source.TextResearch
	Window         time.Duration
}

func NewMiner(params MinerParams) *Miner {
	window := params.Window
	if window <= 0 {
		window = defaultWindow
	}
	return &Miner{
		store:          params.Store,
		correspondence: params.Correspondence,
		research:       params.Research,
		window:         window,
	}
}

// Mine collects signals for the project from every configured channel.
// Channel failures degrade to zero signals from that channel; only store
// errors are fatal. When the context expires mid-mine the signals
// gathered so far are returned alongside the context error.
func (m *Miner) Mine(ctx context.Context, project common.Project) ([]common.Signal, error) {
	acc := newSignalSet(project.ID)

	index, err := m.buildIndex(ctx, project)
	if err != nil {
		return nil, err
	}

	m.mineThemes(project, index, acc)

	if ctx.Err() != nil {
		return acc.list(), ctx.Err()
	}

	if m.correspondence != nil {
		if err := m.mineCorrespondence(ctx, project, index, acc); err != nil {
			if ctx.Err() != nil {
				return acc.list(), ctx.Err()
			}
			logger.Warn("[Discover] Correspondence unavailable, continuing without it",
				"project", project.Name, "error", err)
		}
	}

	if ctx.Err() != nil {
		return acc.list(), ctx.Err()
	}

	if m.research != nil {
		if err := m.mineResearch(ctx, project, acc); err != nil {
			if ctx.Err() != nil {
				return acc.list(), ctx.Err()
			}
			logger.Warn("[Discover] Text research failed, continuing without it",
				"project", project.Name, "error", err)
		}
	}

	return acc.list(), nil
}

// entityIndex holds everything mineable against message text: all known
// organizations, people, and the other projects.
type entityIndex struct {
	organizations []common.Organization
	people        []common.Person
	projects      []common.Project
}

func (m *Miner) buildIndex(ctx context.Context, project common.Project) (*entityIndex, error) {
	orgs, err := m.store.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	people, err := m.store.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	projects, err := m.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	idx := &entityIndex{organizations: orgs}
	for _, p := range people {
		if p.MergedInto == "" {
			idx.people = append(idx.people, p)
		}
	}
	for _, p := range projects {
		if p.ID != project.ID {
			idx.projects = append(idx.projects, p)
		}
	}
	return idx, nil
}

// mineCorrespondence searches messages mentioning the project and scans
// each hit for other known entities. Every co-occurring message adds one
// unit of weight to the entity's signal.
func (m *Miner) mineCorrespondence(ctx context.Context, project common.Project, idx *entityIndex, acc *signalSet) error {
	since := time.Now().Add(-m.window)

	seen := make(map[string]bool)
	for _, name := range project.Names() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		messages, err := m.correspondence.SearchMessages(ctx, name, since)
		if err != nil {
			return err
		}
		for _, msg := range messages {
			if seen[msg.ID] {
				continue
			}
			// search backends may match substrings; only a whole-word
			// mention of the project counts as co-occurrence
			if !util.ContainsWholeWord(msg.Subject+"\n"+msg.Body, name) {
				continue
			}
			seen[msg.ID] = true
			m.scanMessage(msg, idx, acc)
		}
	}
	return nil
}

func (m *Miner) scanMessage(msg source.Message, idx *entityIndex, acc *signalSet) {
	text := msg.Subject + "\n" + msg.Body

	for _, org := range idx.organizations {
		if name, ok := matchAnyName(text, append([]string{org.Name}, org.Aliases...)); ok {
			acc.add(common.EntityRef{Kind: common.KindOrganization, ID: org.ID, Name: org.Name},
				messageWeight, ChannelCorrespondence, common.Evidence{
					SourceType: ChannelCorrespondence,
					SourceID:   msg.ID,
					Excerpt:    util.Excerpt(text, name, excerptLen),
					ObservedAt: msg.Timestamp,
				})
		}
	}

	for i := range idx.people {
		person := &idx.people[i]
		name, ok := matchPerson(text, msg, person)
		if !ok {
			continue
		}
		acc.add(common.EntityRef{Kind: common.KindPerson, ID: person.ID, Name: person.FullName},
			messageWeight, ChannelCorrespondence, common.Evidence{
				SourceType: ChannelCorrespondence,
				SourceID:   msg.ID,
				Excerpt:    util.Excerpt(text, name, excerptLen),
				ObservedAt: msg.Timestamp,
			})
	}

	for _, other := range idx.projects {
		if name, ok := matchAnyName(text, other.Names()); ok {
			acc.add(common.EntityRef{Kind: common.KindProject, ID: other.ID, Name: other.Name},
				messageWeight, ChannelCorrespondence, common.Evidence{
					SourceType: ChannelCorrespondence,
					SourceID:   msg.ID,
					Excerpt:    util.Excerpt(text, name, excerptLen),
					ObservedAt: msg.Timestamp,
				})
		}
	}
}

// matchPerson checks a person against a message by name in the text or by
// address on the envelope.
func matchPerson(text string, msg source.Message, person *common.Person) (string, bool) {
	for _, email := range person.Emails {
		if strings.EqualFold(msg.Sender, email) {
			return person.FullName, true
		}
		for _, rcpt := range msg.Recipients {
			if strings.EqualFold(rcpt, email) {
				return person.FullName, true
			}
		}
	}
	if person.FullName != "" && util.ContainsWholeWord(text, person.FullName) {
		return person.FullName, true
	}
	return "", false
}

func matchAnyName(text string, names []string) (string, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if util.ContainsWholeWord(text, name) {
			return name, true
		}
	}
	return "", false
}

// mineThemes emits a signal per sibling project that shares themes or
// regions, weighted by the Jaccard overlap of the combined sets.
func (m *Miner) mineThemes(project common.Project, idx *entityIndex, acc *signalSet) {
	now := time.Now()
	for _, other := range idx.projects {
		overlap := ThemeOverlap(project, other)
		if overlap <= 0 {
			continue
		}
		acc.add(common.EntityRef{Kind: common.KindProject, ID: other.ID, Name: other.Name},
			overlap, ChannelThemes, common.Evidence{
				SourceType: ChannelThemes,
				SourceID:   other.ID,
				Excerpt:    fmt.Sprintf("shared focus: %s", strings.Join(sharedTags(project, other), ", ")),
				ObservedAt: now,
			})
	}
}

func sharedTags(a, b common.Project) []string {
	as, bs := tagSet(a), tagSet(b)
	var shared []string
	for tag := range as {
		if _, ok := bs[tag]; ok {
			shared = append(shared, tag)
		}
	}
	sort.Strings(shared)
	return shared
}

func tagSet(project common.Project) map[string]struct{} {
	set := make(map[string]struct{}, len(project.Themes)+len(project.Regions))
	for _, t := range project.Themes {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, r := range project.Regions {
		set[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	delete(set, "")
	return set
}

// ThemeOverlap returns the Jaccard similarity of two projects' combined
// theme and region sets.
func ThemeOverlap(a, b common.Project) float64 {
	as, bs := tagSet(a), tagSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	shared := 0
	for tag := range as {
		if _, ok := bs[tag]; ok {
			shared++
		}
	}
	union := len(as) + len(bs) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

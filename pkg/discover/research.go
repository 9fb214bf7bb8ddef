package discover

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/research"
)

const researchPromptTemplate = `List organizations that are plausibly active in the following fields: %s.
Respond with a JSON array of organization names only, for example ["Acme Foundation", "Open Fields e.V."].
Return at most 10 names. No commentary.`

// mineResearch asks the configured model for organizations active in the
// project's thematic space and emits a low-weight signal per suggestion.
// Suggestions are merged into the organization store so repeated runs
// converge on one record per name.
func (m *Miner) mineResearch(ctx context.Context, project common.Project, acc *signalSet) error {
	tags := tagSet(project)
	if len(tags) == 0 {
		return nil
	}
	fields := make([]string, 0, len(tags))
	for tag := range tags {
		fields = append(fields, tag)
	}
	sort.Strings(fields)

	answer, err := m.research.Ask(ctx, fmt.Sprintf(researchPromptTemplate, strings.Join(fields, ", ")))
	if err != nil {
		return fmt.Errorf("research query: %w", err)
	}

	names, err := research.ParseNameList(answer)
	if err != nil {
		return fmt.Errorf("parsing research answer: %w", err)
	}

	now := time.Now()
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		orgID, err := m.store.SaveOrganization(ctx, common.Organization{
			Name:     name,
			Category: "research-suggested",
		})
		if err != nil {
			logger.Warn("[Discover] Could not record suggested organization", "name", name, "error", err)
			continue
		}
		acc.add(common.EntityRef{Kind: common.KindOrganization, ID: orgID, Name: name},
			researchWeight, ChannelResearch, common.Evidence{
				SourceType: ChannelResearch,
				SourceID:   orgID,
				Excerpt:    fmt.Sprintf("model suggested %q for: %s", name, strings.Join(fields, ", ")),
				ObservedAt: now,
			})
	}
	return nil
}

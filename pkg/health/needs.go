package health

import (
	"fmt"
	"sort"
	"time"

	"github.com/act-placemat/loom/pkg/common"
)

const (
	fundingGapHigh     = 20000
	fundingGapCritical = 50000

	lowCompletenessThreshold = 50
)

// DeriveNeeds assembles the ranked need list for a project from its
// computed score. Needs are ordered by priority, then by the magnitude of
// the underlying gap.
func DeriveNeeds(project common.Project, score common.HealthScore, now time.Time) []common.Need {
	var needs []common.Need

	if gap := FundingGap(project); gap >= fundingGapHigh {
		priority := common.PriorityHigh
		if gap >= fundingGapCritical {
			priority = common.PriorityCritical
		}
		needs = append(needs, common.Need{
			ProjectID:   project.ID,
			Kind:        common.NeedFundingGap,
			Priority:    priority,
			Description: fmt.Sprintf("%s is %.0f short of its funding target", project.Name, gap),
			Actions: []string{
				"review matching grants",
				"contact funders from the network",
				"update funding sources",
			},
			Gap: gap,
		})
	}

	if score.People == 0 {
		needs = append(needs, common.Need{
			ProjectID:   project.ID,
			Kind:        common.NeedEngagementGap,
			Priority:    common.PriorityHigh,
			Description: fmt.Sprintf("%s has no recent touchpoints in the network", project.Name),
			Actions: []string{
				"reach out to previous collaborators",
				"schedule a check-in with the project team",
			},
			Gap: 100 - score.People,
		})
	}

	if milestoneOverdue(project, now) {
		overdueDays := now.Sub(project.NextMilestone).Hours() / 24
		needs = append(needs, common.Need{
			ProjectID:   project.ID,
			Kind:        common.NeedOverdueMilestone,
			Priority:    common.PriorityHigh,
			Description: fmt.Sprintf("%s has a milestone %.0f days overdue", project.Name, overdueDays),
			Actions: []string{
				"confirm the milestone status with the project lead",
				"set a new milestone date",
			},
			Gap: overdueDays,
		})
	}

	if project.OwnershipPct == nil {
		needs = append(needs, common.Need{
			ProjectID:   project.ID,
			Kind:        common.NeedNoProjectLead,
			Priority:    common.PriorityLow,
			Description: fmt.Sprintf("ownership data for %s has never been recorded", project.Name),
			Actions: []string{
				"record who holds ownership of the project",
			},
			Gap: 100,
		})
	} else if *project.OwnershipPct == 0 {
		needs = append(needs, common.Need{
			ProjectID:   project.ID,
			Kind:        common.NeedNoProjectLead,
			Priority:    common.PriorityMedium,
			Description: fmt.Sprintf("%s has no project lead", project.Name),
			Actions: []string{
				"identify a candidate lead from active collaborators",
				"confirm ownership with the community",
			},
			Gap: 100,
		})
	}

	if score.Completeness < lowCompletenessThreshold {
		needs = append(needs, common.Need{
			ProjectID:   project.ID,
			Kind:        common.NeedLowCompleteness,
			Priority:    common.PriorityMedium,
			Description: fmt.Sprintf("%s is missing most of its required attributes", project.Name),
			Actions: []string{
				"fill in status, themes, and funding figures",
			},
			Gap: 100 - score.Completeness,
		})
	}

	sort.SliceStable(needs, func(i, j int) bool {
		if needs[i].Priority.Rank() != needs[j].Priority.Rank() {
			return needs[i].Priority.Rank() < needs[j].Priority.Rank()
		}
		return needs[i].Gap > needs[j].Gap
	})
	return needs
}

// Package health derives per-project health scores and actionable needs
// from current project attributes and graph connectivity. Scoring is a
// pure function over its inputs; missing data scores as its worst case
// instead of failing, so a score is always produced.
package health

import (
	"math"
	"time"

	"github.com/act-placemat/loom/pkg/common"
)

const (
	weightFunding      = 0.25
	weightPeople       = 0.25
	weightMomentum     = 0.20
	weightOwnership    = 0.20
	weightCompleteness = 0.10

	// recentWindow is how far back an edge's evidence counts as a live
	// touchpoint. Recent edges count double toward the people score.
	recentWindow = 90 * 24 * time.Hour

	// peoplePointsPerEdge converts effective edge count into score: eight
	// effective touchpoints saturate the scale.
	peoplePointsPerEdge = 12.5

	// momentumHorizon is the inactivity span over which momentum decays
	// from 100 to 0.
	momentumHorizon = 180 * 24 * time.Hour

	// overdueMomentumCap bounds momentum while a milestone is overdue.
	overdueMomentumCap = 40
)

// Compute derives the health score for a project from its attributes and
// its non-rejected relationship edges, evaluated at the given time.
func Compute(project common.Project, edges []common.Relationship, now time.Time) common.HealthScore {
	score := common.HealthScore{
		ProjectID:  project.ID,
		ComputedAt: now,
	}
	score.Funding = fundingScore(project)
	score.People = peopleScore(edges, now)
	score.Momentum = momentumScore(project, now)
	score.Ownership = ownershipScore(project)
	score.Completeness = completenessScore(project)

	score.Overall = clamp(weightFunding*score.Funding +
		weightPeople*score.People +
		weightMomentum*score.Momentum +
		weightOwnership*score.Ownership +
		weightCompleteness*score.Completeness)
	return score
}

// fundingScore measures how much of the funding target has been raised.
// Without a target there is no gap to measure and the dimension scores
// full; completeness separately penalizes absent funding data.
func fundingScore(project common.Project) float64 {
	gap := math.Max(0, project.FundingTarget-project.FundingActual)
	return clamp(100 - math.Min(100, 100*gap/math.Max(1, project.FundingTarget)))
}

// FundingGap returns the shortfall against the funding target.
func FundingGap(project common.Project) float64 {
	return math.Max(0, project.FundingTarget-project.FundingActual)
}

// peopleScore counts non-rejected edges touching the project, doubling
// those with evidence inside the recent window. No recent touchpoint at
// all means the network is cold regardless of how many stale edges exist.
func peopleScore(edges []common.Relationship, now time.Time) float64 {
	cutoff := now.Add(-recentWindow)
	total, recent := 0, 0
	for _, edge := range edges {
		if edge.Status == common.EdgeRejected {
			continue
		}
		total++
		if hasEvidenceSince(edge, cutoff) {
			recent++
		}
	}
	if recent == 0 {
		return 0
	}
	return clamp(float64(total+recent) * peoplePointsPerEdge)
}

func hasEvidenceSince(edge common.Relationship, cutoff time.Time) bool {
	for _, ev := range edge.Evidence {
		if ev.ObservedAt.After(cutoff) {
			return true
		}
	}
	return false
}

// momentumScore decays linearly with inactivity and is capped while the
// next milestone is overdue. An unknown last-activity scores worst case.
func momentumScore(project common.Project, now time.Time) float64 {
	score := 0.0
	if !project.LastActivity.IsZero() {
		idle := now.Sub(project.LastActivity)
		score = clamp(100 * (1 - float64(idle)/float64(momentumHorizon)))
	}
	if milestoneOverdue(project, now) {
		score = math.Min(score, overdueMomentumCap)
	}
	return score
}

func milestoneOverdue(project common.Project, now time.Time) bool {
	return !project.NextMilestone.IsZero() && project.NextMilestone.Before(now)
}

// ownershipScore maps the nullable ownership percentage directly. Nil is
// scored as zero; the needs pass separates "no data" from "no owner".
func ownershipScore(project common.Project) float64 {
	if project.OwnershipPct == nil {
		return 0
	}
	return clamp(*project.OwnershipPct)
}

// completenessScore is the fraction of required attributes present: name,
// status, at least one theme, and at least one milestone or funding figure.
func completenessScore(project common.Project) float64 {
	present := 0
	if project.Name != "" {
		present++
	}
	if project.Status != "" {
		present++
	}
	if len(project.Themes) > 0 {
		present++
	}
	if !project.NextMilestone.IsZero() || project.FundingTarget > 0 || project.FundingActual > 0 {
		present++
	}
	return float64(present) / 4 * 100
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

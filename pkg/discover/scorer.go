package discover

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/store"
)

// fundingVocabulary upgrades an organization edge from a bare mention to a
// funding relationship when any of these appear in its evidence.
var fundingVocabulary = []string{
	"grant", "funding", "funded", "funds", "donation", "donor",
	"sponsor", "sponsorship", "investment", "invests", "endowment",
}

// Scorer converts raw signals into confidence-scored candidate edges and
// dedupes them against the edges a project already has.
type Scorer struct {
	store store.Store
}

func NewScorer(s store.Store) *Scorer {
	return &Scorer{store: s}
}

// Confidence maps accumulated weight and channel diversity onto [0, 1].
// The log keeps a pile of messages from saturating the scale on its own;
// corroboration across channels is worth more than more of the same.
func Confidence(weight float64, distinctChannels int) float64 {
	if weight <= 0 {
		return 0
	}
	score := 0.15*math.Log2(1+weight) + 0.1*float64(distinctChannels)
	return math.Min(1.0, score)
}

// Score turns the project's signals into candidate edges, ordered by
// confidence (ties broken by freshest evidence). A candidate whose
// (target, kind) already exists as a non-rejected edge carries that edge's
// ID in Reinforces instead of proposing a duplicate. A pairing a reviewer
// rejected is dropped entirely unless the new evidence includes a channel
// the rejected edge never carried.
func (s *Scorer) Score(ctx context.Context, project common.Project, signals []common.Signal) ([]common.CandidateEdge, error) {
	existing, err := s.store.ListRelationships(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("listing existing edges: %w", err)
	}
	existingByKey := make(map[string]string, len(existing))
	rejectedChannels := make(map[string]map[string]bool)
	for _, edge := range existing {
		key := edgeKey(edge.Target.ID, edge.Kind)
		if edge.Status == common.EdgeRejected {
			channels := rejectedChannels[key]
			if channels == nil {
				channels = make(map[string]bool)
				rejectedChannels[key] = channels
			}
			for _, ev := range edge.Evidence {
				channels[ev.SourceType] = true
			}
			continue
		}
		existingByKey[key] = edge.ID
	}

	candidates := make([]common.CandidateEdge, 0, len(signals))
	for _, sig := range signals {
		kind := inferKind(sig)
		key := edgeKey(sig.Target.ID, kind)
		reinforces := existingByKey[key]
		if reinforces == "" {
			if channels, wasRejected := rejectedChannels[key]; wasRejected && !hasNewChannel(sig.Evidence, channels) {
				logger.Info("[Discover] Skipping rejected pairing, no new evidence channel",
					"project", project.Name, "target", sig.Target.Name, "kind", kind)
				continue
			}
		}
		candidates = append(candidates, common.CandidateEdge{
			ProjectID:      project.ID,
			Target:         sig.Target,
			Kind:           kind,
			Confidence:     Confidence(sig.Weight, len(sig.Channels)),
			Evidence:       sig.Evidence,
			Reinforces:     reinforces,
			LastEvidenceAt: sig.LastSeenAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].LastEvidenceAt.After(candidates[j].LastEvidenceAt)
	})
	return candidates, nil
}

func edgeKey(targetID string, kind common.EdgeKind) string {
	return targetID + "|" + string(kind)
}

// hasNewChannel reports whether any evidence item comes from a channel
// absent from the rejected edge's provenance.
func hasNewChannel(evidence []common.Evidence, seen map[string]bool) bool {
	for _, ev := range evidence {
		if !seen[ev.SourceType] {
			return true
		}
	}
	return false
}

// inferKind picks the edge kind from the target's entity kind and, for
// organizations, the language of the evidence.
func inferKind(sig common.Signal) common.EdgeKind {
	switch sig.Target.Kind {
	case common.KindPerson:
		return common.EdgeCollaboratesWith
	case common.KindProject:
		return common.EdgeCollaboratesWith
	case common.KindOrganization:
		if mentionsFunding(sig.Evidence) {
			return common.EdgeFunds
		}
		return common.EdgeMentions
	default:
		return common.EdgeMentions
	}
}

func mentionsFunding(evidence []common.Evidence) bool {
	for _, ev := range evidence {
		excerpt := strings.ToLower(ev.Excerpt)
		for _, word := range fundingVocabulary {
			if strings.Contains(excerpt, word) {
				return true
			}
		}
	}
	return false
}

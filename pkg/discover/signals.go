package discover

import (
	"sort"

	"github.com/act-placemat/loom/pkg/common"
)

// signalSet accumulates observations per target entity. Repeated sightings
// of the same target add weight to one signal instead of producing many.
type signalSet struct {
	projectID string
	byTarget  map[string]*common.Signal
}

func newSignalSet(projectID string) *signalSet {
	return &signalSet{
		projectID: projectID,
		byTarget:  make(map[string]*common.Signal),
	}
}

func (s *signalSet) add(target common.EntityRef, weight float64, channel string, evidence common.Evidence) {
	key := string(target.Kind) + "|" + target.ID
	sig, ok := s.byTarget[key]
	if !ok {
		sig = &common.Signal{Target: target}
		s.byTarget[key] = sig
	}
	sig.Weight += weight
	if !sig.HasChannel(channel) {
		sig.Channels = append(sig.Channels, channel)
	}
	sig.Evidence = common.MergeEvidence(sig.Evidence, []common.Evidence{evidence})
	if evidence.ObservedAt.After(sig.LastSeenAt) {
		sig.LastSeenAt = evidence.ObservedAt
	}
}

// list returns the accumulated signals, heaviest first for stable output.
func (s *signalSet) list() []common.Signal {
	out := make([]common.Signal, 0, len(s.byTarget))
	for _, sig := range s.byTarget {
		out = append(out, *sig)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Target.ID < out[j].Target.ID
	})
	return out
}

package common

import "sort"

// MergeEvidence appends new evidence to existing, drops exact duplicates
// by (source type, source id), and trims the result to MaxEvidencePerEdge
// keeping the most recently observed items.
func MergeEvidence(existing, incoming []Evidence) []Evidence {
	seen := make(map[string]bool, len(existing))
	merged := make([]Evidence, 0, len(existing)+len(incoming))

	for _, ev := range existing {
		key := ev.SourceType + "|" + ev.SourceID
		if !seen[key] {
			seen[key] = true
			merged = append(merged, ev)
		}
	}
	for _, ev := range incoming {
		key := ev.SourceType + "|" + ev.SourceID
		if !seen[key] {
			seen[key] = true
			merged = append(merged, ev)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ObservedAt.After(merged[j].ObservedAt)
	})
	if len(merged) > MaxEvidencePerEdge {
		merged = merged[:MaxEvidencePerEdge]
	}
	return merged
}

// LatestEvidence returns the most recent observation timestamp, or the
// zero time when the list is empty.
func LatestEvidence(evidence []Evidence) (latest Evidence, ok bool) {
	for _, ev := range evidence {
		if !ok || ev.ObservedAt.After(latest.ObservedAt) {
			latest = ev
			ok = true
		}
	}
	return latest, ok
}

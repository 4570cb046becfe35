package service

import (
	"codearena/internal/check/embed"
	"codearena/internal/check/model"
)

// entry is one embedded submission inside a problem batch.
type entry struct {
	member model.ClusterMember
	vector []float32
}

// suspiciousPairs compares every ordered pair of distinct users: each of
// A's vectors is matched against its single best hit among B's vectors, and
// the pair is emitted when that top score exceeds the threshold. Matching
// top-1 per query keeps one near-duplicate from producing a quadratic pair
// list, and grouping by user excludes a user's own resubmissions.
func suspiciousPairs(byUser map[string][]entry, userOrder []string, threshold float32) []model.SuspiciousPair {
	var pairs []model.SuspiciousPair
	seen := make(map[[2]string]bool)

	for _, a := range userOrder {
		for _, b := range userOrder {
			if a == b {
				continue
			}
			for _, query := range byUser[a] {
				best, ok := topMatch(query.vector, byUser[b])
				if !ok {
					continue
				}
				score := embed.Dot(query.vector, best.vector)
				if score <= threshold {
					continue
				}
				key := pairKey(query.member.SubmissionID, best.member.SubmissionID)
				if seen[key] {
					continue
				}
				seen[key] = true
				pairs = append(pairs, model.SuspiciousPair{
					First:      query.member,
					Second:     best.member,
					Similarity: score,
				})
			}
		}
	}
	return pairs
}

func topMatch(query []float32, candidates []entry) (entry, bool) {
	if len(candidates) == 0 {
		return entry{}, false
	}
	best := candidates[0]
	bestScore := embed.Dot(query, best.vector)
	for _, cand := range candidates[1:] {
		if score := embed.Dot(query, cand.vector); score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return best, true
}

// pairKey is order-independent so (A,B) and (B,A) dedup to one pair.
func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

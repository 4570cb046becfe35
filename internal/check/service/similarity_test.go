package service

import "testing"

func unit(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestSuspiciousPairsDetectsCopy(t *testing.T) {
	byUser := map[string][]entry{
		"u1": {{member: member("s1", "u1"), vector: unit(4, 0)}},
		"u2": {{member: member("s2", "u2"), vector: unit(4, 0)}},
	}

	pairs := suspiciousPairs(byUser, []string{"u1", "u2"}, 0.97)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].Similarity < 0.999 {
		t.Errorf("similarity = %v", pairs[0].Similarity)
	}
}

func TestSuspiciousPairsIgnoresDistinct(t *testing.T) {
	byUser := map[string][]entry{
		"u1": {{member: member("s1", "u1"), vector: unit(4, 0)}},
		"u2": {{member: member("s2", "u2"), vector: unit(4, 1)}},
	}

	if pairs := suspiciousPairs(byUser, []string{"u1", "u2"}, 0.97); len(pairs) != 0 {
		t.Errorf("orthogonal vectors should not pair: %v", pairs)
	}
}

func TestSuspiciousPairsTop1PerQuery(t *testing.T) {
	// u2 has two near copies of u1's submission; top-1 keeps one pair per
	// query instead of two.
	byUser := map[string][]entry{
		"u1": {{member: member("s1", "u1"), vector: unit(4, 0)}},
		"u2": {
			{member: member("s2", "u2"), vector: []float32{0.99, 0.141, 0, 0}},
			{member: member("s3", "u2"), vector: unit(4, 0)},
		},
	}

	pairs := suspiciousPairs(byUser, []string{"u1", "u2"}, 0.97)
	for _, p := range pairs {
		if p.First.UserID == "u1" && p.Second.SubmissionID == "s2" {
			t.Errorf("expected top match s3, got %v", p)
		}
	}
}

func TestSuspiciousPairsDedupsSymmetric(t *testing.T) {
	byUser := map[string][]entry{
		"u1": {{member: member("s1", "u1"), vector: unit(4, 0)}},
		"u2": {{member: member("s2", "u2"), vector: unit(4, 0)}},
	}

	pairs := suspiciousPairs(byUser, []string{"u1", "u2"}, 0.97)
	if len(pairs) != 1 {
		t.Errorf("symmetric pair should dedup, got %d", len(pairs))
	}
}

func TestSuspiciousPairsSameUserExcluded(t *testing.T) {
	byUser := map[string][]entry{
		"u1": {
			{member: member("s1", "u1"), vector: unit(4, 0)},
			{member: member("s2", "u1"), vector: unit(4, 0)},
		},
	}

	if pairs := suspiciousPairs(byUser, []string{"u1"}, 0.97); len(pairs) != 0 {
		t.Errorf("a user's own resubmissions must not pair: %v", pairs)
	}
}

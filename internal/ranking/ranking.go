package ranking

import (
	"cmp"
	"slices"

	"github.com/spigell/ups-ranker/internal/assessment"
)

// Less reports whether a sorts before b: final score desc, integrity desc, candidate id asc.
func Less(a, b assessment.CandidateScores) bool {
	return compare(a, b) < 0
}

func compare(a, b assessment.CandidateScores) int {
	if c := cmp.Compare(b.FinalScore, a.FinalScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.IntegrityRisk, a.IntegrityRisk); c != 0 {
		return c
	}
	return cmp.Compare(a.CandidateID, b.CandidateID)
}

// Rank orders scores and assigns positional ranks and UPS percentiles.
// The input slice is not modified.
func Rank(scores []assessment.CandidateScores) []assessment.RankedCandidate {
	n := len(scores)
	if n == 0 {
		return []assessment.RankedCandidate{}
	}

	sorted := slices.Clone(scores)
	slices.SortStableFunc(sorted, compare)

	ranked := make([]assessment.RankedCandidate, n)
	for i, s := range sorted {
		rank := i + 1
		ranked[i] = assessment.RankedCandidate{
			CandidateScores: s,
			Rank:            rank,
			UPSPercentile:   Percentile(rank, n),
		}
	}
	return ranked
}

// Percentile maps a 1-based rank in a cohort of n to (n-rank+1)/n*100.
func Percentile(rank, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n-rank+1) / float64(n) * 100
}

// Classify maps percentile and integrity to a recommendation.
// Failing the integrity gate always yields NotRecommended.
func Classify(percentile, integrity float64, t assessment.Thresholds) assessment.Recommendation {
	if integrity < t.IntegrityGate() {
		return assessment.NotRecommended
	}

	switch {
	case percentile >= t.StrongHirePercentileMin:
		return assessment.StrongHire
	case percentile >= t.ConditionalPercentileMin:
		return assessment.Conditional
	default:
		return assessment.NotRecommended
	}
}

// Recommend returns a copy of ranked with recommendations filled in.
func Recommend(ranked []assessment.RankedCandidate, t assessment.Thresholds) []assessment.RankedCandidate {
	out := slices.Clone(ranked)
	for i := range out {
		out[i].Recommendation = Classify(out[i].UPSPercentile, out[i].IntegrityRisk, t)
	}
	return out
}

package ranking

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/ups-ranker/internal/assessment"
)

func scores(vals ...assessment.CandidateScores) []assessment.CandidateScores { return vals }

func cs(id string, final, integrity float64) assessment.CandidateScores {
	return assessment.CandidateScores{
		CandidateID: id,
		Metrics:     assessment.Metrics{IntegrityRisk: integrity},
		FinalScore:  final,
	}
}

func TestRankOrderAndTieBreaks(t *testing.T) {
	in := scores(
		cs("C", 0.7, 0.9),
		cs("B", 0.7, 0.9),
		cs("A", 0.7, 0.5),
		cs("D", 0.9, 0.1),
	)

	ranked := Rank(in)

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.CandidateID)
	}
	assert.Equal(t, []string{"D", "B", "C", "A"}, ids)
	assert.Equal(t, "C", in[0].CandidateID, "input must not be reordered")

	assert.Equal(t, []float64{100, 75, 50, 25}, []float64{
		ranked[0].UPSPercentile, ranked[1].UPSPercentile, ranked[2].UPSPercentile, ranked[3].UPSPercentile,
	})
}

func TestRankPermutationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 1; n <= 40; n++ {
		in := make([]assessment.CandidateScores, n)
		for i := range in {
			in[i] = cs(fmt.Sprintf("C%03d", rng.Intn(1000)), float64(rng.Intn(5))/4, float64(rng.Intn(3))/2)
		}

		ranked := Rank(in)
		require.Len(t, ranked, n)

		seen := make(map[int]bool, n)
		for i, r := range ranked {
			assert.Equal(t, i+1, r.Rank)
			assert.False(t, seen[r.Rank])
			seen[r.Rank] = true
			assert.Equal(t, float64(n-r.Rank+1)/float64(n)*100, r.UPSPercentile)
			if i > 0 {
				assert.LessOrEqual(t, r.UPSPercentile, ranked[i-1].UPSPercentile)
				assert.False(t, Less(r.CandidateScores, ranked[i-1].CandidateScores))
			}
		}
		assert.Equal(t, 100.0, ranked[0].UPSPercentile)

		again := Rank(in)
		assert.Equal(t, ranked, again)
	}
}

func TestRankEmpty(t *testing.T) {
	ranked := Rank(nil)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
	assert.Equal(t, 0.0, Percentile(1, 0))
}

func TestClassify(t *testing.T) {
	th := assessment.DefaultRubric().Thresholds

	cases := []struct {
		name       string
		percentile float64
		integrity  float64
		want       assessment.Recommendation
	}{
		{"top", 100, 0.9, assessment.StrongHire},
		{"strong boundary", 85, 0.9, assessment.StrongHire},
		{"conditional", 84.9, 0.9, assessment.Conditional},
		{"conditional boundary", 60, 0.9, assessment.Conditional},
		{"below", 59.9, 0.9, assessment.NotRecommended},
		{"gate boundary passes", 100, 0.2, assessment.StrongHire},
		{"gate fails", 100, 0.19, assessment.NotRecommended},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.percentile, tc.integrity, th))
		})
	}
}

func TestClassifyMonotonicInPercentile(t *testing.T) {
	th := assessment.DefaultRubric().Thresholds
	order := map[assessment.Recommendation]int{
		assessment.NotRecommended: 0,
		assessment.Conditional:    1,
		assessment.StrongHire:     2,
	}

	for _, integrity := range []float64{0, 0.1, 0.2, 0.5, 1} {
		prev := -1
		for p := 0.0; p <= 100; p += 0.5 {
			got := order[Classify(p, integrity, th)]
			assert.GreaterOrEqual(t, got, prev, "percentile %v integrity %v", p, integrity)
			prev = got
			if integrity < th.IntegrityGate() {
				assert.Equal(t, 0, got)
			}
		}
	}
}

func TestRecommendReturnsCopy(t *testing.T) {
	ranked := Rank(scores(cs("A", 0.9, 0.9), cs("B", 0.5, 0.05)))
	out := Recommend(ranked, assessment.DefaultRubric().Thresholds)

	assert.Equal(t, assessment.StrongHire, out[0].Recommendation)
	assert.Equal(t, assessment.NotRecommended, out[1].Recommendation)
	assert.Empty(t, ranked[0].Recommendation)
}

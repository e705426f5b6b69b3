// Package scoring implements the five candidate metrics and their rubric aggregation.
// Every calculator is a pure, total function returning a finite value in [0,1].
package scoring

import (
	"math"
	"strings"

	"github.com/spigell/ups-ranker/internal/assessment"
	"go.uber.org/zap"
)

// Neutral is returned when a metric has no data to judge on.
const Neutral = 0.5

// keywordVocabulary is the reference list CV keywords are matched against.
var keywordVocabulary = map[string]struct{}{
	"python": {}, "pandas": {}, "numpy": {}, "scikit-learn": {}, "ml": {},
	"django": {}, "sql": {}, "tensorflow": {}, "pytorch": {}, "aws": {},
	"gcp": {}, "azure": {}, "java": {}, "spring": {}, "react": {},
}

const (
	maxProjects    = 3
	maxInternships = 2
	maxKeywords    = 6
	maxAttempts    = 8

	// speed is fixed while per-question timing is unavailable.
	neutralSpeed = 0.5
)

var verdictPenalty = map[assessment.Verdict]float64{
	assessment.VerdictNegligible: 0.1,
	assessment.VerdictMinor:      0.5,
	assessment.VerdictSevere:     1.0,
}

const defaultVerdictPenalty = 0.1

// SkillAlignment weights each section's normalized score by weight_in_section and by
// the JD weight of the section's skill. Sections whose skill has no JD weight are skipped.
func SkillAlignment(c *assessment.Candidate, ts assessment.TestStructure, jd *assessment.JDSettings, logger *zap.Logger) float64 {
	if jd == nil || len(jd.SkillWeights) == 0 {
		if logger != nil {
			logger.Error("jd settings or skill weights are missing, skill alignment is 0")
		}
		return 0
	}
	if c == nil {
		return 0
	}

	total := 0.0
	for _, section := range ts {
		if strings.TrimSpace(section.Skill) == "" {
			continue
		}
		jdWeight := jd.WeightFor(section.Skill)
		if !(jdWeight > 0) {
			continue
		}
		total += normalizedScore(c, section) * section.Weight() * jdWeight
	}

	return Clamp(total)
}

// KnowledgeEvidence scores CV evidence: projects, internships, GitHub presence and
// known keywords. Without a CV signal the result is Neutral.
func KnowledgeEvidence(cv *assessment.CvSignal) float64 {
	if cv == nil {
		return Neutral
	}

	projects := float64(min(max(cv.Projects, 0), maxProjects)) / maxProjects
	internships := float64(min(max(cv.Internships, 0), maxInternships)) / maxInternships
	github := 0.0
	if cv.GitHub {
		github = 1
	}
	keywords := float64(min(MatchedKeywords(cv.Keywords), maxKeywords)) / maxKeywords

	return Clamp(0.35*projects + 0.25*internships + 0.20*github + 0.20*keywords)
}

// MatchedKeywords counts keywords found in the reference vocabulary, case-insensitively.
func MatchedKeywords(keywords []string) int {
	matched := 0
	for _, k := range keywords {
		if _, ok := keywordVocabulary[assessment.NormalizeKey(k)]; ok {
			matched++
		}
	}
	return matched
}

// ProblemSolving rewards balanced section performance and few attempts.
func ProblemSolving(c *assessment.Candidate, ts assessment.TestStructure) float64 {
	scores := NormalizedScores(c, ts)
	if len(scores) == 0 {
		return Neutral
	}

	balance := 1 - StdDev(scores)
	attempts := 0
	if c != nil {
		attempts = max(c.Attempts, 0)
	}
	persistence := 1 - float64(min(attempts, maxAttempts))/maxAttempts

	return Clamp(0.6*balance + 0.4*persistence)
}

// EfficiencyConsistency blends a fixed neutral speed component with score consistency.
func EfficiencyConsistency(c *assessment.Candidate, ts assessment.TestStructure) float64 {
	scores := NormalizedScores(c, ts)
	if len(scores) == 0 {
		return Neutral
	}

	consistency := 1 - StdDev(scores)
	return Clamp(0.4*neutralSpeed + 0.6*consistency)
}

// IntegrityRisk is 1 minus the proctoring penalty; higher is safer.
// A plagiarism score, when present, is blended in at 30%.
func IntegrityRisk(c *assessment.Candidate) float64 {
	if c == nil {
		return Clamp(1 - defaultVerdictPenalty)
	}

	penalty, ok := verdictPenalty[c.ProctoringVerdict]
	if !ok {
		penalty = defaultVerdictPenalty
	}

	if c.PlagiarismScore != nil {
		plagiarism := Clamp(*c.PlagiarismScore)
		penalty = 0.7*penalty + 0.3*plagiarism
	}

	return Clamp(1 - Clamp(penalty))
}

// NormalizedScores returns each section's score divided by its max, in structure order.
// Missing section scores count as 0.
func NormalizedScores(c *assessment.Candidate, ts assessment.TestStructure) []float64 {
	out := make([]float64, 0, len(ts))
	for _, section := range ts {
		out = append(out, normalizedScore(c, section))
	}
	return out
}

func normalizedScore(c *assessment.Candidate, section assessment.Section) float64 {
	if c == nil {
		return 0
	}
	raw := c.Score(section.Key())
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	return raw / section.MaxScore()
}

// StdDev is the Bessel-corrected sample standard deviation. Fewer than two samples yield 0.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(n-1))
}

// Clamp bounds v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

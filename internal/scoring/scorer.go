package scoring

import (
	"github.com/spigell/ups-ranker/internal/assessment"
	"go.uber.org/zap"
)

// FinalScore combines the metrics with the rubric weights. Weights are not renormalized.
func FinalScore(m assessment.Metrics, w assessment.RubricWeights) float64 {
	return Clamp(m.SkillAlignment*w.SkillAlignment +
		m.KnowledgeEvidence*w.KnowledgeEvidence +
		m.ProblemSolving*w.ProblemSolving +
		m.EfficiencyConsistency*w.EfficiencyConsistency +
		m.IntegrityRisk*w.IntegrityRisk)
}

// Scorer computes CandidateScores for normalized candidates.
type Scorer struct {
	jd        *assessment.JDSettings
	rubric    assessment.Rubric
	structure assessment.TestStructure
	logger    *zap.Logger
}

func NewScorer(jd *assessment.JDSettings, rubric assessment.Rubric, structure assessment.TestStructure, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{jd: jd, rubric: rubric, structure: structure, logger: logger}
}

// Metrics evaluates all five calculators for one candidate.
func (s *Scorer) Metrics(c *assessment.Candidate, cv *assessment.CvSignal) assessment.Metrics {
	return assessment.Metrics{
		SkillAlignment:        SkillAlignment(c, s.structure, s.jd, s.logger),
		KnowledgeEvidence:     KnowledgeEvidence(cv),
		ProblemSolving:        ProblemSolving(c, s.structure),
		EfficiencyConsistency: EfficiencyConsistency(c, s.structure),
		IntegrityRisk:         IntegrityRisk(c),
	}
}

// Score returns the candidate's metrics and final score.
func (s *Scorer) Score(c *assessment.Candidate, cv *assessment.CvSignal) assessment.CandidateScores {
	metrics := s.Metrics(c, cv)
	scores := assessment.CandidateScores{
		Metrics:    metrics,
		FinalScore: FinalScore(metrics, s.rubric.Weights),
	}
	if c != nil {
		scores.CandidateID = c.ID
		scores.Name = c.Name
	}
	return scores
}

// ScoreAll scores candidates in input order. cvs is indexed like candidates; a nil
// slice or nil entry means no CV signal.
func (s *Scorer) ScoreAll(candidates []*assessment.Candidate, cvs []*assessment.CvSignal) []assessment.CandidateScores {
	out := make([]assessment.CandidateScores, 0, len(candidates))
	for i, c := range candidates {
		var cv *assessment.CvSignal
		if i < len(cvs) {
			cv = cvs[i]
		}
		scores := s.Score(c, cv)
		s.logger.Debug("candidate scored",
			zap.String("candidate_id", scores.CandidateID),
			zap.Float64("skill_alignment", scores.SkillAlignment),
			zap.Float64("knowledge_evidence", scores.KnowledgeEvidence),
			zap.Float64("problem_solving", scores.ProblemSolving),
			zap.Float64("efficiency_consistency", scores.EfficiencyConsistency),
			zap.Float64("integrity_risk", scores.IntegrityRisk),
			zap.Float64("final_score", scores.FinalScore),
		)
		out = append(out, scores)
	}
	return out
}

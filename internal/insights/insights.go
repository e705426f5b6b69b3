// Package insights attaches strengths and risks text to ranked candidates.
package insights

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/ups-ranker/internal/ai"
	"github.com/spigell/ups-ranker/internal/assessment"
	"github.com/spigell/ups-ranker/internal/logger"
)

const (
	NoStrengths = "No specific strengths automatically identified. Requires manual review."
	NoRisks     = "No specific risks automatically identified. Requires manual review."
)

// Enricher asks an InsightGenerator for every candidate and falls back to
// rule-based text when the generator is missing, fails or answers blank.
type Enricher struct {
	generator   ai.InsightGenerator
	structure   assessment.TestStructure
	thresholds  assessment.Thresholds
	concurrency int
	logger      *zap.Logger
}

// NewEnricher builds an Enricher. A concurrency of zero or less means unlimited.
func NewEnricher(generator ai.InsightGenerator, structure assessment.TestStructure, thresholds assessment.Thresholds, concurrency int, log *zap.Logger) *Enricher {
	return &Enricher{
		generator:   generator,
		structure:   structure,
		thresholds:  thresholds,
		concurrency: concurrency,
		logger:      logger.OrNop(log),
	}
}

// Enrich returns a copy of ranked with KeyStrengths and KeyRisks filled in. Order is kept.
// It never fails.
func (e *Enricher) Enrich(ctx context.Context, ranked []assessment.RankedCandidate) []assessment.RankedCandidate {
	if len(ranked) == 0 {
		return []assessment.RankedCandidate{}
	}
	out := slices.Clone(ranked)

	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	for i := range out {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("insight generator panicked, using fallback",
						append(logger.CandidateFields(out[i].CandidateID, out[i].Name), zap.Any("panic", r))...)
					out[i].KeyStrengths, out[i].KeyRisks = Fallback(out[i].Metrics, e.thresholds)
				}
			}()
			out[i].KeyStrengths, out[i].KeyRisks = e.insightsFor(gctx, out[i])
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Enricher) insightsFor(ctx context.Context, c assessment.RankedCandidate) (string, string) {
	fallbackStrengths, fallbackRisks := Fallback(c.Metrics, e.thresholds)
	log := e.logger.With(logger.CandidateFields(c.CandidateID, c.Name)...)

	if e.generator == nil {
		return fallbackStrengths, fallbackRisks
	}

	insights, err := e.generator.GenerateInsights(ctx, Summary(c, e.structure))
	if err == nil && insights == nil {
		err = errors.New("generator returned no insights")
	}
	if err != nil {
		log.Warn("insight generation failed, using fallback", zap.Error(err))
		return fallbackStrengths, fallbackRisks
	}

	strengths := strings.TrimSpace(insights.KeyStrengths)
	risks := strings.TrimSpace(insights.KeyRisks)
	if strengths == "" && risks == "" {
		log.Warn("insight generator returned blank text, using fallback")
		return fallbackStrengths, fallbackRisks
	}
	if strengths == "" {
		strengths = fallbackStrengths
	}
	if risks == "" {
		risks = fallbackRisks
	}
	return strengths, risks
}

// Summary builds the generator payload for a candidate. Test results cover every section
// of the structure keyed by section id, with missing scores as 0.
func Summary(c assessment.RankedCandidate, structure assessment.TestStructure) ai.CandidateSummary {
	results := make(map[string]float64, len(structure))
	for _, section := range structure {
		score := 0.0
		if c.Raw != nil {
			score = c.Raw.Score(section.Key())
		}
		results[section.ID] = score
	}

	summary := ai.CandidateSummary{
		CandidateID:           c.CandidateID,
		Name:                  c.Name,
		SkillAlignment:        c.SkillAlignment,
		KnowledgeEvidence:     c.KnowledgeEvidence,
		ProblemSolving:        c.ProblemSolving,
		EfficiencyConsistency: c.EfficiencyConsistency,
		IntegrityRisk:         c.IntegrityRisk,
		FinalScore:            c.FinalScore,
		UPSPercentile:         c.UPSPercentile,
		TestResults:           results,
	}
	if c.CV != nil {
		summary.CvSignals = &ai.CvSummary{
			Projects:    c.CV.Projects,
			Internships: c.CV.Internships,
			GitHub:      c.CV.GitHub,
			Keywords:    slices.Clone(c.CV.Keywords),
		}
	}
	return summary
}

// Fallback derives strengths and risks from the metrics alone.
func Fallback(m assessment.Metrics, t assessment.Thresholds) (string, string) {
	var strengths, risks []string

	if m.SkillAlignment > 0.75 {
		strengths = append(strengths, "Excellent alignment with required job skills based on test performance.")
	}
	if m.KnowledgeEvidence > 0.75 {
		strengths = append(strengths, "Strong evidence of practical knowledge from projects and experience.")
	}
	if m.ProblemSolving > 0.7 {
		strengths = append(strengths, "Good problem-solving and persistence demonstrated in test attempts.")
	}

	if m.SkillAlignment < 0.5 {
		risks = append(risks, "Potential gap in required job skills based on test performance.")
	}
	if m.KnowledgeEvidence < 0.5 {
		risks = append(risks, "Limited evidence of practical application or prior experience from CV.")
	}
	if m.IntegrityRisk < t.IntegrityGate() {
		risks = append(risks, "Possible integrity concerns due to proctoring flags.")
	}

	s, r := NoStrengths, NoRisks
	if len(strengths) > 0 {
		s = strings.Join(strengths, " ")
	}
	if len(risks) > 0 {
		r = strings.Join(risks, " ")
	}
	return s, r
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/ups-ranker/internal/assessment"
	"github.com/spigell/ups-ranker/internal/ingest"
	"github.com/spigell/ups-ranker/internal/insights"
	"github.com/spigell/ups-ranker/internal/logger"
	"github.com/spigell/ups-ranker/internal/ranking"
	"github.com/spigell/ups-ranker/internal/report"
	"github.com/spigell/ups-ranker/internal/scoring"
)

// Stage is a single step of the pipeline.
type Stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, deps Deps, s *State) (Step, error)
}

// Deps aggregates inputs shared across all stages.
type Deps struct {
	JD            *assessment.JDSettings
	Rubric        assessment.Rubric
	Structure     assessment.TestStructure
	Collaborators Collaborators
	Concurrency   int
	Clock         func() time.Time
	ID            func() string
	Logger        *zap.Logger
}

// State carries intermediate results between stages. Slices indexed by candidate
// (Candidates, CVs) share positions.
type State struct {
	Source     Source
	Candidates []*assessment.Candidate
	CVs        []*assessment.CvSignal
	Scores     []assessment.CandidateScores
	Ranked     []assessment.RankedCandidate
	Report     *assessment.FullReport
}

// Step describes the result of executing a stage.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
}

// DefaultStages returns the stages in execution order. The CV stage is disabled
// when no CV parser is configured.
func DefaultStages(collab Collaborators) []Stage {
	cv := &cvStage{}
	if collab.CV == nil {
		cv.Disable("cv parser is not configured")
	}

	return []Stage{
		&normalizeStage{},
		cv,
		&scoreStage{},
		&rankStage{},
		&recommendStage{},
		&insightsStage{},
		&assembleStage{},
	}
}

// Run executes the stages sequentially.
func Run(ctx context.Context, deps Deps, stages []Stage, s *State) error {
	log := logger.OrNop(deps.Logger)

	for _, stage := range stages {
		if !stage.IsEnabled() {
			log.Info("pipeline stage disabled", zap.String(logger.FieldStage, stage.Name()))
			continue
		}

		info, err := stage.Apply(ctx, deps, s)
		if err != nil {
			return fmt.Errorf("%s: %w", stage.Name(), err)
		}

		log.Info("pipeline step", logger.StageFields(stage.Name(), info.Initial, info.Dropped, info.Left)...)
	}
	return nil
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, stage := range stages {
		st := Status{Name: stage.Name(), Enabled: stage.IsEnabled()}
		if r, ok := stage.(interface{ Reason() string }); ok {
			st.Reason = r.Reason()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// toggle implements the Disable/IsEnabled half of Stage.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) Reason() string { return t.reason }

type normalizeStage struct{ toggle }

func (*normalizeStage) Name() string { return "normalize" }

func (*normalizeStage) Apply(_ context.Context, deps Deps, s *State) (Step, error) {
	candidates, err := ingest.ParseCandidates(s.Source.Data, s.Source.Format, deps.Structure, deps.Logger)
	if err != nil {
		return Step{}, err
	}
	s.Candidates = candidates
	return Step{Initial: len(candidates), Left: len(candidates)}, nil
}

type cvStage struct{ toggle }

func (*cvStage) Name() string { return "cv_signals" }

// Apply resolves and parses every candidate's resume concurrently. Any failure leaves
// that candidate without a CV signal.
func (*cvStage) Apply(ctx context.Context, deps Deps, s *State) (Step, error) {
	cvs := make([]*assessment.CvSignal, len(s.Candidates))
	parser := deps.Collaborators.CV
	resolver := deps.Collaborators.Resumes

	g, gctx := errgroup.WithContext(ctx)
	if deps.Concurrency > 0 {
		g.SetLimit(deps.Concurrency)
	}

	for i, c := range s.Candidates {
		if c.Resume == "" {
			continue
		}
		g.Go(func() error {
			log := logger.OrNop(deps.Logger).With(logger.CandidateFields(c.ID, c.Name)...)
			defer func() {
				if r := recover(); r != nil {
					log.Error("cv collaborator panicked, no cv signal", zap.Any("panic", r))
					cvs[i] = nil
				}
			}()

			text := c.Resume
			if resolver != nil {
				resolved, err := resolver.Resolve(gctx, c.Resume)
				if err != nil {
					log.Warn("resolving resume failed, no cv signal", zap.Error(err))
					return nil
				}
				text = resolved
			}

			cv, err := parser.ParseCV(gctx, text)
			if err != nil || cv == nil {
				log.Warn("parsing cv failed, no cv signal", zap.Error(err))
				return nil
			}
			cv.CandidateID = c.ID
			cvs[i] = cv
			return nil
		})
	}
	_ = g.Wait()

	s.CVs = cvs

	parsed := 0
	for _, cv := range cvs {
		if cv != nil {
			parsed++
		}
	}
	return Step{Initial: len(cvs), Dropped: len(cvs) - parsed, Left: parsed}, nil
}

type scoreStage struct{ toggle }

func (*scoreStage) Name() string { return "score" }

func (*scoreStage) Apply(_ context.Context, deps Deps, s *State) (Step, error) {
	scorer := scoring.NewScorer(deps.JD, deps.Rubric, deps.Structure, deps.Logger)
	s.Scores = scorer.ScoreAll(s.Candidates, s.CVs)
	return Step{Initial: len(s.Candidates), Left: len(s.Scores)}, nil
}

type rankStage struct{ toggle }

func (*rankStage) Name() string { return "rank" }

func (*rankStage) Apply(_ context.Context, _ Deps, s *State) (Step, error) {
	ranked := ranking.Rank(s.Scores)

	byID := make(map[string]int, len(s.Candidates))
	for i, c := range s.Candidates {
		byID[c.ID] = i
	}
	for i := range ranked {
		idx, ok := byID[ranked[i].CandidateID]
		if !ok {
			continue
		}
		ranked[i].Raw = s.Candidates[idx]
		if idx < len(s.CVs) {
			ranked[i].CV = s.CVs[idx]
		}
	}

	s.Ranked = ranked
	return Step{Initial: len(s.Scores), Left: len(ranked)}, nil
}

type recommendStage struct{ toggle }

func (*recommendStage) Name() string { return "recommend" }

func (*recommendStage) Apply(_ context.Context, deps Deps, s *State) (Step, error) {
	s.Ranked = ranking.Recommend(s.Ranked, deps.Rubric.Thresholds)

	flagged := 0
	for _, c := range s.Ranked {
		if c.Recommendation == assessment.NotRecommended {
			flagged++
		}
	}
	return Step{Initial: len(s.Ranked), Dropped: flagged, Left: len(s.Ranked) - flagged}, nil
}

type insightsStage struct{ toggle }

func (*insightsStage) Name() string { return "insights" }

func (*insightsStage) Apply(ctx context.Context, deps Deps, s *State) (Step, error) {
	enricher := insights.NewEnricher(deps.Collaborators.Insights, deps.Structure, deps.Rubric.Thresholds, deps.Concurrency, deps.Logger)
	s.Ranked = enricher.Enrich(ctx, s.Ranked)
	return Step{Initial: len(s.Ranked), Left: len(s.Ranked)}, nil
}

type assembleStage struct{ toggle }

func (*assembleStage) Name() string { return "assemble" }

func (*assembleStage) Apply(_ context.Context, deps Deps, s *State) (Step, error) {
	assembler := report.NewAssembler()
	if deps.Clock != nil {
		assembler.Clock = deps.Clock
	}
	if deps.ID != nil {
		assembler.ID = deps.ID
	}

	s.Report = assembler.Assemble(deps.JD.Role, s.Ranked)
	return Step{Initial: len(s.Ranked), Left: len(s.Report.ExecutiveSummary)}, nil
}

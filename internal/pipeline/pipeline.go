// Package pipeline wires normalization, scoring, ranking, classification, insight
// enrichment and assembly into a single Process call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/ai"
	"github.com/spigell/ups-ranker/internal/assessment"
	"github.com/spigell/ups-ranker/internal/ingest"
	"github.com/spigell/ups-ranker/internal/logger"
)

// ErrMissingJDSettings is returned when no JD settings are supplied.
var ErrMissingJDSettings = errors.New("jd settings are missing")

// ResumeResolver turns a candidate's resume reference into text.
type ResumeResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Collaborators are the pluggable external capabilities. Any of them may be nil.
type Collaborators struct {
	Insights ai.InsightGenerator
	CV       ai.CVParser
	Resumes  ResumeResolver
}

// Source is the raw candidate input.
type Source struct {
	Data   []byte
	Format ingest.Format
}

// Options tune a Process run.
type Options struct {
	// Concurrency limits parallel collaborator calls; zero or less means unlimited.
	Concurrency int
	Clock       func() time.Time
	ID          func() string
	Logger      *zap.Logger
}

// Process runs the whole pipeline over one candidate batch.
// Only fatal input errors are returned; collaborator failures are absorbed.
func Process(ctx context.Context, jd *assessment.JDSettings, rubric assessment.Rubric, structure assessment.TestStructure, source Source, collab Collaborators, opts Options) (*assessment.FullReport, error) {
	log := logger.OrNop(opts.Logger)

	if jd == nil {
		return nil, ErrMissingJDSettings
	}
	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	if !rubric.WeightsBalanced() {
		log.Warn("rubric weights do not sum to 1, final scores are not renormalized",
			zap.Float64("sum", rubric.Weights.Sum()),
		)
	}
	if len(structure) == 0 {
		return nil, errors.New("test structure has no sections")
	}

	state := &State{Source: source}
	deps := Deps{
		JD:            jd,
		Rubric:        rubric,
		Structure:     structure,
		Collaborators: collab,
		Concurrency:   opts.Concurrency,
		Clock:         opts.Clock,
		ID:            opts.ID,
		Logger:        log,
	}

	if err := Run(ctx, deps, DefaultStages(collab), state); err != nil {
		return nil, fmt.Errorf("could not generate report: %w", err)
	}

	return state.Report, nil
}

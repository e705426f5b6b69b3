package assessment

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RubricWeights are the macro weights of the five metrics. They should sum to 1.
type RubricWeights struct {
	SkillAlignment        float64 `yaml:"skill_alignment" json:"skill_alignment" mapstructure:"skill_alignment" validate:"gte=0,lte=1"`
	KnowledgeEvidence     float64 `yaml:"knowledge_evidence" json:"knowledge_evidence" mapstructure:"knowledge_evidence" validate:"gte=0,lte=1"`
	ProblemSolving        float64 `yaml:"problem_solving" json:"problem_solving" mapstructure:"problem_solving" validate:"gte=0,lte=1"`
	EfficiencyConsistency float64 `yaml:"efficiency_consistency" json:"efficiency_consistency" mapstructure:"efficiency_consistency" validate:"gte=0,lte=1"`
	IntegrityRisk         float64 `yaml:"integrity_risk" json:"integrity_risk" mapstructure:"integrity_risk" validate:"gte=0,lte=1"`
}

// Sum returns the total of the five weights.
func (w RubricWeights) Sum() float64 {
	return w.SkillAlignment + w.KnowledgeEvidence + w.ProblemSolving + w.EfficiencyConsistency + w.IntegrityRisk
}

// Thresholds control the recommendation classifier.
type Thresholds struct {
	StrongHirePercentileMin  float64 `yaml:"strong_hire_percentile_min" json:"strong_hire_percentile_min" mapstructure:"strong_hire_percentile_min" validate:"gte=0,lte=100,gtefield=ConditionalPercentileMin"`
	ConditionalPercentileMin float64 `yaml:"conditional_percentile_min" json:"conditional_percentile_min" mapstructure:"conditional_percentile_min" validate:"gte=0,lte=100"`
	// RedFlagIntegrityMax is the maximum tolerated integrity risk; candidates gate on 1 - RedFlagIntegrityMax.
	RedFlagIntegrityMax float64 `yaml:"red_flag_integrity_max" json:"red_flag_integrity_max" mapstructure:"red_flag_integrity_max" validate:"gte=0,lte=1"`
}

// IntegrityGate is the minimum integrity score a candidate needs for a positive recommendation.
func (t Thresholds) IntegrityGate() float64 {
	return 1 - t.RedFlagIntegrityMax
}

// Rubric is the configurable weighting of metrics plus recommendation thresholds.
type Rubric struct {
	Weights    RubricWeights `yaml:"rubric_weights" json:"rubric_weights" mapstructure:"rubric_weights"`
	Thresholds Thresholds    `yaml:"thresholds" json:"thresholds" mapstructure:"thresholds"`
}

// DefaultRubric returns the 40/20/20/10/10 weighting with 85/60/0.8 thresholds.
func DefaultRubric() Rubric {
	return Rubric{
		Weights: RubricWeights{
			SkillAlignment:        0.4,
			KnowledgeEvidence:     0.2,
			ProblemSolving:        0.2,
			EfficiencyConsistency: 0.1,
			IntegrityRisk:         0.1,
		},
		Thresholds: Thresholds{
			StrongHirePercentileMin:  85,
			ConditionalPercentileMin: 60,
			RedFlagIntegrityMax:      0.8,
		},
	}
}

const weightSumTolerance = 1e-6

// WeightsBalanced reports whether rubric weights sum to 1 within tolerance.
func (r Rubric) WeightsBalanced() bool {
	return math.Abs(r.Weights.Sum()-1) <= weightSumTolerance
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges of the rubric. It does not require weights to sum to 1.
func (r Rubric) Validate() error {
	return describeValidation("rubric", validate.Struct(r))
}

// Validate checks that JD settings carry at least one skill weight in range.
func (jd *JDSettings) Validate() error {
	if jd == nil {
		return errors.New("jd settings are required")
	}
	if err := describeValidation("jd settings", validate.Struct(jd)); err != nil {
		return err
	}

	seen := make(map[string]string, len(jd.SkillWeights))
	names := slices.Sorted(maps.Keys(jd.SkillWeights))
	for _, name := range names {
		key := NormalizeKey(name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("invalid jd settings: skills %q and %q differ only by case or spacing", prev, name)
		}
		seen[key] = name
	}
	return nil
}

func describeValidation(subject string, err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", subject, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid %s: %s", subject, strings.Join(msgs, "; "))
}

package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spigell/ups-ranker/internal/assessment"
	"github.com/spigell/ups-ranker/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompts/insights.md
var insightsTemplate string

//go:embed prompts/cv.md
var cvTemplate string

//go:embed prompts/jd.md
var jdTemplate string

//go:embed prompts/structure.md
var structureTemplate string

const defaultMaxLogLength = 200

// Assistant implements the collaborator interfaces on top of any text Generator.
type Assistant struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

var (
	_ InsightGenerator   = (*Assistant)(nil)
	_ CVParser           = (*Assistant)(nil)
	_ JDWeigher          = (*Assistant)(nil)
	_ StructureGenerator = (*Assistant)(nil)
)

func NewAssistant(generator Generator, logger *zap.Logger, maxLogLength int) *Assistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// GenerateInsights asks the model for a strengths/risks summary of one candidate.
func (a *Assistant) GenerateInsights(ctx context.Context, summary CandidateSummary) (*Insights, error) {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate summary: %w", err)
	}

	raw, err := a.generate(ctx, "insights", summary.CandidateID, fill(insightsTemplate, map[string]string{
		"{{CANDIDATE_JSON}}": string(payload),
	}))
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	return &Insights{
		KeyStrengths: coerceString(data["keyStrengths"]),
		KeyRisks:     coerceString(data["keyRisks"]),
		Raw:          raw,
	}, nil
}

// ParseCV extracts a CvSignal from resume text. The candidate id is left for the caller.
func (a *Assistant) ParseCV(ctx context.Context, resumeText string) (*assessment.CvSignal, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, errors.New("resume text must not be empty")
	}

	raw, err := a.generate(ctx, "cv", "", fill(cvTemplate, map[string]string{
		"{{RESUME_TEXT}}": resumeText,
	}))
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	return &assessment.CvSignal{
		Projects:    coerceCount(data["projects"]),
		Internships: coerceCount(data["internships"]),
		GitHub:      coerceBool(data["github"]),
		Keywords:    coerceStrings(data["keywords"]),
	}, nil
}

// GenerateJDWeights drafts JD settings for the requested skills.
// Weights for skills the model did not mention are set to 0.
func (a *Assistant) GenerateJDWeights(ctx context.Context, req JDRequest) (*assessment.JDSettings, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, errors.New("job description must not be empty")
	}
	if len(req.Skills) == 0 {
		return nil, errors.New("at least one skill is required")
	}

	raw, err := a.generate(ctx, "jd_weights", req.Role, fill(jdTemplate, map[string]string{
		"{{ROLE}}":            req.Role,
		"{{JOB_DESCRIPTION}}": req.JobDescription,
		"{{SKILLS}}":          strings.Join(req.Skills, ", "),
	}))
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	weights, _ := data["skill_weights"].(map[string]any)
	jd := &assessment.JDSettings{
		Role:         req.Role,
		SkillWeights: make(map[string]float64, len(req.Skills)),
	}
	if role := coerceString(data["role"]); role != "" {
		jd.Role = role
	}

	for _, skill := range req.Skills {
		jd.SkillWeights[skill] = 0
		for name, v := range weights {
			if assessment.NormalizeKey(name) != assessment.NormalizeKey(skill) {
				continue
			}
			if f := coerceFloat(v); !math.IsNaN(f) {
				jd.SkillWeights[skill] = f
			}
		}
	}

	return jd, nil
}

// GenerateTestStructure maps platform problems to test sections. Sections without an id
// or repeating an earlier id are dropped; weights are clamped to [0, 1].
func (a *Assistant) GenerateTestStructure(ctx context.Context, problemsJSON string) (assessment.TestStructure, error) {
	problemsJSON = strings.TrimSpace(problemsJSON)
	if problemsJSON == "" {
		return nil, errors.New("problems json must not be empty")
	}
	if !json.Valid([]byte(problemsJSON)) {
		return nil, errors.New("problems json is not valid json")
	}

	raw, err := a.generate(ctx, "test_structure", "", fill(structureTemplate, map[string]string{
		"{{PROBLEMS_JSON}}": problemsJSON,
	}))
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	items, _ := data["sections"].([]any)
	structure := make(assessment.TestStructure, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := coerceString(fields["section_id"])
		if id == "" {
			continue
		}
		if _, dup := seen[assessment.NormalizeKey(id)]; dup {
			a.logger.Warn("dropping duplicate generated section", zap.String("section_id", id))
			continue
		}
		seen[assessment.NormalizeKey(id)] = struct{}{}

		weight := coerceFloat(fields["weight_in_section"])
		if math.IsNaN(weight) {
			weight = 0
		}
		structure = append(structure, assessment.Section{
			ID:              id,
			Name:            coerceString(fields["section_name"]),
			Skill:           coerceString(fields["skill"]),
			WeightInSection: min(max(weight, 0), 1),
		})
	}

	if len(structure) == 0 {
		return nil, errors.New("model returned no sections")
	}
	return structure, nil
}

func (a *Assistant) generate(ctx context.Context, kind, subject, prompt string) (string, error) {
	if a == nil || a.generator == nil {
		return "", errors.New("ai generator is not configured")
	}

	a.logger.Debug("generate content request",
		zap.String("kind", kind),
		zap.String("subject", subject),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	a.logger.Debug("generate content response",
		zap.String("kind", kind),
		zap.String("subject", subject),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return raw, nil
}

func fill(template string, values map[string]string) string {
	out := template
	for placeholder, value := range values {
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}

func decodeObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	return data, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceCount(v any) int {
	f := coerceFloat(v)
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	return int(math.Round(f))
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		out := make([]string, 0)
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

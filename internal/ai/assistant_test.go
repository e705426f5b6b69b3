package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ups-ranker/internal/assessment"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestGenerateInsights(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"keyStrengths\": \" Strong SQL \", \"keyRisks\": [\"Slow\", \"Few projects\"]}\n```"}
	assistant := NewAssistant(stub, zap.NewNop(), 0)

	insights, err := assistant.GenerateInsights(context.Background(), CandidateSummary{
		CandidateID:    "CAND001",
		Name:           "Alice",
		SkillAlignment: 0.8,
		TestResults:    map[string]float64{"S1": 85},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if insights.KeyStrengths != "Strong SQL" {
		t.Fatalf("unexpected strengths: %q", insights.KeyStrengths)
	}
	if insights.KeyRisks != "Slow Few projects" {
		t.Fatalf("unexpected risks: %q", insights.KeyRisks)
	}
	if !strings.Contains(stub.lastPrompt, `"candidateId": "CAND001"`) {
		t.Fatalf("expected candidate payload in prompt, got: %s", stub.lastPrompt)
	}
	if strings.Contains(stub.lastPrompt, "{{CANDIDATE_JSON}}") {
		t.Fatalf("placeholder left in prompt")
	}
}

func TestGenerateInsightsPropagatesErrors(t *testing.T) {
	assistant := NewAssistant(&stubGenerator{err: errors.New("quota")}, nil, 0)
	if _, err := assistant.GenerateInsights(context.Background(), CandidateSummary{}); err == nil {
		t.Fatal("expected generator error")
	}

	assistant = NewAssistant(&stubGenerator{response: "not json"}, nil, 0)
	if _, err := assistant.GenerateInsights(context.Background(), CandidateSummary{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseCV(t *testing.T) {
	stub := &stubGenerator{response: `{"projects": "4", "internships": 1.6, "github": "yes", "keywords": ["Python", " ", "AWS"]}`}
	assistant := NewAssistant(stub, nil, 0)

	cv, err := assistant.ParseCV(context.Background(), "Built things. github.com/alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cv.Projects != 4 || cv.Internships != 2 || !cv.GitHub {
		t.Fatalf("unexpected cv signal: %+v", cv)
	}
	if diff := cmp.Diff([]string{"Python", "AWS"}, cv.Keywords); diff != "" {
		t.Fatalf("keywords mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stub.lastPrompt, "github.com/alice") {
		t.Fatalf("expected resume text in prompt")
	}
}

func TestParseCVRejectsEmptyText(t *testing.T) {
	stub := &stubGenerator{}
	if _, err := NewAssistant(stub, nil, 0).ParseCV(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty resume")
	}
	if stub.lastPrompt != "" {
		t.Fatal("generator must not be called for empty resume")
	}
}

func TestGenerateJDWeights(t *testing.T) {
	stub := &stubGenerator{response: `{"role": "Data Scientist", "skill_weights": {"Python": 0.6, "sql": "0.4", "extra": 1}}`}
	assistant := NewAssistant(stub, nil, 0)

	jd, err := assistant.GenerateJDWeights(context.Background(), JDRequest{
		Role:           "Data Scientist",
		JobDescription: "We need Python and SQL.",
		Skills:         []string{"python", "sql", "statistics"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]float64{"python": 0.6, "sql": 0.4, "statistics": 0}
	if diff := cmp.Diff(want, jd.SkillWeights); diff != "" {
		t.Fatalf("weights mismatch (-want +got):\n%s", diff)
	}
	if jd.Role != "Data Scientist" {
		t.Fatalf("unexpected role %q", jd.Role)
	}
	if !strings.Contains(stub.lastPrompt, "python, sql, statistics") {
		t.Fatalf("expected skills in prompt")
	}
}

func TestGenerateJDWeightsValidatesRequest(t *testing.T) {
	assistant := NewAssistant(&stubGenerator{}, nil, 0)

	if _, err := assistant.GenerateJDWeights(context.Background(), JDRequest{Skills: []string{"go"}}); err == nil {
		t.Fatal("expected error for empty job description")
	}
	if _, err := assistant.GenerateJDWeights(context.Background(), JDRequest{JobDescription: "jd"}); err == nil {
		t.Fatal("expected error for empty skills")
	}
}

func TestGenerateTestStructure(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{"sections": [
		{"section_id": "two-sum", "section_name": "Two Sum", "skill": "Python", "weight_in_section": 0.8},
		{"section_id": "mcq-sql", "section_name": "SQL basics", "skill": ["SQL"], "weight_in_section": "1.5"},
		{"section_id": "TWO-SUM", "section_name": "again", "skill": "Go", "weight_in_section": 1},
		{"section_name": "no id", "skill": "Java"},
		"garbage"
	]}` + "\n```"}
	assistant := NewAssistant(stub, nil, 0)

	problems := `[{"problem_slug": "two-sum", "problem_name": "Two Sum", "problem_type": "Coding", "problem_score": 80}]`
	structure, err := assistant.GenerateTestStructure(context.Background(), problems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []assessment.Section{
		{ID: "two-sum", Name: "Two Sum", Skill: "Python", WeightInSection: 0.8},
		{ID: "mcq-sql", Name: "SQL basics", Skill: "SQL", WeightInSection: 1},
	}
	if diff := cmp.Diff(want, []assessment.Section(structure)); diff != "" {
		t.Fatalf("structure mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stub.lastPrompt, `"problem_slug": "two-sum"`) {
		t.Fatalf("expected problems in prompt")
	}
}

func TestGenerateTestStructureRejectsBadInput(t *testing.T) {
	assistant := NewAssistant(&stubGenerator{response: `{"sections": []}`}, nil, 0)

	for name, input := range map[string]string{
		"empty":       "  ",
		"not json":    "[{",
		"no sections": `[{"problem_slug": "x"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := assistant.GenerateTestStructure(context.Background(), input); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAssistantLogsTruncatedPreview(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	stub := &stubGenerator{response: `{"keyStrengths": "a", "keyRisks": "b"}`}
	assistant := NewAssistant(stub, zap.New(core), 10)

	if _, err := assistant.GenerateInsights(context.Background(), CandidateSummary{CandidateID: "C1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("generate content request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	preview, _ := entries[0].ContextMap()["prompt_preview"].(string)
	if len([]rune(preview)) != 13 {
		t.Fatalf("expected preview truncated to 10 runes plus ellipsis, got %q", preview)
	}
}

func TestAssistantWithoutGenerator(t *testing.T) {
	var assistant *Assistant
	if _, err := assistant.GenerateInsights(context.Background(), CandidateSummary{}); err == nil {
		t.Fatal("expected error from nil assistant")
	}
}

package ai

import (
	"context"

	"github.com/spigell/ups-ranker/internal/assessment"
)

// CandidateSummary is the per-candidate payload sent to an insight generator.
type CandidateSummary struct {
	CandidateID           string             `json:"candidateId"`
	Name                  string             `json:"name"`
	SkillAlignment        float64            `json:"skillAlignment"`
	KnowledgeEvidence     float64            `json:"knowledgeEvidence"`
	ProblemSolving        float64            `json:"problemSolving"`
	EfficiencyConsistency float64            `json:"efficiencyConsistency"`
	IntegrityRisk         float64            `json:"integrityRisk"`
	FinalScore            float64            `json:"finalScore"`
	UPSPercentile         float64            `json:"upsPercentile"`
	TestResults           map[string]float64 `json:"testResults"`
	CvSignals             *CvSummary         `json:"cvSignals,omitempty"`
}

// CvSummary is the CV signal as shown to the insight generator.
type CvSummary struct {
	Projects    int      `json:"projects"`
	Internships int      `json:"internships"`
	GitHub      bool     `json:"github"`
	Keywords    []string `json:"keywords"`
}

// Insights are free-text strengths and risks for one candidate.
type Insights struct {
	KeyStrengths string `json:"keyStrengths"`
	KeyRisks     string `json:"keyRisks"`
	Raw          string `json:"-"`
}

// JDRequest asks for skill weights derived from a job description.
type JDRequest struct {
	Role           string   `json:"role"`
	JobDescription string   `json:"jobDescription"`
	Skills         []string `json:"skills"`
}

// InsightGenerator produces strengths and risks for a candidate. It may fail.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, summary CandidateSummary) (*Insights, error)
}

// CVParser extracts structured signals from resume text. It may fail.
type CVParser interface {
	ParseCV(ctx context.Context, resumeText string) (*assessment.CvSignal, error)
}

// JDWeigher drafts JD skill weights from free-form job description text.
type JDWeigher interface {
	GenerateJDWeights(ctx context.Context, req JDRequest) (*assessment.JDSettings, error)
}

// StructureGenerator drafts a test structure from the platform's problems JSON.
type StructureGenerator interface {
	GenerateTestStructure(ctx context.Context, problemsJSON string) (assessment.TestStructure, error)
}

// Generator is a text-in text-out LLM backend.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

package assessment

import (
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	// DefaultProblemScore is the max raw score of a section without an explicit problem_score.
	DefaultProblemScore = 100.0
	// DefaultWeightInSection is used when weight_in_section is missing or zero.
	DefaultWeightInSection = 1.0
)

// JDSettings holds the per-skill importance weights derived from a job description.
type JDSettings struct {
	Role         string             `yaml:"role" json:"role" validate:"omitempty"`
	SkillWeights map[string]float64 `yaml:"skill_weights" json:"skill_weights" validate:"required,min=1,dive,keys,required,endkeys,gte=0,lte=1"`
}

// WeightFor returns the JD weight for a skill, matched case-insensitively.
func (jd *JDSettings) WeightFor(skill string) float64 {
	if jd == nil {
		return 0
	}
	key := NormalizeKey(skill)
	if key == "" {
		return 0
	}
	if weight, ok := jd.SkillWeights[skill]; ok {
		return weight
	}
	// Unvalidated settings may hold colliding keys; the first in sorted order wins.
	for _, name := range slices.Sorted(maps.Keys(jd.SkillWeights)) {
		if NormalizeKey(name) == key {
			return jd.SkillWeights[name]
		}
	}
	return 0
}

// Section is one scored unit of the assessment.
type Section struct {
	ID              string   `json:"section_id"`
	Name            string   `json:"section_name"`
	Skill           string   `json:"skill"`
	WeightInSection float64  `json:"weight_in_section"`
	ProblemScore    float64  `json:"problem_score"`
	CorrectAnswer   []string `json:"correct_answer,omitempty"`
}

// Key is the lower-cased section id used to address candidate scores.
func (s Section) Key() string {
	return NormalizeKey(s.ID)
}

// MaxScore returns the section's max achievable raw score, defaulting to 100.
func (s Section) MaxScore() float64 {
	if s.ProblemScore > 0 {
		return s.ProblemScore
	}
	return DefaultProblemScore
}

// Weight returns weight_in_section, treating a missing value as 1.0.
func (s Section) Weight() float64 {
	if s.WeightInSection > 0 {
		return s.WeightInSection
	}
	return DefaultWeightInSection
}

// TestStructure is the ordered list of sections of an assessment.
type TestStructure []Section

// Find looks a section up by id, case-insensitively.
func (ts TestStructure) Find(id string) (Section, bool) {
	key := NormalizeKey(id)
	for _, s := range ts {
		if s.Key() == key {
			return s, true
		}
	}
	return Section{}, false
}

// FindByName looks a section up by its section_name (exact match after trimming).
func (ts TestStructure) FindByName(name string) (Section, bool) {
	name = strings.TrimSpace(name)
	for _, s := range ts {
		if strings.TrimSpace(s.Name) == name {
			return s, true
		}
	}
	return Section{}, false
}

// Keys returns the lower-cased section ids in structure order.
func (ts TestStructure) Keys() []string {
	keys := make([]string, 0, len(ts))
	for _, s := range ts {
		keys = append(keys, s.Key())
	}
	return keys
}

// Skills returns the distinct skills of the structure in first-seen order.
func (ts TestStructure) Skills() []string {
	seen := make(map[string]struct{}, len(ts))
	skills := make([]string, 0, len(ts))
	for _, s := range ts {
		key := NormalizeKey(s.Skill)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, strings.TrimSpace(s.Skill))
	}
	return skills
}

// Candidate is the uniform per-candidate record produced by the normalizer.
type Candidate struct {
	ID                string        `json:"candidate_id"`
	Name              string        `json:"name"`
	Email             string        `json:"email,omitempty"`
	Attempts          int           `json:"attempts"`
	TotalTimeSec      float64       `json:"total_time_sec"`
	ProctoringVerdict Verdict       `json:"proctoring_verdict"`
	PlagiarismScore   *float64      `json:"plagiarism_score,omitempty"`
	Resume            string        `json:"resume,omitempty"`
	Sections          SectionScores `json:"sections"`
}

// Score returns the candidate's raw score for a section id, zero when missing.
func (c *Candidate) Score(sectionID string) float64 {
	v, _ := c.Sections.Get(sectionID)
	return v
}

// CvSignal is the structured summary extracted from a candidate's resume.
type CvSignal struct {
	CandidateID string   `json:"candidate_id"`
	Projects    int      `json:"projects"`
	Internships int      `json:"internships"`
	GitHub      bool     `json:"github"`
	Keywords    []string `json:"keywords"`
}

// Metrics are the five rubric dimensions of a candidate, each in [0,1].
type Metrics struct {
	SkillAlignment        float64 `json:"skill_alignment"`
	KnowledgeEvidence     float64 `json:"knowledge_evidence"`
	ProblemSolving        float64 `json:"problem_solving"`
	EfficiencyConsistency float64 `json:"efficiency_consistency"`
	IntegrityRisk         float64 `json:"integrity_risk"`
}

// CandidateScores is a candidate's identity plus the metrics and final score.
type CandidateScores struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Metrics
	FinalScore float64 `json:"final_score"`
}

// RankedCandidate is a scored candidate placed in the final ordering.
type RankedCandidate struct {
	CandidateScores
	Rank           int            `json:"rank"`
	UPSPercentile  float64        `json:"UPS_percentile"`
	Recommendation Recommendation `json:"recommendation"`
	KeyStrengths   string         `json:"key_strengths"`
	KeyRisks       string         `json:"key_risks"`
	Raw            *Candidate     `json:"raw_candidate_data,omitempty"`
	CV             *CvSignal      `json:"raw_cv_data,omitempty"`
}

// Totals aggregates counts over a report.
type Totals struct {
	Candidates   int `json:"candidates"`
	StrongHires  int `json:"strong_hires"`
	Conditionals int `json:"conditionals"`
}

// FullReport is the final ranked candidate report.
type FullReport struct {
	ID               string            `json:"report_id"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Role             string            `json:"role"`
	Totals           Totals            `json:"totals"`
	ExecutiveSummary []RankedCandidate `json:"executive_summary"`
}

// NormalizeKey trims and lower-cases identifiers such as section ids and skill names.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

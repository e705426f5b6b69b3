package ingest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/assessment"
)

//go:embed schemas/platform_record.json
var platformSchemaJSON string

var (
	platformSchemaOnce sync.Once
	platformSchema     *gojsonschema.Schema
	platformSchemaErr  error
)

// PlatformRecord is one solution entry of a platform export.
type PlatformRecord struct {
	Email          string         `json:"email"`
	FullName       string         `json:"full_name"`
	ProblemName    string         `json:"problem_name"`
	ProctorVerdict string         `json:"proctor_verdict"`
	RunDetails     map[string]any `json:"run_details"`
	MCQChoice      any            `json:"mcq_choice"`
}

func loadPlatformSchema() (*gojsonschema.Schema, error) {
	platformSchemaOnce.Do(func() {
		platformSchema, platformSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(platformSchemaJSON))
	})
	return platformSchema, platformSchemaErr
}

// ValidatePlatformRecord checks one raw record against the platform record schema.
func ValidatePlatformRecord(raw []byte) error {
	schema, err := loadPlatformSchema()
	if err != nil {
		return fmt.Errorf("load platform schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate platform record: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return fmt.Errorf("invalid platform record: %s", strings.Join(msgs, "; "))
}

// ParsePlatformRecords decodes a JSON array of platform records. Records failing schema
// validation are skipped with a warning. A malformed or empty array returns ErrEmptyCandidates.
func ParsePlatformRecords(data []byte, logger *zap.Logger) ([]PlatformRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCandidates, err)
	}
	if len(raws) == 0 {
		return nil, ErrEmptyCandidates
	}

	records := make([]PlatformRecord, 0, len(raws))
	for i, raw := range raws {
		if err := ValidatePlatformRecord(raw); err != nil {
			logger.Warn("skipping platform record", zap.Int("index", i), zap.Error(err))
			continue
		}

		var rec PlatformRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("skipping platform record", zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// NormalizePlatform folds platform records into one candidate per email.
// Records are matched to sections by problem name. Records without an email are skipped.
func NormalizePlatform(records []PlatformRecord, ts assessment.TestStructure, logger *zap.Logger) []*assessment.Candidate {
	if logger == nil {
		logger = zap.NewNop()
	}

	folder := newFolder()
	for i, rec := range records {
		email := strings.TrimSpace(rec.Email)
		if email == "" {
			logger.Warn("skipping platform record without email", zap.Int("index", i))
			continue
		}

		c := folder.get(email, func() *assessment.Candidate {
			return &assessment.Candidate{
				ID:                email,
				Name:              strings.TrimSpace(rec.FullName),
				Email:             email,
				ProctoringVerdict: assessment.VerdictNegligible,
			}
		})

		c.Attempts += recordAttempts(rec.RunDetails)

		verdict := assessment.ParseVerdict(rec.ProctorVerdict)
		if verdict == assessment.VerdictUnknown {
			verdict = assessment.VerdictNegligible
		}
		c.ProctoringVerdict = assessment.MoreSevere(c.ProctoringVerdict, verdict)

		section, ok := ts.FindByName(rec.ProblemName)
		if !ok {
			logger.Debug("platform record does not match any section",
				zap.String("candidate_id", email),
				zap.String("problem_name", rec.ProblemName),
			)
			continue
		}
		c.Sections.Set(section.Key(), recordScore(rec, section))
	}

	return folder.list()
}

func recordAttempts(details map[string]any) int {
	if n, ok := number(details["testcases_total"]); ok && n > 0 {
		return int(n)
	}
	return 1
}

// recordScore prefers the platform's numeric score and falls back to MCQ evaluation.
func recordScore(rec PlatformRecord, section assessment.Section) float64 {
	if score, ok := rec.RunDetails["score"].(float64); ok {
		return score
	}

	choice := NormalizeAnswer(rec.MCQChoice)
	if len(choice) == 0 || len(section.CorrectAnswer) == 0 {
		return 0
	}
	if SameAnswers(choice, section.CorrectAnswer) {
		return section.MaxScore()
	}
	return 0
}

func number(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/ups-ranker/internal/assessment"
)

// ErrEmptyCandidates is returned when the candidate source is empty or unparseable.
var ErrEmptyCandidates = errors.New("candidate source is empty or could not be parsed")

var headerSpaceRe = regexp.MustCompile(`\s+`)

// LoadJDSettings reads JD settings from a YAML file.
func LoadJDSettings(path string) (*assessment.JDSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jd settings %q: %w", path, err)
	}
	return ParseJDSettings(data)
}

// ParseJDSettings decodes a YAML document with role and skill_weights keys.
func ParseJDSettings(data []byte) (*assessment.JDSettings, error) {
	var jd assessment.JDSettings
	if err := yaml.Unmarshal(data, &jd); err != nil {
		return nil, fmt.Errorf("parse jd settings: %w", err)
	}
	if err := jd.Validate(); err != nil {
		return nil, err
	}
	return &jd, nil
}

// MarshalJDSettings encodes JD settings back to YAML.
func MarshalJDSettings(jd *assessment.JDSettings) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(jd); err != nil {
		return nil, fmt.Errorf("encode jd settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadRubric reads a rubric YAML file. An empty path yields the default rubric.
// Keys missing from the file keep their default values.
func LoadRubric(path string) (assessment.Rubric, error) {
	rubric := assessment.DefaultRubric()
	if strings.TrimSpace(path) == "" {
		return rubric, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rubric, fmt.Errorf("reading rubric %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rubric); err != nil {
		return rubric, fmt.Errorf("parse rubric: %w", err)
	}
	if err := rubric.Validate(); err != nil {
		return rubric, err
	}
	return rubric, nil
}

type structureRow struct {
	SectionID       string  `mapstructure:"section_id"`
	SectionName     string  `mapstructure:"section_name"`
	Skill           string  `mapstructure:"skill"`
	WeightInSection float64 `mapstructure:"weight_in_section"`
	ProblemScore    float64 `mapstructure:"problem_score"`
	CorrectAnswer   string  `mapstructure:"correct_answer"`
}

// LoadTestStructure reads the test structure CSV.
func LoadTestStructure(path string) (assessment.TestStructure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading test structure %q: %w", path, err)
	}
	defer f.Close()

	return ParseTestStructure(f)
}

// ParseTestStructure decodes test structure rows. Rows without section_id are skipped;
// duplicate ids (case-insensitive) are rejected.
func ParseTestStructure(r io.Reader) (assessment.TestStructure, error) {
	rows, err := ReadRows(r, nil)
	if err != nil {
		return nil, fmt.Errorf("parse test structure: %w", err)
	}

	structure := make(assessment.TestStructure, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		var sr structureRow
		if err := decodeRow(row, &sr); err != nil {
			return nil, fmt.Errorf("test structure row %d: %w", i+1, err)
		}

		id := strings.TrimSpace(sr.SectionID)
		if id == "" {
			continue
		}
		key := assessment.NormalizeKey(id)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("test structure row %d: duplicate section_id %q", i+1, id)
		}
		seen[key] = struct{}{}

		section := assessment.Section{
			ID:              id,
			Name:            strings.TrimSpace(sr.SectionName),
			Skill:           strings.TrimSpace(sr.Skill),
			WeightInSection: sr.WeightInSection,
			ProblemScore:    sr.ProblemScore,
		}
		if strings.TrimSpace(sr.CorrectAnswer) != "" {
			section.CorrectAnswer = NormalizeAnswer(sr.CorrectAnswer)
		}
		structure = append(structure, section)
	}

	if len(structure) == 0 {
		return nil, errors.New("test structure has no sections")
	}
	return structure, nil
}

// WriteTestStructure writes ts as a test structure CSV with the columns
// section_id,section_name,skill,weight_in_section.
func WriteTestStructure(w io.Writer, ts assessment.TestStructure) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"section_id", "section_name", "skill", "weight_in_section"}); err != nil {
		return err
	}
	for _, section := range ts {
		record := []string{
			section.ID,
			section.Name,
			section.Skill,
			strconv.FormatFloat(section.WeightInSection, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// HeaderKey normalizes a CSV header or section id into a row key: BOM stripped, trimmed,
// lower-cased, whitespace runs replaced by underscores.
func HeaderKey(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	return headerSpaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
}

// ReadRows reads CSV with a header row into maps keyed by HeaderKey. Short rows are padded
// with empty values. A data row the reader cannot parse is skipped with a warning; only a
// missing or unreadable header is an error.
func ReadRows(r io.Reader, logger *zap.Logger) ([]map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = HeaderKey(h)
	}

	rows := make([]map[string]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.Warn("skipping malformed csv row", zap.Int("line", perr.StartLine), zap.Error(err))
				continue
			}
			return nil, err
		}
		if blank(record) {
			continue
		}

		row := make(map[string]string, len(keys))
		for i, key := range keys {
			if key == "" {
				continue
			}
			if i < len(record) {
				row[key] = strings.TrimSpace(record[i])
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// decodeRow decodes non-empty row values into out with weak typing.
// Empty cells are dropped so that pointer fields stay nil.
func decodeRow(row map[string]string, out any) error {
	input := make(map[string]any, len(row))
	for k, v := range row {
		if v == "" {
			continue
		}
		input[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
